package svm

import (
	"fmt"
	"log/slog"

	"github.com/x402wire/facilitator/pkg/chains"
)

// Adapter implements chains.ChainAdapter for SVM networks. The payload is a
// fully signed, base64-serialized transaction; the adapter decodes it for
// verification and broadcasts it as-is for settlement.
type Adapter struct {
	network string
	rpc     *RPCClient
	logger  *slog.Logger
}

// NewAdapter creates an SVM chain adapter. Empty endpoints fall back to the
// network's official RPC endpoints.
func NewAdapter(network string, endpoints []string, logger *slog.Logger) (*Adapter, error) {
	family, err := chains.Classify(network)
	if err != nil {
		return nil, err
	}
	if family != chains.FamilySVM {
		return nil, fmt.Errorf("network %s is not an SVM network", network)
	}

	config, err := chains.ConfigFor(network)
	if err != nil {
		return nil, err
	}

	if len(endpoints) == 0 {
		endpoints = config.BaseEndpoints
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		network: network,
		rpc:     NewRPCClient(network, endpoints),
		logger:  logger,
	}, nil
}

// Network implements chains.ChainAdapter.
func (a *Adapter) Network() string {
	return a.network
}

// Family implements chains.ChainAdapter.
func (a *Adapter) Family() chains.Family {
	return chains.FamilySVM
}

var _ chains.ChainAdapter = (*Adapter)(nil)
