package evm

import (
	"fmt"
	"log/slog"

	"github.com/x402wire/facilitator/pkg/chains"
	"github.com/x402wire/facilitator/pkg/constants"
)

// Adapter implements chains.ChainAdapter for EVM networks. Settlement relays
// the signed EIP-3009 authorization on-chain through an injected TxSender;
// the adapter itself never touches private keys.
type Adapter struct {
	network string
	chainID int64
	rpc     *RPCClient
	sender  chains.TxSender
	logger  *slog.Logger
}

// NewAdapter creates an EVM chain adapter. Empty endpoints fall back to the
// network's official RPC endpoints. sender may be nil for verify-only use;
// Settle then fails with exchange_error.
func NewAdapter(network string, endpoints []string, sender chains.TxSender, logger *slog.Logger) (*Adapter, error) {
	family, err := chains.Classify(network)
	if err != nil {
		return nil, err
	}
	if family != chains.FamilyEVM {
		return nil, fmt.Errorf("network %s is not an EVM network", network)
	}

	config, err := chains.ConfigFor(network)
	if err != nil {
		return nil, err
	}

	chainID, ok := constants.NetworkToChainID[network]
	if !ok {
		return nil, fmt.Errorf("no chain id known for network %s", network)
	}

	if len(endpoints) == 0 {
		endpoints = config.BaseEndpoints
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		network: network,
		chainID: chainID,
		rpc:     NewRPCClient(network, endpoints),
		sender:  sender,
		logger:  logger,
	}, nil
}

// Network implements chains.ChainAdapter.
func (a *Adapter) Network() string {
	return a.network
}

// Family implements chains.ChainAdapter.
func (a *Adapter) Family() chains.Family {
	return chains.FamilyEVM
}

var _ chains.ChainAdapter = (*Adapter)(nil)
