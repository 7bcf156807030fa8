package hyperliquid

import (
	"fmt"
	"log/slog"

	"github.com/x402wire/facilitator/pkg/chains"
)

// Adapter implements chains.ChainAdapter for HyperCore-style networks.
type Adapter struct {
	network string
	client  *Client
	cache   *TokenInfoCache
	logger  *slog.Logger
}

// NewAdapter creates a Hyperliquid chain adapter. endpoints carries the info
// endpoint first and the exchange endpoint second; missing entries fall back
// to the network's official endpoints. The token-info cache is injected so it
// can be shared across adapters or replaced per test.
func NewAdapter(network string, endpoints []string, cache *TokenInfoCache, logger *slog.Logger) (*Adapter, error) {
	family, err := chains.Classify(network)
	if err != nil {
		return nil, err
	}
	if family != chains.FamilyHyperliquid {
		return nil, fmt.Errorf("network %s is not a Hyperliquid network", network)
	}

	config, err := chains.ConfigFor(network)
	if err != nil {
		return nil, err
	}

	if len(endpoints) < 2 {
		endpoints = config.BaseEndpoints
	}
	if len(endpoints) < 2 {
		return nil, fmt.Errorf("network %s needs an info and an exchange endpoint", network)
	}

	if cache == nil {
		cache = NewTokenInfoCache()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		network: network,
		client:  NewClient(endpoints[0], endpoints[1]),
		cache:   cache,
		logger:  logger,
	}, nil
}

// Network implements chains.ChainAdapter.
func (a *Adapter) Network() string {
	return a.network
}

// Family implements chains.ChainAdapter.
func (a *Adapter) Family() chains.Family {
	return chains.FamilyHyperliquid
}

var _ chains.ChainAdapter = (*Adapter)(nil)
