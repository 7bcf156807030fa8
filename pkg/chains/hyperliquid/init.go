package hyperliquid

import (
	"fmt"
	"log/slog"

	"github.com/x402wire/facilitator/pkg/chains"
	"github.com/x402wire/facilitator/pkg/constants"
)

// InitHyperliquidChains initializes Hyperliquid chain support using the
// official endpoints. Without explicit networks both mainnet and testnet are
// registered. All adapters share one token-info cache.
func InitHyperliquidChains(logger *slog.Logger, networksToMonitor ...string) error {
	registry := chains.InitGlobalRegistry()

	if len(networksToMonitor) == 0 {
		networksToMonitor = []string{
			constants.NetworkHyperliquid,
			constants.NetworkHyperliquidTestnet,
		}
	}

	cache := NewTokenInfoCache()
	for _, network := range networksToMonitor {
		adapter, err := NewAdapter(network, nil, cache, logger)
		if err != nil {
			return fmt.Errorf("failed to create Hyperliquid adapter for %s: %w", network, err)
		}
		if err := registry.Register(adapter); err != nil {
			return fmt.Errorf("failed to register Hyperliquid adapter for %s: %w", network, err)
		}
	}
	return nil
}

// InitHyperliquidChainsWithEndpoints initializes Hyperliquid chain support
// with user-provided {info, exchange} endpoint pairs. Networks mapped to an
// empty slice fall back to the official endpoints.
func InitHyperliquidChainsWithEndpoints(logger *slog.Logger, endpoints map[string][]string) error {
	registry := chains.InitGlobalRegistry()

	cache := NewTokenInfoCache()
	for network, eps := range endpoints {
		adapter, err := NewAdapter(network, eps, cache, logger)
		if err != nil {
			return fmt.Errorf("failed to create Hyperliquid adapter for %s: %w", network, err)
		}
		if err := registry.Register(adapter); err != nil {
			return fmt.Errorf("failed to register Hyperliquid adapter for %s: %w", network, err)
		}
	}
	return nil
}
