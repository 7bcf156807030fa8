package evm

import (
	"fmt"
	"log/slog"

	"github.com/x402wire/facilitator/pkg/chains"
)

// InitEVMChains initializes EVM chain support using the official RPC
// endpoints. Without explicit networks every known EVM network is registered.
// sender may be nil for verify-only deployments.
func InitEVMChains(logger *slog.Logger, sender chains.TxSender, networksToMonitor ...string) error {
	registry := chains.InitGlobalRegistry()

	if len(networksToMonitor) == 0 {
		networksToMonitor = chains.Networks(chains.FamilyEVM)
	}

	for _, network := range networksToMonitor {
		adapter, err := NewAdapter(network, nil, sender, logger)
		if err != nil {
			return fmt.Errorf("failed to create EVM adapter for %s: %w", network, err)
		}
		if err := registry.Register(adapter); err != nil {
			return fmt.Errorf("failed to register EVM adapter for %s: %w", network, err)
		}
	}
	return nil
}

// InitEVMChainsWithEndpoints initializes EVM chain support with user-provided
// RPC endpoints per network. Networks mapped to an empty slice fall back to
// the official endpoints.
func InitEVMChainsWithEndpoints(logger *slog.Logger, sender chains.TxSender, endpoints map[string][]string) error {
	registry := chains.InitGlobalRegistry()

	for network, eps := range endpoints {
		adapter, err := NewAdapter(network, eps, sender, logger)
		if err != nil {
			return fmt.Errorf("failed to create EVM adapter for %s: %w", network, err)
		}
		if err := registry.Register(adapter); err != nil {
			return fmt.Errorf("failed to register EVM adapter for %s: %w", network, err)
		}
	}
	return nil
}
