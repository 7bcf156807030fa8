package svm

import (
	"fmt"
	"log/slog"

	"github.com/x402wire/facilitator/pkg/chains"
)

// InitSVMChains initializes SVM chain support using the official RPC
// endpoints. Without explicit networks every known SVM network is registered.
func InitSVMChains(logger *slog.Logger, networksToMonitor ...string) error {
	registry := chains.InitGlobalRegistry()

	if len(networksToMonitor) == 0 {
		networksToMonitor = chains.Networks(chains.FamilySVM)
	}

	for _, network := range networksToMonitor {
		adapter, err := NewAdapter(network, nil, logger)
		if err != nil {
			return fmt.Errorf("failed to create SVM adapter for %s: %w", network, err)
		}
		if err := registry.Register(adapter); err != nil {
			return fmt.Errorf("failed to register SVM adapter for %s: %w", network, err)
		}
	}
	return nil
}

// InitSVMChainsWithEndpoints initializes SVM chain support with user-provided
// RPC endpoints per network. Networks mapped to an empty slice fall back to
// the official endpoints.
func InitSVMChainsWithEndpoints(logger *slog.Logger, endpoints map[string][]string) error {
	registry := chains.InitGlobalRegistry()

	for network, eps := range endpoints {
		adapter, err := NewAdapter(network, eps, logger)
		if err != nil {
			return fmt.Errorf("failed to create SVM adapter for %s: %w", network, err)
		}
		if err := registry.Register(adapter); err != nil {
			return fmt.Errorf("failed to register SVM adapter for %s: %w", network, err)
		}
	}
	return nil
}
