package chains

import (
	"fmt"

	"github.com/x402wire/facilitator/pkg/constants"
)

// Family classifies a network into a chain family. Families share payload
// shape, address format, and settlement semantics.
type Family string

const (
	FamilyEVM         Family = "evm"
	FamilySVM         Family = "svm"
	FamilyHyperliquid Family = "hyperliquid"
)

// networkToFamily is the closed, static membership table. Adding a network to
// a family is a one-line change here (plus its constants entries); nothing
// else in the module branches on network names directly.
var networkToFamily = map[string]Family{
	constants.NetworkBase:               FamilyEVM,
	constants.NetworkBaseSepolia:        FamilyEVM,
	constants.NetworkAvalanche:          FamilyEVM,
	constants.NetworkAvalancheFuji:      FamilyEVM,
	constants.NetworkPolygon:            FamilyEVM,
	constants.NetworkPolygonAmoy:        FamilyEVM,
	constants.NetworkSei:                FamilyEVM,
	constants.NetworkSeiTestnet:         FamilyEVM,
	constants.NetworkSolana:             FamilySVM,
	constants.NetworkSolanaDevnet:       FamilySVM,
	constants.NetworkHyperliquid:        FamilyHyperliquid,
	constants.NetworkHyperliquidTestnet: FamilyHyperliquid,
}

// UnsupportedNetworkError is returned when a network belongs to no family.
type UnsupportedNetworkError struct {
	Network string
}

func (e *UnsupportedNetworkError) Error() string {
	return fmt.Sprintf("unsupported network: %s", e.Network)
}

// Classify resolves the family a network belongs to.
func Classify(network string) (Family, error) {
	family, ok := networkToFamily[network]
	if !ok {
		return "", &UnsupportedNetworkError{Network: network}
	}
	return family, nil
}

// Networks returns all networks belonging to the given family.
func Networks(family Family) []string {
	var networks []string
	for network, f := range networkToFamily {
		if f == family {
			networks = append(networks, network)
		}
	}
	return networks
}

// FamilyConfig carries the static per-network configuration resolved through
// the registry.
type FamilyConfig struct {
	// DefaultAsset is the network's default payment asset identifier.
	DefaultAsset string

	// DefaultDecimals is the atomic-unit exponent of the default asset.
	DefaultDecimals int

	// ChainLabel is the label this chain uses inside signed actions and
	// transaction history entries.
	ChainLabel string

	// BaseEndpoints are the default endpoints for the network. For
	// Hyperliquid networks the first is the info endpoint and the second the
	// exchange endpoint.
	BaseEndpoints []string
}

// ConfigFor resolves the static configuration for a network.
func ConfigFor(network string) (*FamilyConfig, error) {
	if _, err := Classify(network); err != nil {
		return nil, err
	}
	return &FamilyConfig{
		DefaultAsset:    constants.NetworkToDefaultAsset[network],
		DefaultDecimals: constants.NetworkToDefaultDecimals[network],
		ChainLabel:      constants.NetworkToChainLabel[network],
		BaseEndpoints:   constants.OfficialRPCEndpoints[network],
	}, nil
}
