package constants

import "time"

const (
	DelayBetweenRPCCalls  = 200              // delay in milliseconds between RPC calls
	ReceiptLookupTimeout  = 5 * time.Second  // timeout for a single receipt/detail lookup
	SubmitTimeout         = 15 * time.Second // timeout for a write-endpoint submission
	TLSHandshakeTimeout   = 10 * time.Second // timeout for TLS handshake
	ResponseHeaderTimeout = 20 * time.Second // timeout for response header
	ExpectContinueTimeout = 1 * time.Second  // timeout for expect continue
	MaxResponseBodySize   = 10 * 1024 * 1024 // maximum response body size in bytes (10MB)

	// Settlement confirmation uses a fixed retry budget with a fixed
	// inter-attempt delay. No backoff or jitter; callers racing their own
	// deadline must treat an abandoned settle as an unknown outcome.
	ConfirmMaxAttempts = 5
	ConfirmRetryDelay  = 2 * time.Second
)

// SchemeExact is the only payment scheme currently supported.
const SchemeExact = "exact"

// X402Version is the protocol version carried in payment envelopes.
const X402Version = 1

// Network names
const (
	NetworkBase               = "base"
	NetworkBaseSepolia        = "base-sepolia"
	NetworkAvalanche          = "avalanche"
	NetworkAvalancheFuji      = "avalanche-fuji"
	NetworkPolygon            = "polygon"
	NetworkPolygonAmoy        = "polygon-amoy"
	NetworkSei                = "sei"
	NetworkSeiTestnet         = "sei-testnet"
	NetworkSolana             = "solana"
	NetworkSolanaDevnet       = "solana-devnet"
	NetworkHyperliquid        = "hyperliquid"
	NetworkHyperliquidTestnet = "hyperliquid-testnet"
)

const (
	USDCAddressBase          = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	USDCAddressBaseSepolia   = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	USDCAddressAvalanche     = "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"
	USDCAddressAvalancheFuji = "0x5425890298aed601595a70AB815c96711a31Bc65"
	USDCAddressPolygon       = "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"
	USDCAddressPolygonAmoy   = "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"
	USDCAddressSei           = "0xe15fC38F6D8c56aF07bbCBe3BAf5708A2Bf42392"
	USDCAddressSeiTestnet    = "0x4fCF1784B31630811181f670Aea7A7bEF803eaED"
	USDCAddressSolana        = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDCAddressSolanaDevnet  = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"

	// HyperCore spot token ids are compound SYMBOL:0xHEX strings, not addresses.
	USDCTokenHyperliquid        = "USDC:0x6d1e7cde53ba9467b783cb7c530ce054"
	USDCTokenHyperliquidTestnet = "USDC:0xd9afbec996f8356fe1b68ab6e0d37d3b"
)

// NetworkToDefaultAsset maps a network to its default (USDC) asset identifier.
var NetworkToDefaultAsset = map[string]string{
	NetworkBase:               USDCAddressBase,
	NetworkBaseSepolia:        USDCAddressBaseSepolia,
	NetworkAvalanche:          USDCAddressAvalanche,
	NetworkAvalancheFuji:      USDCAddressAvalancheFuji,
	NetworkPolygon:            USDCAddressPolygon,
	NetworkPolygonAmoy:        USDCAddressPolygonAmoy,
	NetworkSei:                USDCAddressSei,
	NetworkSeiTestnet:         USDCAddressSeiTestnet,
	NetworkSolana:             USDCAddressSolana,
	NetworkSolanaDevnet:       USDCAddressSolanaDevnet,
	NetworkHyperliquid:        USDCTokenHyperliquid,
	NetworkHyperliquidTestnet: USDCTokenHyperliquidTestnet,
}

// NetworkToDefaultDecimals maps a network to the decimals of its default asset.
// HyperCore spot USDC carries 8 wei decimals; everywhere else USDC is 6.
var NetworkToDefaultDecimals = map[string]int{
	NetworkBase:               6,
	NetworkBaseSepolia:        6,
	NetworkAvalanche:          6,
	NetworkAvalancheFuji:      6,
	NetworkPolygon:            6,
	NetworkPolygonAmoy:        6,
	NetworkSei:                6,
	NetworkSeiTestnet:         6,
	NetworkSolana:             6,
	NetworkSolanaDevnet:       6,
	NetworkHyperliquid:        8,
	NetworkHyperliquidTestnet: 8,
}

// NetworkToChainID maps EVM network names to numeric chain IDs.
var NetworkToChainID = map[string]int64{
	NetworkBase:          8453,
	NetworkBaseSepolia:   84532,
	NetworkAvalanche:     43114,
	NetworkAvalancheFuji: 43113,
	NetworkPolygon:       137,
	NetworkPolygonAmoy:   80002,
	NetworkSei:           1329,
	NetworkSeiTestnet:    1328,
}

// NetworkToChainLabel maps a network to the chain label that appears inside
// signed actions and transaction history entries for that chain.
var NetworkToChainLabel = map[string]string{
	NetworkBase:               "base",
	NetworkBaseSepolia:        "base-sepolia",
	NetworkAvalanche:          "avalanche",
	NetworkAvalancheFuji:      "avalanche-fuji",
	NetworkPolygon:            "polygon",
	NetworkPolygonAmoy:        "polygon-amoy",
	NetworkSei:                "sei",
	NetworkSeiTestnet:         "sei-testnet",
	NetworkSolana:             "mainnet-beta",
	NetworkSolanaDevnet:       "devnet",
	NetworkHyperliquid:        "Mainnet",
	NetworkHyperliquidTestnet: "Testnet",
}

// OfficialRPCEndpoints lists default endpoints per network. For Hyperliquid
// networks the first entry is the info (read) endpoint and the second the
// exchange (write) endpoint.
var OfficialRPCEndpoints = map[string][]string{
	NetworkBase:               {"https://mainnet.base.org"},
	NetworkBaseSepolia:        {"https://sepolia.base.org"},
	NetworkAvalanche:          {"https://api.avax.network/ext/bc/C/rpc"},
	NetworkAvalancheFuji:      {"https://api.avax-test.network/ext/bc/C/rpc"},
	NetworkPolygon:            {"https://polygon-rpc.com"},
	NetworkPolygonAmoy:        {"https://rpc-amoy.polygon.technology"},
	NetworkSei:                {"https://evm-rpc.sei-apis.com"},
	NetworkSeiTestnet:         {"https://evm-rpc-testnet.sei-apis.com"},
	NetworkSolana:             {"https://api.mainnet-beta.solana.com"},
	NetworkSolanaDevnet:       {"https://api.devnet.solana.com"},
	NetworkHyperliquid:        {"https://api.hyperliquid.xyz/info", "https://api.hyperliquid.xyz/exchange"},
	NetworkHyperliquidTestnet: {"https://api.hyperliquid-testnet.xyz/info", "https://api.hyperliquid-testnet.xyz/exchange"},
}
