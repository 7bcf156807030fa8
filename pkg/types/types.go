package types

import (
	"encoding/json"
	"fmt"
)

// Wire-stable error reasons. External callers branch on these strings; never
// rename an existing value.
const (
	ReasonInvalidNetwork     = "invalid_network"
	ReasonInvalidPayload     = "invalid_payload"
	ReasonInvalidSignature   = "invalid_signature"
	ReasonRecipientMismatch  = "recipient_mismatch"
	ReasonAssetMismatch      = "asset_mismatch"
	ReasonAmountMismatch     = "amount_mismatch"
	ReasonPaymentExpired     = "payment_expired"
	ReasonExchangeError      = "exchange_error"
	ReasonTxNotFound         = "tx_not_found"
	ReasonTxUnconfirmed      = "tx_unconfirmed"
	ReasonUnsupportedNetwork = "unsupported_network"
)

// PaymentRequirements defines what a resource server accepts as payment.
// Matches the x402 protocol specification.
type PaymentRequirements struct {
	// Scheme of the payment protocol (currently always "exact").
	Scheme string `json:"scheme"`

	// Network the payment must be sent on.
	Network string `json:"network"`

	// MaxAmountRequired is the amount in atomic units of the asset,
	// represented as a decimal string because Go has no uint256.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Resource is the URL of the resource being paid for.
	Resource string `json:"resource"`

	// Description of the resource being purchased. Informational only.
	Description string `json:"description"`

	// MimeType of the resource response. Informational only.
	MimeType string `json:"mimeType"`

	// OutputSchema of the resource response, if applicable.
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`

	// PayTo is the recipient identity in the network family's address format.
	PayTo string `json:"payTo"`

	// MaxTimeoutSeconds is the freshness budget for the signed payload.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Asset is the family-specific token identifier. For Hyperliquid networks
	// this is a compound SYMBOL:0xHEX token id, not a plain address.
	Asset string `json:"asset"`

	// Extra holds family-specific hints such as "decimals", "tokenSymbol" or
	// "signatureChainId".
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Validate checks that the requirements contain all mandatory fields.
func (pr *PaymentRequirements) Validate() error {
	if pr.Scheme == "" {
		return fmt.Errorf("paymentRequirements.scheme is required")
	}
	if pr.Network == "" {
		return fmt.Errorf("paymentRequirements.network is required")
	}
	if pr.MaxAmountRequired == "" {
		return fmt.Errorf("paymentRequirements.maxAmountRequired is required")
	}
	if pr.PayTo == "" {
		return fmt.Errorf("paymentRequirements.payTo is required")
	}
	if pr.Asset == "" {
		return fmt.Errorf("paymentRequirements.asset is required")
	}
	if pr.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("paymentRequirements.maxTimeoutSeconds must be greater than 0")
	}
	return nil
}

// ExtraDecimals returns the "decimals" hint from Extra if present. JSON
// decodes numbers as float64 (or json.Number when a codec used UseNumber), so
// both representations are accepted.
func (pr *PaymentRequirements) ExtraDecimals() (int, bool) {
	if pr.Extra == nil {
		return 0, false
	}
	switch v := pr.Extra["decimals"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// PaymentPayload is the decoded payment envelope. Payload is a tagged union
// whose active member is determined by the network's family; decode and encode
// must never mix families.
type PaymentPayload struct {
	X402Version int          `json:"x402Version"`
	Scheme      string       `json:"scheme"`
	Network     string       `json:"network"`
	Payload     ExactPayload `json:"payload"`
}

// VerifyResponse is the facilitator's verification result.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// Valid builds an accepting VerifyResponse for the given payer.
func Valid(payer string) *VerifyResponse {
	return &VerifyResponse{IsValid: true, Payer: payer}
}

// Invalid builds a rejecting VerifyResponse with a wire reason.
func Invalid(reason string) *VerifyResponse {
	return &VerifyResponse{IsValid: false, InvalidReason: reason}
}

// SettleResponse is the facilitator's settlement result. Transaction is always
// populated best-effort, even on failure, to aid debugging and audit.
type SettleResponse struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// Settled builds a successful SettleResponse.
func Settled(network, transaction, payer string) *SettleResponse {
	return &SettleResponse{
		Success:     true,
		Transaction: transaction,
		Network:     network,
		Payer:       payer,
	}
}

// SettleFailure builds a failed SettleResponse. transaction may be empty or a
// best-effort identifier.
func SettleFailure(network, transaction, payer, reason string) *SettleResponse {
	return &SettleResponse{
		Success:     false,
		Transaction: transaction,
		Network:     network,
		Payer:       payer,
		ErrorReason: reason,
	}
}

// SupportedItem describes one supported scheme/network combination.
type SupportedItem struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
}

// SupportedResponse lists all payment kinds the facilitator supports.
type SupportedResponse struct {
	Kinds []SupportedItem `json:"kinds"`
}
