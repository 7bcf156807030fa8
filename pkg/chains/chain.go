package chains

import (
	"context"

	"github.com/x402wire/facilitator/pkg/types"
)

// ChainAdapter provides family-specific verification and settlement for one
// network. Adapters never return raw transport faults; every failure is
// normalized into a typed wire reason on the response.
type ChainAdapter interface {
	// Network returns the network name (e.g., "base", "hyperliquid").
	Network() string

	// Family returns the network family this adapter serves.
	Family() Family

	// Verify checks a decoded payload against the requirements. Idempotent;
	// the only allowed side effect is a read-only token-info lookup.
	Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) *types.VerifyResponse

	// Settle submits the payload to the network and confirms it landed.
	// Settlement is not idempotent; the adapter never retries a submission.
	Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) *types.SettleResponse
}

// TxSender is the consumed signing collaborator for account chains where the
// facilitator relays an authorization on-chain without holding client keys.
// chainID feeds replay-protected (EIP-155) signing; the returned hash
// identifies the broadcast transaction.
type TxSender interface {
	SignAndSend(ctx context.Context, network string, chainID int64, to string, calldata []byte) (string, error)
}
