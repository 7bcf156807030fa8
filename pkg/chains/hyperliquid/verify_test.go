package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

const (
	testPayTo = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"
	testUser  = "0x857b06519E91e3A54538791bDbb0E22373e36b66"
)

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(constants.NetworkHyperliquid, nil, NewTokenInfoCache(), nil)
	require.NoError(t, err)
	return adapter
}

func testRequirements() *types.PaymentRequirements {
	return &types.PaymentRequirements{
		Scheme:            constants.SchemeExact,
		Network:           constants.NetworkHyperliquid,
		MaxAmountRequired: "1000000",
		PayTo:             testPayTo,
		Asset:             constants.USDCTokenHyperliquid,
		MaxTimeoutSeconds: 300,
		Extra:             map[string]interface{}{"decimals": float64(6)},
	}
}

func testPayload(timeMillis int64) *types.PaymentPayload {
	return &types.PaymentPayload{
		X402Version: constants.X402Version,
		Scheme:      constants.SchemeExact,
		Network:     constants.NetworkHyperliquid,
		Payload: types.ExactPayload{
			Hl: &types.ExactHlPayload{
				Action: map[string]interface{}{
					"type":        "spotSend",
					"destination": testPayTo,
					"token":       constants.USDCTokenHyperliquid,
					"amount":      "1",
					"time":        json.Number(fmt.Sprintf("%d", timeMillis)),
				},
				Signature: types.HlSignature{Hex: "0xdeadbeef"},
				Nonce:     uint64(timeMillis),
				User:      testUser,
			},
		},
	}
}

func TestVerifyAccepts(t *testing.T) {
	adapter := testAdapter(t)

	resp := adapter.Verify(context.Background(), testPayload(time.Now().UnixMilli()), testRequirements())
	assert.True(t, resp.IsValid)
	assert.Equal(t, testUser, resp.Payer)
}

func TestVerifyPayerFromAction(t *testing.T) {
	adapter := testAdapter(t)

	payload := testPayload(time.Now().UnixMilli())
	payload.Payload.Hl.User = ""
	payload.Payload.Hl.Action["user"] = testUser

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.True(t, resp.IsValid)
	assert.Equal(t, testUser, resp.Payer, "payer falls back to action.user")
}

func TestVerifyShapeAndRouting(t *testing.T) {
	adapter := testAdapter(t)
	now := time.Now().UnixMilli()

	tests := []struct {
		name   string
		mutate func(p *types.PaymentPayload, r *types.PaymentRequirements)
		reason string
	}{
		{
			"wrong scheme",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { r.Scheme = "subscription"; p.Scheme = "subscription" },
			types.ReasonInvalidNetwork,
		},
		{
			"scheme mismatch",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Scheme = "other" },
			types.ReasonInvalidNetwork,
		},
		{
			"network mismatch",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Network = constants.NetworkHyperliquidTestnet },
			types.ReasonInvalidNetwork,
		},
		{
			"foreign network on both sides",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) {
				p.Network = constants.NetworkHyperliquidTestnet
				r.Network = constants.NetworkHyperliquidTestnet
			},
			types.ReasonInvalidNetwork,
		},
		{
			"no payload member",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Hl = nil },
			types.ReasonInvalidPayload,
		},
		{
			"no action",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Hl.Action = nil },
			types.ReasonInvalidPayload,
		},
		{
			"missing destination",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { delete(p.Payload.Hl.Action, "destination") },
			types.ReasonInvalidPayload,
		},
		{
			"missing token",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { delete(p.Payload.Hl.Action, "token") },
			types.ReasonInvalidPayload,
		},
		{
			"missing amount",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { delete(p.Payload.Hl.Action, "amount") },
			types.ReasonInvalidPayload,
		},
		{
			"no signature",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Hl.Signature = types.HlSignature{} },
			types.ReasonInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := testPayload(now)
			requirements := testRequirements()
			tt.mutate(payload, requirements)

			resp := adapter.Verify(context.Background(), payload, requirements)
			assert.False(t, resp.IsValid)
			assert.Equal(t, tt.reason, resp.InvalidReason)
		})
	}
}

func TestVerifyFirstFailingCheckWins(t *testing.T) {
	adapter := testAdapter(t)

	// Wrong recipient AND wrong token AND too little: recipient is checked
	// first, so its reason is reported.
	payload := testPayload(time.Now().UnixMilli())
	payload.Payload.Hl.Action["destination"] = testUser
	payload.Payload.Hl.Action["token"] = "WRONG:0x1234"
	payload.Payload.Hl.Action["amount"] = "0.000001"

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonRecipientMismatch, resp.InvalidReason)
}

func TestVerifyRecipientCaseInsensitive(t *testing.T) {
	adapter := testAdapter(t)

	payload := testPayload(time.Now().UnixMilli())
	payload.Payload.Hl.Action["destination"] = "0x209693BC6AFC0C5328BA36FAF03C514EF312287C"

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.True(t, resp.IsValid, "addresses compare case-insensitively")
}

func TestVerifyTokenExactMatch(t *testing.T) {
	adapter := testAdapter(t)

	// Token ids are compound strings; even a case difference is a different id
	payload := testPayload(time.Now().UnixMilli())
	payload.Payload.Hl.Action["token"] = "usdc:0x6d1e7cde53ba9467b783cb7c530ce054"

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonAssetMismatch, resp.InvalidReason)
}

func TestVerifyAmountBoundaries(t *testing.T) {
	adapter := testAdapter(t)

	// Required: 1000000 atomic units at 6 decimals, i.e. exactly "1"
	tests := []struct {
		amount string
		valid  bool
	}{
		{"1", true},
		{"1.000001", true},
		{"2", true},
		{"0.999999", false},
		{"0", false},
		{"-1", false},
		{"not-a-number", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			payload := testPayload(time.Now().UnixMilli())
			payload.Payload.Hl.Action["amount"] = tt.amount

			resp := adapter.Verify(context.Background(), payload, testRequirements())
			assert.Equal(t, tt.valid, resp.IsValid)
			if !tt.valid {
				assert.Equal(t, types.ReasonAmountMismatch, resp.InvalidReason)
			}
		})
	}
}

func TestVerifyAmountWithoutDecimalsHint(t *testing.T) {
	adapter := testAdapter(t)

	// Compound token ids without a decimals hint fall back to raw comparison:
	// the payload amount must then already be in atomic units.
	requirements := testRequirements()
	requirements.Extra = nil

	payload := testPayload(time.Now().UnixMilli())
	payload.Payload.Hl.Action["amount"] = "1000000"

	resp := adapter.Verify(context.Background(), payload, requirements)
	assert.True(t, resp.IsValid)

	payload.Payload.Hl.Action["amount"] = "999999"
	resp = adapter.Verify(context.Background(), payload, requirements)
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonAmountMismatch, resp.InvalidReason)
}

func TestVerifyExpiryBoundaries(t *testing.T) {
	adapter := testAdapter(t)
	now := time.Now().UnixMilli()

	// Budget is 300 seconds
	tests := []struct {
		name       string
		timeMillis int64
		valid      bool
	}{
		{"fresh", now - 1000, true},
		{"just inside budget", now - 299*1000, true},
		{"beyond budget", now - 301*1000, false},
		{"far in the past", now - 3600*1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := adapter.Verify(context.Background(), testPayload(tt.timeMillis), testRequirements())
			assert.Equal(t, tt.valid, resp.IsValid)
			if !tt.valid {
				assert.Equal(t, types.ReasonPaymentExpired, resp.InvalidReason)
			}
		})
	}
}

func TestVerifyExpiryMillisecondBoundary(t *testing.T) {
	// Fixed clock: the 300s budget ends exactly at the deadline millisecond.
	now := int64(1_756_300_000_000)

	assert.False(t, expiredAt(now-300_000, 300, now), "an action exactly at its deadline is still fresh")
	assert.True(t, expiredAt(now-300_001, 300, now), "one millisecond past the deadline is expired")
	assert.False(t, expiredAt(now, 300, now))
	assert.False(t, expiredAt(now+1000, 300, now), "a future-dated action is not expired")
}

func TestVerifyMissingTimeIsExpired(t *testing.T) {
	adapter := testAdapter(t)

	payload := testPayload(time.Now().UnixMilli())
	delete(payload.Payload.Hl.Action, "time")

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonPaymentExpired, resp.InvalidReason, "freshness cannot be assumed for an undated action")
}

func TestVerifyNilInputs(t *testing.T) {
	adapter := testAdapter(t)

	resp := adapter.Verify(context.Background(), nil, testRequirements())
	assert.Equal(t, types.ReasonInvalidPayload, resp.InvalidReason)

	resp = adapter.Verify(context.Background(), testPayload(time.Now().UnixMilli()), nil)
	assert.Equal(t, types.ReasonInvalidPayload, resp.InvalidReason)
}
