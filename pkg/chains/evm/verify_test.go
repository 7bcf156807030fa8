package evm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

const (
	testFrom = "0x857b06519E91e3A54538791bDbb0E22373e36b66"
	testTo   = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"
)

var testSignature = "0x" + strings.Repeat("ab", 65)

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(constants.NetworkBaseSepolia, nil, nil, nil)
	require.NoError(t, err)
	return adapter
}

func testRequirements() *types.PaymentRequirements {
	return &types.PaymentRequirements{
		Scheme:            constants.SchemeExact,
		Network:           constants.NetworkBaseSepolia,
		MaxAmountRequired: "1000000",
		PayTo:             testTo,
		Asset:             constants.USDCAddressBaseSepolia,
		MaxTimeoutSeconds: 300,
	}
}

func testPayload() *types.PaymentPayload {
	now := time.Now().Unix()
	return &types.PaymentPayload{
		X402Version: constants.X402Version,
		Scheme:      constants.SchemeExact,
		Network:     constants.NetworkBaseSepolia,
		Payload: types.ExactPayload{
			Evm: &types.ExactEvmPayload{
				Signature: testSignature,
				Authorization: &types.ExactEvmPayloadAuthorization{
					From:        testFrom,
					To:          testTo,
					Value:       "1000000",
					ValidAfter:  fmt.Sprintf("%d", now-60),
					ValidBefore: fmt.Sprintf("%d", now+300),
					Nonce:       "0xf3746613c2d920b5fdabc0856f2aeb2d4f88ee6037b8cc5d04a71a4462f13480",
				},
			},
		},
	}
}

func TestVerifyAccepts(t *testing.T) {
	adapter := testAdapter(t)

	resp := adapter.Verify(context.Background(), testPayload(), testRequirements())
	assert.True(t, resp.IsValid)
	assert.Equal(t, testFrom, resp.Payer)
}

func TestVerifyShapeAndRouting(t *testing.T) {
	adapter := testAdapter(t)

	tests := []struct {
		name   string
		mutate func(p *types.PaymentPayload, r *types.PaymentRequirements)
		reason string
	}{
		{
			"wrong scheme",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { r.Scheme = "stream"; p.Scheme = "stream" },
			types.ReasonInvalidNetwork,
		},
		{
			"network mismatch",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Network = constants.NetworkBase },
			types.ReasonInvalidNetwork,
		},
		{
			"no payload member",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Evm = nil },
			types.ReasonInvalidPayload,
		},
		{
			"no authorization",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Evm.Authorization = nil },
			types.ReasonInvalidPayload,
		},
		{
			"missing value",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Evm.Authorization.Value = "" },
			types.ReasonInvalidPayload,
		},
		{
			"malformed from address",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Evm.Authorization.From = "nonsense" },
			types.ReasonInvalidPayload,
		},
		{
			"empty signature",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Evm.Signature = "" },
			types.ReasonInvalidSignature,
		},
		{
			"truncated signature",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Evm.Signature = "0xabcd" },
			types.ReasonInvalidSignature,
		},
		{
			"non-hex signature",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) {
				p.Payload.Evm.Signature = "0x" + strings.Repeat("zz", 65)
			},
			types.ReasonInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := testPayload()
			requirements := testRequirements()
			tt.mutate(payload, requirements)

			resp := adapter.Verify(context.Background(), payload, requirements)
			assert.False(t, resp.IsValid)
			assert.Equal(t, tt.reason, resp.InvalidReason)
		})
	}
}

func TestVerifyRecipientCaseInsensitive(t *testing.T) {
	adapter := testAdapter(t)

	payload := testPayload()
	payload.Payload.Evm.Authorization.To = strings.ToLower(testTo)

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.True(t, resp.IsValid, "EIP-55 checksum casing must not matter")
}

func TestVerifyRecipientMismatch(t *testing.T) {
	adapter := testAdapter(t)

	payload := testPayload()
	payload.Payload.Evm.Authorization.To = testFrom

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonRecipientMismatch, resp.InvalidReason)
}

func TestVerifyAssetMustBeAddress(t *testing.T) {
	adapter := testAdapter(t)

	requirements := testRequirements()
	requirements.Asset = "USDC"

	resp := adapter.Verify(context.Background(), testPayload(), requirements)
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonAssetMismatch, resp.InvalidReason)
}

func TestVerifyAmountBoundaries(t *testing.T) {
	adapter := testAdapter(t)

	tests := []struct {
		value string
		valid bool
	}{
		{"1000000", true},
		{"1000001", true},
		{"999999", false},
		{"0", false},
		// Beyond uint64: string-typed big integers must still compare
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			payload := testPayload()
			payload.Payload.Evm.Authorization.Value = tt.value

			resp := adapter.Verify(context.Background(), payload, testRequirements())
			assert.Equal(t, tt.valid, resp.IsValid)
			if !tt.valid {
				assert.Equal(t, types.ReasonAmountMismatch, resp.InvalidReason)
			}
		})
	}
}

func TestVerifyAuthorizationWindow(t *testing.T) {
	adapter := testAdapter(t)
	now := time.Now().Unix()

	tests := []struct {
		name        string
		validAfter  int64
		validBefore int64
		valid       bool
	}{
		{"open window", now - 60, now + 300, true},
		{"not yet valid", now + 60, now + 300, false},
		{"already expired", now - 600, now - 60, false},
		{"expires this second", now - 60, now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := testPayload()
			payload.Payload.Evm.Authorization.ValidAfter = fmt.Sprintf("%d", tt.validAfter)
			payload.Payload.Evm.Authorization.ValidBefore = fmt.Sprintf("%d", tt.validBefore)

			resp := adapter.Verify(context.Background(), payload, testRequirements())
			assert.Equal(t, tt.valid, resp.IsValid)
			if !tt.valid {
				assert.Equal(t, types.ReasonPaymentExpired, resp.InvalidReason)
			}
		})
	}
}
