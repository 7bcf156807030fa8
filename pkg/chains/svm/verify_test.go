package svm

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

var (
	testOwner = solana.NewWallet().PublicKey()
	testPayee = solana.NewWallet().PublicKey()
	testMint  = solana.MustPublicKeyFromBase58(constants.USDCAddressSolanaDevnet)
)

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(constants.NetworkSolanaDevnet, nil, nil)
	require.NoError(t, err)
	return adapter
}

func testRequirements() *types.PaymentRequirements {
	return &types.PaymentRequirements{
		Scheme:            constants.SchemeExact,
		Network:           constants.NetworkSolanaDevnet,
		MaxAmountRequired: "1000000",
		PayTo:             testPayee.String(),
		Asset:             testMint.String(),
		MaxTimeoutSeconds: 60,
	}
}

// buildTransaction assembles a signed-shaped transfer transaction the way a
// paying client would.
func buildTransaction(t *testing.T, amount uint64, mint, payee solana.PublicKey, signed bool) string {
	t.Helper()

	sourceATA, _, err := solana.FindAssociatedTokenAddress(testOwner, mint)
	require.NoError(t, err)
	destATA, _, err := solana.FindAssociatedTokenAddress(payee, mint)
	require.NoError(t, err)

	transfer := token.NewTransferCheckedInstruction(
		amount,
		6,
		sourceATA,
		mint,
		destATA,
		testOwner,
		[]solana.PublicKey{},
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		solana.Hash{},
		solana.TransactionPayer(testOwner),
	)
	require.NoError(t, err)

	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	if signed {
		for i := range tx.Signatures {
			tx.Signatures[i][0] = 1
		}
	}

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func testPayload(t *testing.T) *types.PaymentPayload {
	return &types.PaymentPayload{
		X402Version: constants.X402Version,
		Scheme:      constants.SchemeExact,
		Network:     constants.NetworkSolanaDevnet,
		Payload: types.ExactPayload{
			Svm: &types.ExactSvmPayload{
				Transaction: buildTransaction(t, 1_000_000, testMint, testPayee, true),
			},
		},
	}
}

func TestVerifyAccepts(t *testing.T) {
	adapter := testAdapter(t)

	resp := adapter.Verify(context.Background(), testPayload(t), testRequirements())
	assert.True(t, resp.IsValid)
	assert.Equal(t, testOwner.String(), resp.Payer, "payer is the transfer authority, not the fee payer")
}

func TestVerifyShapeAndRouting(t *testing.T) {
	adapter := testAdapter(t)

	tests := []struct {
		name   string
		mutate func(p *types.PaymentPayload, r *types.PaymentRequirements)
		reason string
	}{
		{
			"network mismatch",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Network = constants.NetworkSolana },
			types.ReasonInvalidNetwork,
		},
		{
			"no payload member",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Svm = nil },
			types.ReasonInvalidPayload,
		},
		{
			"empty transaction",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Svm.Transaction = "" },
			types.ReasonInvalidPayload,
		},
		{
			"not base64",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Svm.Transaction = "!!!" },
			types.ReasonInvalidPayload,
		},
		{
			"not a transaction",
			func(p *types.PaymentPayload, r *types.PaymentRequirements) { p.Payload.Svm.Transaction = "AQIDBAU=" },
			types.ReasonInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := testPayload(t)
			requirements := testRequirements()
			tt.mutate(payload, requirements)

			resp := adapter.Verify(context.Background(), payload, requirements)
			assert.False(t, resp.IsValid)
			assert.Equal(t, tt.reason, resp.InvalidReason)
		})
	}
}

func TestVerifyUnsignedTransaction(t *testing.T) {
	adapter := testAdapter(t)

	payload := testPayload(t)
	payload.Payload.Svm.Transaction = buildTransaction(t, 1_000_000, testMint, testPayee, false)

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonInvalidSignature, resp.InvalidReason)
}

func TestVerifyWrongRecipient(t *testing.T) {
	adapter := testAdapter(t)

	// Transfer pays a different wallet's token account
	payload := testPayload(t)
	payload.Payload.Svm.Transaction = buildTransaction(t, 1_000_000, testMint, solana.NewWallet().PublicKey(), true)

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonRecipientMismatch, resp.InvalidReason)
}

func TestVerifyWrongMint(t *testing.T) {
	adapter := testAdapter(t)

	// Right wallet, wrong token: destination is the payee's token account for
	// the transferred mint, so the asset check is what fails.
	otherMint := solana.MustPublicKeyFromBase58(constants.USDCAddressSolana)
	payload := testPayload(t)
	payload.Payload.Svm.Transaction = buildTransaction(t, 1_000_000, otherMint, testPayee, true)

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonAssetMismatch, resp.InvalidReason)
}

func TestVerifyAmountBoundaries(t *testing.T) {
	adapter := testAdapter(t)

	tests := []struct {
		name   string
		amount uint64
		valid  bool
	}{
		{"exact", 1_000_000, true},
		{"over", 1_000_001, true},
		{"under", 999_999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := testPayload(t)
			payload.Payload.Svm.Transaction = buildTransaction(t, tt.amount, testMint, testPayee, true)

			resp := adapter.Verify(context.Background(), payload, testRequirements())
			assert.Equal(t, tt.valid, resp.IsValid)
			if !tt.valid {
				assert.Equal(t, types.ReasonAmountMismatch, resp.InvalidReason)
			}
		})
	}
}

func TestVerifyNonTransferTransaction(t *testing.T) {
	adapter := testAdapter(t)

	// A structurally valid transaction without a token transfer instruction
	memo := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.Meta(testOwner).SIGNER().WRITE()},
		[]byte("hello"),
	)
	tx, err := solana.NewTransaction([]solana.Instruction{memo}, solana.Hash{}, solana.TransactionPayer(testOwner))
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	tx.Signatures[0][0] = 1
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	payload := testPayload(t)
	payload.Payload.Svm.Transaction = base64.StdEncoding.EncodeToString(raw)

	resp := adapter.Verify(context.Background(), payload, testRequirements())
	assert.False(t, resp.IsValid)
	assert.Equal(t, types.ReasonInvalidPayload, resp.InvalidReason)
}
