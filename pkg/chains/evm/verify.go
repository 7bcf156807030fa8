package evm

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

// Verify implements chains.ChainAdapter. Checks run in a strict order
// (shape, recipient, asset, amount, authorization window) so the first
// failing check determines the reported reason. The signature is checked for
// shape only; the token contract rejects a forged one at settlement.
func (a *Adapter) Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (resp *types.VerifyResponse) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic during verification", "network", a.network, "panic", r)
			resp = types.Invalid(types.ReasonInvalidPayload)
		}
	}()

	evm, reason := a.guardShape(payload, requirements)
	if reason != "" {
		return types.Invalid(reason)
	}
	auth := evm.Authorization

	if !strings.EqualFold(auth.To, requirements.PayTo) {
		return types.Invalid(types.ReasonRecipientMismatch)
	}

	// The authorization binds the token through the EIP-712 signing domain,
	// so the payload carries no asset field of its own. The requirement side
	// must still name a real contract address.
	if !common.IsHexAddress(requirements.Asset) {
		return types.Invalid(types.ReasonAssetMismatch)
	}

	value, ok := new(big.Int).SetString(auth.Value, 10)
	if !ok {
		return types.Invalid(types.ReasonAmountMismatch)
	}
	required, ok := new(big.Int).SetString(requirements.MaxAmountRequired, 10)
	if !ok {
		return types.Invalid(types.ReasonAmountMismatch)
	}
	if value.Cmp(required) < 0 {
		return types.Invalid(types.ReasonAmountMismatch)
	}

	now := big.NewInt(time.Now().Unix())
	validAfter, okAfter := new(big.Int).SetString(auth.ValidAfter, 10)
	validBefore, okBefore := new(big.Int).SetString(auth.ValidBefore, 10)
	if !okAfter || !okBefore {
		return types.Invalid(types.ReasonPaymentExpired)
	}
	if validAfter.Cmp(now) > 0 || validBefore.Cmp(now) <= 0 {
		return types.Invalid(types.ReasonPaymentExpired)
	}

	return types.Valid(auth.From)
}

// guardShape runs the shape and routing checks shared by Verify and Settle.
// An empty reason means the payload passed.
func (a *Adapter) guardShape(payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.ExactEvmPayload, string) {
	if payload == nil || requirements == nil {
		return nil, types.ReasonInvalidPayload
	}
	if requirements.Scheme != constants.SchemeExact ||
		payload.Scheme != requirements.Scheme ||
		payload.Network != requirements.Network ||
		payload.Network != a.network {
		return nil, types.ReasonInvalidNetwork
	}

	evm := payload.Payload.Evm
	if evm == nil || evm.Authorization == nil {
		return nil, types.ReasonInvalidPayload
	}
	auth := evm.Authorization
	for _, field := range []string{auth.From, auth.To, auth.Value, auth.ValidAfter, auth.ValidBefore, auth.Nonce} {
		if field == "" {
			return nil, types.ReasonInvalidPayload
		}
	}
	if !common.IsHexAddress(auth.From) || !common.IsHexAddress(auth.To) {
		return nil, types.ReasonInvalidPayload
	}
	if !isSignatureShaped(evm.Signature) {
		return nil, types.ReasonInvalidSignature
	}
	return evm, ""
}

// isSignatureShaped checks for a 65-byte hex signature (r || s || v).
func isSignatureShaped(sig string) bool {
	if !strings.HasPrefix(sig, "0x") || len(sig) != 132 {
		return false
	}
	_, err := hex.DecodeString(sig[2:])
	return err == nil
}
