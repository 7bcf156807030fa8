package hyperliquid

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

// decimalsUnknown marks an unresolvable decimals exponent; amount comparison
// then falls back to raw decimal comparison.
const decimalsUnknown = -1

// Verify implements chains.ChainAdapter. Checks run in a strict order
// (shape, recipient, asset, amount, expiry) so the first failing check
// determines the reported reason.
func (a *Adapter) Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (resp *types.VerifyResponse) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic during verification", "network", a.network, "panic", r)
			resp = types.Invalid(types.ReasonInvalidPayload)
		}
	}()

	hl, reason := a.guardShape(payload, requirements)
	if reason != "" {
		return types.Invalid(reason)
	}
	action := hl.Action

	destination := actionString(action, "destination")
	if !strings.EqualFold(destination, requirements.PayTo) {
		return types.Invalid(types.ReasonRecipientMismatch)
	}

	// Token ids are compound SYMBOL:0xHEX strings, not addresses;
	// case-insensitive or partial matching would conflate distinct tokens.
	if actionString(action, "token") != requirements.Asset {
		return types.Invalid(types.ReasonAssetMismatch)
	}

	decimals := a.resolveDecimals(ctx, requirements)
	if !amountCovers(actionString(action, "amount"), decimals, requirements.MaxAmountRequired) {
		return types.Invalid(types.ReasonAmountMismatch)
	}

	actionTime, ok := actionTimeMillis(action)
	if !ok {
		// Freshness cannot be assumed for an undated action.
		return types.Invalid(types.ReasonPaymentExpired)
	}
	if expiredAt(actionTime, requirements.MaxTimeoutSeconds, time.Now().UnixMilli()) {
		return types.Invalid(types.ReasonPaymentExpired)
	}

	return types.Valid(a.resolvePayer(hl))
}

// guardShape runs the shape and routing checks shared by Verify and Settle.
// An empty reason means the payload passed.
func (a *Adapter) guardShape(payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.ExactHlPayload, string) {
	if payload == nil || requirements == nil {
		return nil, types.ReasonInvalidPayload
	}
	if requirements.Scheme != constants.SchemeExact ||
		payload.Scheme != requirements.Scheme ||
		payload.Network != requirements.Network ||
		payload.Network != a.network {
		return nil, types.ReasonInvalidNetwork
	}

	hl := payload.Payload.Hl
	if hl == nil || hl.Action == nil {
		return nil, types.ReasonInvalidPayload
	}
	for _, field := range []string{"destination", "token", "amount"} {
		if actionString(hl.Action, field) == "" {
			return nil, types.ReasonInvalidPayload
		}
	}
	if hl.Signature.IsZero() {
		return nil, types.ReasonInvalidSignature
	}
	return hl, ""
}

// resolvePayer returns the payer identity: an explicit user field on the
// payload wins over one embedded in the action.
func (a *Adapter) resolvePayer(hl *types.ExactHlPayload) string {
	if hl.User != "" {
		return hl.User
	}
	return actionString(hl.Action, "user")
}

// resolveDecimals determines the atomic-unit exponent for the required asset.
// Preference order: the decimals hint in requirements.extra, then a read-only
// token-details lookup for bare hex token ids (cached per process). Compound
// SYMBOL:0xHEX ids without a hint stay unknown.
func (a *Adapter) resolveDecimals(ctx context.Context, requirements *types.PaymentRequirements) int {
	if d, ok := requirements.ExtraDecimals(); ok {
		return d
	}

	asset := requirements.Asset
	if !strings.HasPrefix(asset, "0x") || strings.Contains(asset, ":") {
		return decimalsUnknown
	}

	if info, ok := a.cache.Get(a.network, asset); ok {
		return info.WeiDecimals
	}

	details, err := a.client.GetTokenDetails(ctx, asset)
	if err != nil {
		a.logger.Warn("token decimals lookup failed, falling back to raw amount comparison",
			"network", a.network, "asset", asset, "error", err)
		return decimalsUnknown
	}

	a.cache.Put(a.network, asset, TokenInfo{Symbol: details.Name, WeiDecimals: details.WeiDecimals})
	return details.WeiDecimals
}

// amountCovers reports whether the payload's decimal-string amount, converted
// to the same atomic base as the requirement, is at least the required amount.
// Fractional digits beyond the decimals exponent are truncated. With unknown
// decimals the comparison degrades to raw decimal comparison, which is only
// sound when both sides share a base.
func amountCovers(amount string, decimals int, required string) bool {
	paid, err := decimal.NewFromString(amount)
	if err != nil {
		return false
	}
	want, err := decimal.NewFromString(required)
	if err != nil {
		return false
	}
	if decimals != decimalsUnknown {
		paid = paid.Shift(int32(decimals)).Truncate(0)
	}
	return paid.Cmp(want) >= 0
}

// expiredAt reports whether an action timestamped actionTime (milliseconds)
// has outlived its timeout at nowMillis. The deadline itself still passes;
// expiry begins one millisecond after it.
func expiredAt(actionTime int64, timeoutSeconds int, nowMillis int64) bool {
	return actionTime+int64(timeoutSeconds)*1000 < nowMillis
}

// actionTimeMillis extracts the action's millisecond timestamp. A missing or
// non-numeric time fails: freshness cannot be assumed.
func actionTimeMillis(action map[string]interface{}) (int64, bool) {
	switch v := action["time"].(type) {
	case json.Number:
		t, err := v.Int64()
		return t, err == nil
	case float64:
		return int64(v), true
	case string:
		t, err := strconv.ParseInt(v, 10, 64)
		return t, err == nil
	default:
		return 0, false
	}
}
