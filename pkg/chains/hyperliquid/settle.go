package hyperliquid

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

// Settle implements chains.ChainAdapter. The pipeline is strictly sequential:
// submit, locate the transaction in account history when the acknowledgment
// omits its id, then poll the detail lookup with a fixed retry budget. The
// submission itself is never retried: it is not idempotent and a resubmission
// risks a duplicate transfer.
func (a *Adapter) Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (resp *types.SettleResponse) {
	defer func() {
		// Callers never see a raw transport fault.
		if r := recover(); r != nil {
			a.logger.Error("panic during settlement", "network", a.network, "panic", r)
			resp = types.SettleFailure(a.network, "", "", types.ReasonExchangeError)
		}
	}()

	hl, reason := a.guardShape(payload, requirements)
	if reason != "" {
		return types.SettleFailure(a.network, "", "", reason)
	}
	payer := a.resolvePayer(hl)

	ack, err := a.client.SubmitAction(ctx, hl.Action, hl.Signature, hl.Nonce)
	if err != nil {
		a.logger.Error("action submission failed", "network", a.network, "error", err)
		return types.SettleFailure(a.network, "", payer, types.ReasonExchangeError)
	}
	if !ack.OK() {
		a.logger.Error("exchange rejected action", "network", a.network, "status", ack.Status)
		return types.SettleFailure(a.network, ack.TxHash(), payer, types.ReasonExchangeError)
	}
	ackHash := ack.TxHash()

	// The acknowledgment may omit the transaction id. With a known payer the
	// account history is the authority: a submission that left no matching
	// trace must not be reported as settled on the strength of a
	// similar-looking transaction.
	txID := ackHash
	if payer != "" {
		match, err := a.findInHistory(ctx, payer, hl, requirements)
		if err != nil {
			a.logger.Warn("history lookup failed during settlement",
				"network", a.network, "payer", payer, "error", err)
			return types.SettleFailure(a.network, ackHash, payer, types.ReasonTxNotFound)
		}
		if match == nil {
			return types.SettleFailure(a.network, ackHash, payer, types.ReasonTxNotFound)
		}
		txID = match.Hash
	}
	if txID == "" {
		return types.SettleFailure(a.network, "", payer, types.ReasonTxNotFound)
	}

	return a.confirm(ctx, txID, payer)
}

// confirm polls the transaction detail lookup until it resolves, the id turns
// out not to exist, or the retry budget runs out. Fixed attempt count, fixed
// delay, no backoff.
func (a *Adapter) confirm(ctx context.Context, txID, payer string) *types.SettleResponse {
	var lastErr error
	for attempt := 0; attempt < constants.ConfirmMaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(constants.ConfirmRetryDelay)
		}

		details, err := a.client.GetTxDetails(ctx, txID)
		if err != nil {
			if IsNotFound(err) {
				// An id the chain does not know will never confirm.
				return types.SettleFailure(a.network, txID, payer, types.ReasonTxNotFound)
			}
			lastErr = err
			continue
		}
		if details == nil {
			continue
		}
		if details.Error != "" {
			a.logger.Error("action failed on-chain",
				"network", a.network, "tx", txID, "error", details.Error)
			return types.SettleFailure(a.network, txID, payer, types.ReasonExchangeError)
		}

		return types.Settled(a.network, txID, payer)
	}

	a.logger.Warn("confirmation retries exhausted",
		"network", a.network, "tx", txID, "attempts", constants.ConfirmMaxAttempts, "error", lastErr)
	return types.SettleFailure(a.network, txID, payer, types.ReasonTxUnconfirmed)
}

// findInHistory selects the best-matching transaction from the payer's
// history. Matching is a best-effort field comparison, not a cryptographic
// guarantee: destination, token, amount (tolerant of decimal-vs-atomic
// drift) and, when both sides carry them, chain label, action type and
// time/nonce. Among multiple matches the most recent by timestamp wins.
func (a *Adapter) findInHistory(ctx context.Context, payer string, hl *types.ExactHlPayload, requirements *types.PaymentRequirements) (*TxDetails, error) {
	history, err := a.client.GetUserTransactions(ctx, payer)
	if err != nil {
		return nil, err
	}

	decimals := a.resolveDecimals(ctx, requirements)

	var best *TxDetails
	for i := range history {
		tx := &history[i]
		if !a.matches(tx, hl, decimals) {
			continue
		}
		if best == nil || tx.Time > best.Time {
			best = tx
		}
	}
	return best, nil
}

func (a *Adapter) matches(tx *TxDetails, hl *types.ExactHlPayload, decimals int) bool {
	want := hl.Action
	got := tx.Action
	if got == nil {
		return false
	}

	if !equalFoldNonEmpty(actionString(got, "destination"), actionString(want, "destination")) {
		return false
	}
	if actionString(got, "token") != actionString(want, "token") {
		return false
	}
	if !amountsEquivalent(actionString(got, "amount"), actionString(want, "amount"), decimals) {
		return false
	}

	// Discriminator fields tighten the match when both sides carry them.
	// Numeric fields (time, nonce) may decode as floats on the history side
	// and json.Number strings on the payload side, so numeric-looking values
	// compare numerically.
	for _, field := range []string{"hyperliquidChain", "type", "time", "nonce"} {
		theirs, ours := actionString(got, field), actionString(want, field)
		if theirs != "" && ours != "" && !fieldEquivalent(theirs, ours) {
			return false
		}
	}
	return true
}

// fieldEquivalent compares two action field values, numerically when both
// parse as numbers and byte-for-byte otherwise.
func fieldEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	return errA == nil && errB == nil && da.Equal(db)
}

func equalFoldNonEmpty(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// amountsEquivalent compares two amount strings, accepting either an exact
// numeric match or a match after lifting one side by the decimals exponent,
// since history entries may report atomic units where the payload carried a
// decimal amount (or vice versa).
func amountsEquivalent(a, b string, decimals int) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA != nil || errB != nil {
		return false
	}
	if da.Equal(db) {
		return true
	}
	if decimals != decimalsUnknown {
		shift := int32(decimals)
		if da.Shift(shift).Truncate(0).Equal(db) || db.Shift(shift).Truncate(0).Equal(da) {
			return true
		}
	}
	return false
}
