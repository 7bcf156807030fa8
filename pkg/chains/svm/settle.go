package svm

import (
	"context"
	"time"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

// Settle implements chains.ChainAdapter. The signed transaction is broadcast
// exactly once, then its signature is polled with a fixed retry budget. A
// transaction that expires unbroadcast can be safely re-settled by the
// caller: the blockhash ties the signature to one inclusion at most.
func (a *Adapter) Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (resp *types.SettleResponse) {
	defer func() {
		// Callers never see a raw transport fault.
		if r := recover(); r != nil {
			a.logger.Error("panic during settlement", "network", a.network, "panic", r)
			resp = types.SettleFailure(a.network, "", "", types.ReasonExchangeError)
		}
	}()

	tx, reason := a.guardShape(payload, requirements)
	if reason != "" {
		return types.SettleFailure(a.network, "", "", reason)
	}

	transfer, err := extractTransferChecked(tx)
	if err != nil {
		return types.SettleFailure(a.network, "", "", types.ReasonInvalidPayload)
	}
	payer := transfer.Owner.String()

	signature, err := a.rpc.SendTransaction(ctx, payload.Payload.Svm.Transaction)
	if err != nil {
		a.logger.Error("transaction broadcast failed", "network", a.network, "error", err)
		return types.SettleFailure(a.network, "", payer, types.ReasonExchangeError)
	}

	return a.confirm(ctx, signature, payer)
}

// confirm polls getTransaction until the signature lands, fails on-chain, or
// the retry budget runs out. Fixed attempt count, fixed delay, no backoff.
func (a *Adapter) confirm(ctx context.Context, signature, payer string) *types.SettleResponse {
	var lastErr error
	for attempt := 0; attempt < constants.ConfirmMaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(constants.ConfirmRetryDelay)
		}

		status, err := a.rpc.GetTransaction(ctx, signature)
		if err != nil {
			// An unknown signature may simply not have propagated yet.
			lastErr = err
			continue
		}

		if !status.Landed() {
			a.logger.Error("transaction failed on-chain", "network", a.network, "tx", signature)
			return types.SettleFailure(a.network, signature, payer, types.ReasonExchangeError)
		}
		return types.Settled(a.network, signature, payer)
	}

	a.logger.Warn("confirmation retries exhausted",
		"network", a.network, "tx", signature, "attempts", constants.ConfirmMaxAttempts, "error", lastErr)
	return types.SettleFailure(a.network, signature, payer, types.ReasonTxUnconfirmed)
}
