package evm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

// transferWithAuthorizationABI is the EIP-3009 relay entry point on the token
// contract. The facilitator pays gas; the authorization signature moves the
// funds.
const transferWithAuthorizationABI = `[{"inputs":[{"internalType":"address","name":"from","type":"address"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},{"internalType":"uint256","name":"validAfter","type":"uint256"},{"internalType":"uint256","name":"validBefore","type":"uint256"},{"internalType":"bytes32","name":"nonce","type":"bytes32"},{"internalType":"uint8","name":"v","type":"uint8"},{"internalType":"bytes32","name":"r","type":"bytes32"},{"internalType":"bytes32","name":"s","type":"bytes32"}],"name":"transferWithAuthorization","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

// Settle implements chains.ChainAdapter. The authorization is packed into
// transferWithAuthorization calldata and relayed through the injected
// TxSender, then the receipt is polled with a fixed retry budget. The
// submission is never retried: the nonce makes it one-shot and a resubmission
// after an ambiguous failure risks a duplicate relay fee.
func (a *Adapter) Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (resp *types.SettleResponse) {
	defer func() {
		// Callers never see a raw transport fault.
		if r := recover(); r != nil {
			a.logger.Error("panic during settlement", "network", a.network, "panic", r)
			resp = types.SettleFailure(a.network, "", "", types.ReasonExchangeError)
		}
	}()

	evm, reason := a.guardShape(payload, requirements)
	if reason != "" {
		return types.SettleFailure(a.network, "", "", reason)
	}
	auth := evm.Authorization
	payer := auth.From

	if a.sender == nil {
		a.logger.Error("no transaction sender configured", "network", a.network)
		return types.SettleFailure(a.network, "", payer, types.ReasonExchangeError)
	}

	// Replay pre-check. A consumed nonce means the transfer already happened
	// under some earlier submission; reporting success for it here would need
	// the original transaction id, which we do not have.
	used, err := a.rpc.IsAuthorizationUsed(ctx, auth.From, auth.Nonce, requirements.Asset)
	if err != nil {
		a.logger.Warn("authorization state lookup failed, proceeding with submission",
			"network", a.network, "error", err)
	} else if used {
		a.logger.Error("authorization nonce already used", "network", a.network, "payer", payer)
		return types.SettleFailure(a.network, "", payer, types.ReasonExchangeError)
	}

	calldata, err := packTransferWithAuthorization(auth, evm.Signature)
	if err != nil {
		a.logger.Error("failed to pack authorization calldata", "network", a.network, "error", err)
		return types.SettleFailure(a.network, "", payer, types.ReasonInvalidPayload)
	}

	submitCtx, cancel := context.WithTimeout(ctx, constants.SubmitTimeout)
	txHash, err := a.sender.SignAndSend(submitCtx, a.network, a.chainID, requirements.Asset, calldata)
	cancel()
	if err != nil {
		a.logger.Error("transaction submission failed", "network", a.network, "error", err)
		return types.SettleFailure(a.network, "", payer, types.ReasonExchangeError)
	}

	return a.confirm(ctx, txHash, payer)
}

// confirm polls for the transaction receipt until it lands, reverts, or the
// retry budget runs out. Fixed attempt count, fixed delay, no backoff.
func (a *Adapter) confirm(ctx context.Context, txHash, payer string) *types.SettleResponse {
	var lastErr error
	for attempt := 0; attempt < constants.ConfirmMaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(constants.ConfirmRetryDelay)
		}

		receipt, err := a.rpc.GetTransactionReceipt(ctx, txHash)
		if err != nil {
			// A pending transaction has no receipt yet; keep polling.
			lastErr = err
			continue
		}

		if receipt.Status != ethtypes.ReceiptStatusSuccessful {
			a.logger.Error("transaction reverted", "network", a.network, "tx", txHash)
			return types.SettleFailure(a.network, txHash, payer, types.ReasonExchangeError)
		}
		return types.Settled(a.network, txHash, payer)
	}

	a.logger.Warn("confirmation retries exhausted",
		"network", a.network, "tx", txHash, "attempts", constants.ConfirmMaxAttempts, "error", lastErr)
	return types.SettleFailure(a.network, txHash, payer, types.ReasonTxUnconfirmed)
}

// packTransferWithAuthorization builds the calldata relaying an EIP-3009
// authorization. The 65-byte signature splits into r, s, v; a recovery-id v
// of 0/1 is lifted to the contract's expected 27/28.
func packTransferWithAuthorization(auth *types.ExactEvmPayloadAuthorization, signature string) ([]byte, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != 65 {
		return nil, fmt.Errorf("malformed signature")
	}

	value, ok := new(big.Int).SetString(auth.Value, 10)
	if !ok {
		return nil, fmt.Errorf("malformed value %q", auth.Value)
	}
	validAfter, ok := new(big.Int).SetString(auth.ValidAfter, 10)
	if !ok {
		return nil, fmt.Errorf("malformed validAfter %q", auth.ValidAfter)
	}
	validBefore, ok := new(big.Int).SetString(auth.ValidBefore, 10)
	if !ok {
		return nil, fmt.Errorf("malformed validBefore %q", auth.ValidBefore)
	}

	var r, s [32]byte
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	v := sig[64]
	if v < 27 {
		v += 27
	}

	parsedABI, err := abi.JSON(strings.NewReader(transferWithAuthorizationABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	return parsedABI.Pack("transferWithAuthorization",
		common.HexToAddress(auth.From),
		common.HexToAddress(auth.To),
		value,
		validAfter,
		validBefore,
		common.HexToHash(auth.Nonce),
		v,
		r,
		s,
	)
}

// IsReceiptNotFound reports whether an error marks a pending or unknown
// transaction rather than a transport fault.
func IsReceiptNotFound(err error) bool {
	return errors.Is(err, errReceiptNotFound)
}
