package svm

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/types"
)

// transferCheckedOpcode is the SPL Token instruction discriminator for
// TransferChecked.
const transferCheckedOpcode = 12

// transferChecked is the decoded payment-carrying instruction.
type transferChecked struct {
	Source      solana.PublicKey
	Mint        solana.PublicKey
	Destination solana.PublicKey
	Owner       solana.PublicKey
	Amount      uint64
	Decimals    uint8
}

// Verify implements chains.ChainAdapter. Checks run in a strict order
// (shape, recipient, asset, amount) so the first failing check determines
// the reported reason. Freshness needs no explicit TTL check: the recent
// blockhash inside the transaction bounds its lifetime on-chain.
func (a *Adapter) Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (resp *types.VerifyResponse) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic during verification", "network", a.network, "panic", r)
			resp = types.Invalid(types.ReasonInvalidPayload)
		}
	}()

	tx, reason := a.guardShape(payload, requirements)
	if reason != "" {
		return types.Invalid(reason)
	}

	transfer, err := extractTransferChecked(tx)
	if err != nil {
		return types.Invalid(types.ReasonInvalidPayload)
	}

	// payTo names a wallet; the transfer lands on its associated token
	// account for the transferred mint.
	payTo, err := solana.PublicKeyFromBase58(requirements.PayTo)
	if err != nil {
		return types.Invalid(types.ReasonRecipientMismatch)
	}
	expectedATA, _, err := solana.FindAssociatedTokenAddress(payTo, transfer.Mint)
	if err != nil || !transfer.Destination.Equals(expectedATA) {
		return types.Invalid(types.ReasonRecipientMismatch)
	}

	requiredMint, err := solana.PublicKeyFromBase58(requirements.Asset)
	if err != nil || !transfer.Mint.Equals(requiredMint) {
		return types.Invalid(types.ReasonAssetMismatch)
	}

	required, err := strconv.ParseUint(requirements.MaxAmountRequired, 10, 64)
	if err != nil || transfer.Amount < required {
		return types.Invalid(types.ReasonAmountMismatch)
	}

	return types.Valid(transfer.Owner.String())
}

// guardShape runs the shape and routing checks shared by Verify and Settle.
// An empty reason means the payload passed and tx holds the decoded
// transaction.
func (a *Adapter) guardShape(payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*solana.Transaction, string) {
	if payload == nil || requirements == nil {
		return nil, types.ReasonInvalidPayload
	}
	if requirements.Scheme != constants.SchemeExact ||
		payload.Scheme != requirements.Scheme ||
		payload.Network != requirements.Network ||
		payload.Network != a.network {
		return nil, types.ReasonInvalidNetwork
	}

	svm := payload.Payload.Svm
	if svm == nil || svm.Transaction == "" {
		return nil, types.ReasonInvalidPayload
	}

	raw, err := base64.StdEncoding.DecodeString(svm.Transaction)
	if err != nil {
		return nil, types.ReasonInvalidPayload
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, types.ReasonInvalidPayload
	}

	signed := false
	for _, sig := range tx.Signatures {
		if !sig.IsZero() {
			signed = true
			break
		}
	}
	if !signed {
		return nil, types.ReasonInvalidSignature
	}
	return tx, ""
}

// extractTransferChecked finds the first SPL Token TransferChecked
// instruction in the transaction and decodes its accounts and amount.
func extractTransferChecked(tx *solana.Transaction) (*transferChecked, error) {
	keys := tx.Message.AccountKeys

	for _, inst := range tx.Message.Instructions {
		if int(inst.ProgramIDIndex) >= len(keys) {
			continue
		}
		program := keys[inst.ProgramIDIndex]
		if !program.Equals(solana.TokenProgramID) && !program.Equals(solana.Token2022ProgramID) {
			continue
		}
		if len(inst.Data) < 10 || inst.Data[0] != transferCheckedOpcode {
			continue
		}
		// TransferChecked accounts: source, mint, destination, owner.
		if len(inst.Accounts) < 4 {
			continue
		}

		accounts := make([]solana.PublicKey, 4)
		ok := true
		for i := 0; i < 4; i++ {
			idx := int(inst.Accounts[i])
			if idx >= len(keys) {
				ok = false
				break
			}
			accounts[i] = keys[idx]
		}
		if !ok {
			continue
		}

		return &transferChecked{
			Source:      accounts[0],
			Mint:        accounts[1],
			Destination: accounts[2],
			Owner:       accounts[3],
			Amount:      binary.LittleEndian.Uint64(inst.Data[1:9]),
			Decimals:    inst.Data[9],
		}, nil
	}

	return nil, fmt.Errorf("no token transfer instruction found")
}
