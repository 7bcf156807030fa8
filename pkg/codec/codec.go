// Package codec implements the x402 payment header wire format: base64 of the
// JSON-serialized payment envelope, with the opaque payload decoded per
// network family so that family-specific serialization needs (notably
// 64-bit-unsafe numeric amounts) survive a round trip.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/x402wire/facilitator/pkg/chains"
	"github.com/x402wire/facilitator/pkg/types"
)

var validate = validator.New()

// Error is a codec failure carrying a stable wire reason.
type Error struct {
	// Reason is types.ReasonUnsupportedNetwork or types.ReasonInvalidPayload.
	Reason string
	err    error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.err
}

func unsupportedNetwork(err error) *Error {
	return &Error{Reason: types.ReasonUnsupportedNetwork, err: err}
}

func invalidPayload(err error) *Error {
	return &Error{Reason: types.ReasonInvalidPayload, err: err}
}

// Encode serializes a payment payload into the transport header string. The
// active union member is resolved through the family registry; envelopes whose
// network belongs to no family are rejected rather than guessed at.
func Encode(payload *types.PaymentPayload) (string, error) {
	if payload == nil {
		return "", invalidPayload(fmt.Errorf("payload is nil"))
	}

	family, err := chains.Classify(payload.Network)
	if err != nil {
		return "", unsupportedNetwork(err)
	}
	if err := checkUnionMember(family, payload); err != nil {
		return "", invalidPayload(err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", invalidPayload(err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses a transport header string back into a typed payment payload.
// The payload member is selected by the decoded network's family and validated
// against that family's schema.
func Decode(header string) (*types.PaymentPayload, error) {
	data, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, invalidPayload(fmt.Errorf("payment header is not valid base64: %w", err))
	}

	var payload types.PaymentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, invalidPayload(fmt.Errorf("payment header is not a valid envelope: %w", err))
	}

	family, err := chains.Classify(payload.Network)
	if err != nil {
		return nil, unsupportedNetwork(err)
	}

	raw := payload.Payload.Raw()
	if len(raw) == 0 {
		return nil, invalidPayload(fmt.Errorf("envelope has no payload"))
	}

	switch family {
	case chains.FamilyEVM:
		var evm types.ExactEvmPayload
		if err := json.Unmarshal(raw, &evm); err != nil {
			return nil, invalidPayload(err)
		}
		if err := validate.Struct(&evm); err != nil {
			return nil, invalidPayload(err)
		}
		payload.Payload.Evm = &evm
	case chains.FamilySVM:
		var svm types.ExactSvmPayload
		if err := json.Unmarshal(raw, &svm); err != nil {
			return nil, invalidPayload(err)
		}
		if err := validate.Struct(&svm); err != nil {
			return nil, invalidPayload(err)
		}
		payload.Payload.Svm = &svm
	case chains.FamilyHyperliquid:
		var hl types.ExactHlPayload
		if err := json.Unmarshal(raw, &hl); err != nil {
			return nil, invalidPayload(err)
		}
		if err := validate.Struct(&hl); err != nil {
			return nil, invalidPayload(err)
		}
		payload.Payload.Hl = &hl
	}

	// Raw bytes are dropped once the typed member exists so that a re-encode
	// serializes the typed form and decode(encode(p)) == p holds.
	payload.Payload.SetRaw(nil)
	return &payload, nil
}

// checkUnionMember verifies the payload's union member matches the network's
// family; encode must never mix families.
func checkUnionMember(family chains.Family, payload *types.PaymentPayload) error {
	p := &payload.Payload
	switch family {
	case chains.FamilyEVM:
		if p.Evm == nil && len(p.Raw()) == 0 {
			return fmt.Errorf("network %s requires an EVM payload", payload.Network)
		}
		if p.Svm != nil || p.Hl != nil {
			return fmt.Errorf("payload family does not match network %s", payload.Network)
		}
	case chains.FamilySVM:
		if p.Svm == nil && len(p.Raw()) == 0 {
			return fmt.Errorf("network %s requires an SVM payload", payload.Network)
		}
		if p.Evm != nil || p.Hl != nil {
			return fmt.Errorf("payload family does not match network %s", payload.Network)
		}
	case chains.FamilyHyperliquid:
		if p.Hl == nil && len(p.Raw()) == 0 {
			return fmt.Errorf("network %s requires a Hyperliquid payload", payload.Network)
		}
		if p.Evm != nil || p.Svm != nil {
			return fmt.Errorf("payload family does not match network %s", payload.Network)
		}
	}
	return nil
}
