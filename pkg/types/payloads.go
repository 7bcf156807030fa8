package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExactPayload is the discriminated union carried in PaymentPayload.Payload.
// Exactly one member is set once decoded; which one is keyed by the network's
// family, never by field sniffing. A bare json.Unmarshal only captures the raw
// bytes; the codec resolves the family and populates the typed member.
type ExactPayload struct {
	Evm *ExactEvmPayload `json:"-"`
	Svm *ExactSvmPayload `json:"-"`
	Hl  *ExactHlPayload  `json:"-"`

	raw json.RawMessage
}

// Raw returns the undecoded payload bytes captured during unmarshaling.
func (p *ExactPayload) Raw() json.RawMessage {
	return p.raw
}

// SetRaw replaces the captured raw bytes. The codec clears them after the
// typed member is populated so that encode always serializes the typed form.
func (p *ExactPayload) SetRaw(raw json.RawMessage) {
	p.raw = raw
}

// UnmarshalJSON captures the payload bytes without interpreting them. The
// family is not known at this point; see codec.Decode.
func (p *ExactPayload) UnmarshalJSON(b []byte) error {
	p.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON serializes whichever union member is set. Falls back to the raw
// bytes for envelopes that were never family-decoded.
func (p ExactPayload) MarshalJSON() ([]byte, error) {
	switch {
	case p.Evm != nil:
		return json.Marshal(p.Evm)
	case p.Svm != nil:
		return json.Marshal(p.Svm)
	case p.Hl != nil:
		return json.Marshal(p.Hl)
	case len(p.raw) > 0:
		return p.raw, nil
	default:
		return nil, fmt.Errorf("payment payload has no family member set")
	}
}

// ExactEvmPayload carries an EIP-3009 TransferWithAuthorization plus its
// signature for EVM networks.
type ExactEvmPayload struct {
	// Signature is the 65-byte ECDSA signature as 0x-prefixed hex.
	Signature     string                        `json:"signature" validate:"required"`
	Authorization *ExactEvmPayloadAuthorization `json:"authorization" validate:"required"`
}

// ExactEvmPayloadAuthorization mirrors the signed EIP-3009 message. The
// uint256 fields are decimal strings so values beyond 2^53 survive encoding.
type ExactEvmPayloadAuthorization struct {
	From        string `json:"from" validate:"required"`
	To          string `json:"to" validate:"required"`
	Value       string `json:"value" validate:"required"`
	ValidAfter  string `json:"validAfter" validate:"required"`
	ValidBefore string `json:"validBefore" validate:"required"`
	Nonce       string `json:"nonce" validate:"required"`
}

// ExactSvmPayload carries a base64-serialized Solana transaction containing an
// SPL token transfer.
type ExactSvmPayload struct {
	Transaction string `json:"transaction" validate:"required"`
}

// ExactHlPayload carries a signed HyperCore action.
type ExactHlPayload struct {
	// Action is the signed action record, kept as an open map because action
	// schemas evolve server-side. Numeric values are json.Number so large
	// amounts round-trip without precision loss.
	Action map[string]interface{} `json:"action" validate:"required"`

	// Signature is either a 0x hex string or an {r,s,v} object.
	Signature HlSignature `json:"signature"`

	// Nonce is the submission nonce, a positive integer.
	Nonce uint64 `json:"nonce" validate:"required,gt=0"`

	// User optionally names the signing account when the action omits it.
	User string `json:"user,omitempty"`
}

// UnmarshalJSON decodes with json.Number enabled so amounts and timestamps in
// the action map never pass through float64.
func (p *ExactHlPayload) UnmarshalJSON(b []byte) error {
	type alias ExactHlPayload
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var a alias
	if err := dec.Decode(&a); err != nil {
		return err
	}
	*p = ExactHlPayload(a)
	return nil
}

// RSVSignature is the split-component form of a HyperCore signature.
type RSVSignature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint64 `json:"v"`
}

// HlSignature accepts a signature either as a hex string or as an {r,s,v}
// object and re-encodes it in the same form it arrived in. The facilitator
// treats it as an opaque token; validity is confirmed by the network on
// submission.
type HlSignature struct {
	Hex string
	RSV *RSVSignature
}

// IsZero reports whether no signature was provided.
func (s *HlSignature) IsZero() bool {
	return s.Hex == "" && s.RSV == nil
}

// UnmarshalJSON implements the string-or-object union.
func (s *HlSignature) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &s.Hex)
	case '{':
		s.RSV = &RSVSignature{}
		return json.Unmarshal(trimmed, s.RSV)
	default:
		return fmt.Errorf("signature must be a hex string or an {r,s,v} object")
	}
}

// MarshalJSON emits the form the signature was decoded from.
func (s HlSignature) MarshalJSON() ([]byte, error) {
	if s.RSV != nil {
		return json.Marshal(s.RSV)
	}
	return json.Marshal(s.Hex)
}
