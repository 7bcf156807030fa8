package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/x402wire/facilitator/pkg/types"
	"github.com/x402wire/facilitator/pkg/utils"
)

// Client talks to a HyperCore-style chain through its two public endpoints:
// the info endpoint (read: token details, transaction details, account
// history) and the exchange endpoint (write: signed action submission).
type Client struct {
	infoURL     string
	exchangeURL string
	http        *http.Client
}

// NewClient creates a Hyperliquid API client.
func NewClient(infoURL, exchangeURL string) *Client {
	return &Client{
		infoURL:     infoURL,
		exchangeURL: exchangeURL,
		http:        utils.NewHTTPClient(),
	}
}

// ExchangeResponse is the submission acknowledgment from the exchange
// endpoint. Success is signaled by Status == "ok", not by HTTP 2xx alone.
type ExchangeResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// OK reports whether the exchange accepted the action.
func (r *ExchangeResponse) OK() bool {
	return r != nil && r.Status == "ok"
}

// TxHash extracts a transaction identifier from the acknowledgment if one is
// present. The exchange is inconsistent about where (and whether) it reports
// one, so response.txHash, txHash and hash are all tried.
func (r *ExchangeResponse) TxHash() string {
	if r == nil || len(r.Response) == 0 {
		return ""
	}
	var body map[string]interface{}
	if err := json.Unmarshal(r.Response, &body); err != nil {
		return ""
	}
	for _, key := range []string{"txHash", "hash"} {
		if h, ok := body[key].(string); ok && h != "" {
			return h
		}
	}
	if inner, ok := body["response"].(map[string]interface{}); ok {
		for _, key := range []string{"txHash", "hash"} {
			if h, ok := inner[key].(string); ok && h != "" {
				return h
			}
		}
	}
	return ""
}

// SubmitAction posts a signed action to the exchange endpoint. The signature
// is forwarded in whichever form it arrived (hex string or {r,s,v}); it is
// never interpreted locally.
func (c *Client) SubmitAction(ctx context.Context, action map[string]interface{}, signature types.HlSignature, nonce uint64) (*ExchangeResponse, error) {
	request := map[string]interface{}{
		"action":    action,
		"signature": signature,
		"nonce":     nonce,
	}

	var resp ExchangeResponse
	if err := utils.HTTPRequest(ctx, c.http, http.MethodPost, c.exchangeURL, request, nil, &resp); err != nil {
		return nil, fmt.Errorf("exchange submission failed: %w", err)
	}
	return &resp, nil
}

// TxDetails describes one confirmed transaction.
type TxDetails struct {
	Hash   string                 `json:"hash"`
	Time   int64                  `json:"time"`
	User   string                 `json:"user"`
	Action map[string]interface{} `json:"action"`
	Error  string                 `json:"error,omitempty"`
}

// txDetailsEnvelope wraps the info endpoint's txDetails reply.
type txDetailsEnvelope struct {
	Type  string     `json:"type"`
	Tx    *TxDetails `json:"tx"`
	Error string     `json:"error,omitempty"`
}

// GetTxDetails looks up a transaction by hash on the info endpoint.
func (c *Client) GetTxDetails(ctx context.Context, hash string) (*TxDetails, error) {
	request := map[string]interface{}{
		"type": "txDetails",
		"hash": hash,
	}

	var envelope txDetailsEnvelope
	if err := utils.HTTPRequest(ctx, c.http, http.MethodPost, c.infoURL, request, nil, &envelope); err != nil {
		return nil, fmt.Errorf("txDetails lookup failed: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("txDetails lookup failed: %s", envelope.Error)
	}
	if envelope.Tx == nil {
		return nil, fmt.Errorf("transaction not found: %s", hash)
	}
	return envelope.Tx, nil
}

// IsNotFound reports whether a lookup error carries a "not found" signal.
// Such lookups will never succeed, so confirmation polling short-circuits.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}

// userDetailsEnvelope wraps the info endpoint's userDetails reply.
type userDetailsEnvelope struct {
	Type string      `json:"type"`
	Txs  []TxDetails `json:"txs"`
}

// GetUserTransactions fetches the recent transaction history of an account,
// newest entries included. Used only for settlement match-and-confirm.
func (c *Client) GetUserTransactions(ctx context.Context, user string) ([]TxDetails, error) {
	request := map[string]interface{}{
		"type": "userDetails",
		"user": user,
	}

	var envelope userDetailsEnvelope
	if err := utils.HTTPRequest(ctx, c.http, http.MethodPost, c.infoURL, request, nil, &envelope); err != nil {
		return nil, fmt.Errorf("userDetails lookup failed: %w", err)
	}
	return envelope.Txs, nil
}

// TokenDetails describes a spot token as reported by the info endpoint.
type TokenDetails struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	WeiDecimals int    `json:"weiDecimals"`
}

// GetTokenDetails resolves token metadata for a bare hex token id.
func (c *Client) GetTokenDetails(ctx context.Context, tokenID string) (*TokenDetails, error) {
	request := map[string]interface{}{
		"type":    "tokenDetails",
		"tokenId": tokenID,
	}

	var details TokenDetails
	if err := utils.HTTPRequest(ctx, c.http, http.MethodPost, c.infoURL, request, nil, &details); err != nil {
		return nil, fmt.Errorf("tokenDetails lookup failed: %w", err)
	}
	if details.Name == "" {
		return nil, fmt.Errorf("token not found: %s", tokenID)
	}
	return &details, nil
}

// actionString reads a string-valued field out of an action map, tolerating
// json.Number and float64 for numeric-looking fields.
func actionString(action map[string]interface{}, key string) string {
	if action == nil {
		return ""
	}
	switch v := action[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		// 'f' keeps millisecond timestamps out of scientific notation.
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
