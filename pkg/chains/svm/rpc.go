package svm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/utils"
)

// errTxNotFound marks a signature the cluster does not know yet. Callers
// retry on it; every other lookup error is a transport fault.
var errTxNotFound = errors.New("transaction not found")

// RPCClient performs SVM JSON-RPC operations with endpoint failover.
type RPCClient struct {
	network   string
	endpoints []string
	client    *http.Client
}

// NewRPCClient creates an SVM RPC client over the given endpoints.
func NewRPCClient(network string, endpoints []string) *RPCClient {
	return &RPCClient{
		network:   network,
		endpoints: endpoints,
		client:    utils.NewHTTPClient(),
	}
}

type jsonrpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonrpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *jsonrpcError `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// transactionStatus is the subset of getTransaction needed to judge whether
// a broadcast transaction landed.
type transactionStatus struct {
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err interface{} `json:"err"`
	} `json:"meta"`
}

// Landed reports whether the transaction was included without a runtime
// error.
func (s *transactionStatus) Landed() bool {
	return s.Meta != nil && s.Meta.Err == nil
}

// SendTransaction broadcasts a base64-serialized signed transaction and
// returns its signature. Preflight stays enabled so an obviously invalid
// transaction is rejected at submission rather than silently dropped.
func (r *RPCClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendTransaction",
		Params: []interface{}{
			txBase64,
			map[string]interface{}{"encoding": "base64"},
		},
	}

	var signature string
	if err := r.call(ctx, constants.SubmitTimeout, req, &signature); err != nil {
		return "", err
	}
	if signature == "" {
		return "", fmt.Errorf("empty signature in sendTransaction response")
	}
	return signature, nil
}

// GetTransaction fetches the inclusion status of a signature. A signature
// the cluster does not know returns errTxNotFound.
func (r *RPCClient) GetTransaction(ctx context.Context, signature string) (*transactionStatus, error) {
	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getTransaction",
		Params: []interface{}{
			signature,
			map[string]interface{}{
				"encoding":                       "json",
				"maxSupportedTransactionVersion": 0,
			},
		},
	}

	var status *transactionStatus
	if err := r.call(ctx, constants.ReceiptLookupTimeout, req, &status); err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("%w: %s", errTxNotFound, signature)
	}
	return status, nil
}

// call issues a JSON-RPC request, cycling through endpoints with a random
// start for load balancing and decoding the result into out.
func (r *RPCClient) call(ctx context.Context, timeout time.Duration, req jsonrpcRequest, out interface{}) error {
	if len(r.endpoints) == 0 {
		return fmt.Errorf("no RPC endpoints available for network %s", r.network)
	}

	startIdx := rand.Intn(len(r.endpoints))
	var lastErr error

	for i := 0; i < len(r.endpoints); i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*constants.DelayBetweenRPCCalls) * time.Millisecond)
		}

		endpoint := r.endpoints[(startIdx+i)%len(r.endpoints)]

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err := r.callOnce(callCtx, endpoint, req, out)
		cancel()

		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("all RPC endpoints failed for network %s: %w", r.network, lastErr)
}

func (r *RPCClient) callOnce(ctx context.Context, endpoint string, req jsonrpcRequest, out interface{}) error {
	var resp jsonrpcResponse
	resp.Result = out

	err := utils.HTTPRequest(ctx, r.client, http.MethodPost, endpoint, req,
		map[string]string{"Content-Type": "application/json"}, &resp)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("RPC error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}

// IsTxNotFound reports whether an error marks an unknown signature rather
// than a transport fault.
func IsTxNotFound(err error) bool {
	return errors.Is(err, errTxNotFound)
}
