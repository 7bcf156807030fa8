package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/x402wire/facilitator/pkg/constants"
)

// errReceiptNotFound marks a pending or unknown transaction. Callers retry on
// it; every other lookup error is a transport fault.
var errReceiptNotFound = errors.New("receipt not found")

// authorizationStateABI is the read-only EIP-3009 replay-state query.
const authorizationStateABI = `[{"inputs":[{"internalType":"address","name":"authorizer","type":"address"},{"internalType":"bytes32","name":"nonce","type":"bytes32"}],"name":"authorizationState","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"}]`

// RPCClient performs read-only EVM RPC operations with endpoint failover.
type RPCClient struct {
	network   string
	endpoints []string
}

// NewRPCClient creates an EVM RPC client over the given endpoints.
func NewRPCClient(network string, endpoints []string) *RPCClient {
	return &RPCClient{
		network:   network,
		endpoints: endpoints,
	}
}

// GetTransactionReceipt fetches a transaction receipt, cycling through
// endpoints with a random start for load balancing. A pending transaction
// returns errReceiptNotFound.
func (r *RPCClient) GetTransactionReceipt(ctx context.Context, txHash string) (*ethtypes.Receipt, error) {
	if len(r.endpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints available for network %s", r.network)
	}

	startIdx := rand.Intn(len(r.endpoints))
	var lastErr error

	for i := 0; i < len(r.endpoints); i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*constants.DelayBetweenRPCCalls) * time.Millisecond)
		}

		endpoint := r.endpoints[(startIdx+i)%len(r.endpoints)]
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			lastErr = err
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, constants.ReceiptLookupTimeout)
		receipt, err := patchedTransactionReceipt(callCtx, client, common.HexToHash(txHash))
		client.Close()
		cancel()

		if err != nil {
			if errors.Is(err, errReceiptNotFound) {
				return nil, err
			}
			lastErr = err
			continue
		}
		return receipt, nil
	}

	return nil, fmt.Errorf("all RPC endpoints failed for network %s: %w", r.network, lastErr)
}

// IsAuthorizationUsed reports whether an EIP-3009 nonce has already been
// consumed on the token contract for the given authorizer.
func (r *RPCClient) IsAuthorizationUsed(ctx context.Context, authorizer, nonce, asset string) (bool, error) {
	if nonce == "" {
		return false, fmt.Errorf("nonce not found in payment payload")
	}

	parsedABI, err := abi.JSON(strings.NewReader(authorizationStateABI))
	if err != nil {
		return false, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	data, err := parsedABI.Pack("authorizationState", common.HexToAddress(authorizer), common.HexToHash(nonce))
	if err != nil {
		return false, fmt.Errorf("failed to pack function call: %w", err)
	}

	result, err := r.callContract(ctx, asset, common.Bytes2Hex(data))
	if err != nil {
		return false, fmt.Errorf("contract call failed: %w", err)
	}

	var isUsed bool
	err = parsedABI.UnpackIntoInterface(&isUsed, "authorizationState", common.Hex2Bytes(strings.TrimPrefix(result, "0x")))
	if err != nil {
		return false, fmt.Errorf("failed to decode contract call result: %w", err)
	}
	return isUsed, nil
}

// callContract makes an eth_call with endpoint failover.
func (r *RPCClient) callContract(ctx context.Context, contractAddress, data string) (string, error) {
	if len(r.endpoints) == 0 {
		return "", fmt.Errorf("no RPC endpoints available for network %s", r.network)
	}

	startIdx := rand.Intn(len(r.endpoints))
	var lastErr error

	for i := 0; i < len(r.endpoints); i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*constants.DelayBetweenRPCCalls) * time.Millisecond)
		}

		endpoint := r.endpoints[(startIdx+i)%len(r.endpoints)]
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			lastErr = err
			continue
		}

		callData := data
		if !strings.HasPrefix(data, "0x") {
			callData = "0x" + data
		}
		msg := map[string]interface{}{
			"to":   contractAddress,
			"data": callData,
		}

		callCtx, cancel := context.WithTimeout(ctx, constants.ReceiptLookupTimeout)
		var result string
		err = client.Client().CallContext(callCtx, &result, "eth_call", msg, "latest")
		client.Close()
		cancel()

		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	return "", fmt.Errorf("all RPC endpoints failed for network %s: %w", r.network, lastErr)
}

// patchedTransactionReceipt gets a receipt via raw JSON-RPC. Some networks
// attach a non-standard blockTimestamp field to logs that go-ethereum's
// receipt type rejects, so the raw response is cleaned before decoding.
func patchedTransactionReceipt(ctx context.Context, client *ethclient.Client, txHash common.Hash) (*ethtypes.Receipt, error) {
	var raw json.RawMessage
	err := client.Client().CallContext(ctx, &raw, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, errReceiptNotFound
	}

	cleaned, err := stripBlockTimestampFromLogs(raw)
	if err != nil {
		return nil, err
	}

	var receipt ethtypes.Receipt
	if err := json.Unmarshal(cleaned, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func stripBlockTimestampFromLogs(raw json.RawMessage) ([]byte, error) {
	var receiptMap map[string]interface{}
	if err := json.Unmarshal(raw, &receiptMap); err != nil {
		return nil, err
	}

	logs, ok := receiptMap["logs"].([]interface{})
	if ok {
		for _, log := range logs {
			if logMap, ok := log.(map[string]interface{}); ok {
				delete(logMap, "blockTimestamp")
			}
		}
	}

	return json.Marshal(receiptMap)
}
