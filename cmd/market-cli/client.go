package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"escrowmarket/core/types"
	"escrowmarket/rpc"
)

const timeout = 15 * time.Second

type rpcClient struct {
	endpoint string
	http     *http.Client
}

func newRPCClient(endpoint string) *rpcClient {
	return &rpcClient{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// callError is a JSON-RPC error returned by the node.
type callError struct {
	Code    int
	Message string
	Reason  string
}

func (e *callError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s, code %d)", e.Message, e.Reason, e.Code)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpc.RPCError   `json:"error"`
}

// call invokes method with a single parameter object and decodes the result
// into out. param and out may be nil.
func (c *rpcClient) call(method string, param interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if param != nil {
		payload["params"] = []interface{}{param}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", method, err)
	}
	// nolint
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var envelope rpcEnvelope
	if err := json.Unmarshal(buf, &envelope); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if envelope.Error != nil {
		reason, _ := envelope.Error.Data.(string)
		return &callError{Code: envelope.Error.Code, Message: envelope.Error.Message, Reason: reason}
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

func (c *rpcClient) submit(group types.Group) (*rpc.SubmitGroupResult, error) {
	var out rpc.SubmitGroupResult
	if err := c.call("market_submitGroup", rpc.SubmitGroupParams{Transactions: group}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *rpcClient) account(address string, asset *uint64) (*rpc.AccountResult, error) {
	var out rpc.AccountResult
	if err := c.call("market_account", rpc.AccountParams{Address: address, Asset: asset}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// marketInfo is the subset of market_stats the CLI needs to build groups.
type marketInfo struct {
	Config rpc.MarketConfigResult `json:"config"`
}

func (c *rpcClient) marketConfig() (*rpc.MarketConfigResult, error) {
	var out marketInfo
	if err := c.call("market_stats", nil, &out); err != nil {
		return nil, err
	}
	return &out.Config, nil
}

func (c *rpcClient) asset(id uint64) (*rpc.AssetResult, error) {
	var out rpc.AssetResult
	if err := c.call("market_asset", rpc.AssetParams{Asset: id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
