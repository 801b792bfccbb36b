package jito

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const SendTimeout = 5 * time.Second

// Client posts bundles to a relay speaking the JSON-RPC sendBundle
// method. An empty url means the fast path is disabled.
type Client struct {
	url         string
	priorityFee uint64
	client      *http.Client
}

func NewClient(url string, priorityFee uint64) *Client {
	return &Client{
		url:         url,
		priorityFee: priorityFee,
		client:      &http.Client{},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// PriorityFee returns the configured override in lamports, 0 lets the
// network estimate.
func (c *Client) PriorityFee() uint64 {
	if c == nil {
		return 0
	}
	return c.priorityFee
}

type rpcRequest struct {
	JsonRpc string        `json:"jsonrpc"`
	Id      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// SendBundle submits signed transactions as one bundle and returns the
// bundle id. Every failure mode is an error, the caller falls back to
// raw broadcast.
func (c *Client) SendBundle(ctx context.Context, signedTxs [][]byte) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("no bundle relay configured")
	}
	encoded := make([]string, 0, len(signedTxs))
	for _, tx := range signedTxs {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(tx))
	}
	requestJson, err := json.Marshal(&rpcRequest{
		JsonRpc: "2.0",
		Id:      "1",
		Method:  "sendBundle",
		Params:  []interface{}{encoded},
	})
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, "POST", c.url, bytes.NewReader(requestJson))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("relay error %d: %s", resp.StatusCode, string(body))
	}
	var response rpcResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("relay response malformed: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("relay error: %s", response.Error.Message)
	}
	var bundleId string
	if err := json.Unmarshal(response.Result, &bundleId); err != nil || bundleId == "" {
		return "", fmt.Errorf("relay returned no bundle id")
	}
	return bundleId, nil
}
