package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	QuoteTimeout = 8 * time.Second
	SwapTimeout  = 10 * time.Second
	Retries      = 3
)

type Client struct {
	base        string
	priorityFee uint64
	client      *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base:   base,
		client: &http.Client{},
	}
}

// SetPriorityFee makes built swaps carry a fixed prioritization fee in
// lamports. Zero lets the service estimate.
func (c *Client) SetPriorityFee(lamports uint64) {
	c.priorityFee = lamports
}

type RouteRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SlippageBps int
}

func (c *Client) get(ctx context.Context, rawUrl string, timeout time.Duration) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < Retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		req, err := http.NewRequestWithContext(callCtx, "GET", rawUrl, nil)
		if err != nil {
			cancel()
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.client.Do(req)
		if err == nil && resp.StatusCode == 200 {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			cancel()
			if err != nil {
				return nil, err
			}
			return body, nil
		}
		if err != nil {
			lastErr = err
		} else {
			resp.Body.Close()
			lastErr = fmt.Errorf("http %d %s", resp.StatusCode, resp.Status)
		}
		cancel()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond * time.Duration(attempt+1)):
		}
	}
	return nil, lastErr
}

// ComputeRoutes quotes input -> output for amount. An empty route list
// means no liquidity and is returned as such.
func (c *Client) ComputeRoutes(ctx context.Context, req *RouteRequest) (*RoutesResult, error) {
	qs := url.Values{}
	qs.Set("inputMint", req.InputMint.String())
	qs.Set("outputMint", req.OutputMint.String())
	qs.Set("amount", strconv.FormatUint(req.Amount, 10))
	qs.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	body, err := c.get(ctx, fmt.Sprintf("%s/quote?%s", c.base, qs.Encode()), QuoteTimeout)
	if err != nil {
		return nil, fmt.Errorf("computeRoutes failed: %w", err)
	}

	// The service has answered with three shapes over time: a bare
	// quote object, {routes: [...]}, and {data: [...]}.
	var envelope struct {
		Routes []json.RawMessage `json:"routes"`
		Data   []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("computeRoutes failed: %w", err)
	}
	rawRoutes := envelope.Routes
	if len(rawRoutes) == 0 {
		rawRoutes = envelope.Data
	}
	if len(rawRoutes) == 0 {
		var probe rawRoute
		if err := json.Unmarshal(body, &probe); err == nil &&
			firstUint(probe.OutAmount, probe.OutputAmount, probe.AmountOut) != 0 {
			rawRoutes = []json.RawMessage{body}
		}
	}

	result := &RoutesResult{Routes: make([]*RouteQuote, 0, len(rawRoutes))}
	for _, raw := range rawRoutes {
		quote, err := normalize(raw, req.InputMint, req.OutputMint, req.Amount)
		if err != nil {
			return nil, fmt.Errorf("computeRoutes failed: %w", err)
		}
		result.Routes = append(result.Routes, quote)
	}
	return result, nil
}

// BuildSwap materializes a route into transaction instructions for the
// signer. slippageBps overrides the quote-time tolerance when positive.
// It fails explicitly when the service returns no transaction.
func (c *Client) BuildSwap(ctx context.Context, route *RouteQuote, signer solana.PublicKey, wrapNative bool, slippageBps int) ([]solana.Instruction, error) {
	payload := map[string]interface{}{
		"quoteResponse":    route.Raw,
		"userPublicKey":    signer.String(),
		"wrapAndUnwrapSol": wrapNative,
	}
	if slippageBps > 0 {
		payload["dynamicSlippage"] = map[string]int{"maxBps": slippageBps}
	}
	if c.priorityFee > 0 {
		payload["prioritizationFeeLamports"] = c.priorityFee
	}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, SwapTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, "POST", c.base+"/swap", bytes.NewReader(payloadJson))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("buildSwap failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("buildSwap failed: http %d %s", resp.StatusCode, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var swapResponse struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(body, &swapResponse); err != nil {
		return nil, fmt.Errorf("buildSwap failed: %w", err)
	}
	if swapResponse.SwapTransaction == "" {
		return nil, fmt.Errorf("buildSwap failed: no swap transaction for route %s -> %s", route.InputMint, route.OutputMint)
	}
	trxBytes, err := base64.StdEncoding.DecodeString(swapResponse.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("buildSwap failed: %w", err)
	}
	trx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(trxBytes))
	if err != nil {
		return nil, fmt.Errorf("buildSwap failed: %w", err)
	}
	return decompile(trx)
}

// decompile turns a prepared transaction back into standalone
// instructions so two legs can be rebuilt into one transaction.
func decompile(trx *solana.Transaction) ([]solana.Instruction, error) {
	ins := make([]solana.Instruction, 0, len(trx.Message.Instructions))
	for _, compiled := range trx.Message.Instructions {
		programId, err := trx.Message.Program(compiled.ProgramIDIndex)
		if err != nil {
			return nil, err
		}
		accounts, err := compiled.ResolveInstructionAccounts(&trx.Message)
		if err != nil {
			return nil, err
		}
		ins = append(ins, solana.NewInstruction(programId, accounts, compiled.Data))
	}
	return ins, nil
}
