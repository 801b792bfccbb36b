package jupiter

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// RouteQuote is the canonical quote shape used by every component past
// this package. External responses are mapped into it at the edge, no
// other package branches on the quote service's schema.
type RouteQuote struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	InAmount   uint64
	OutAmount  uint64
	// PriceImpact is a fraction, 0.005 means 0.5%.
	PriceImpact float64
	Venues      []string
	Raw         json.RawMessage
}

type RoutesResult struct {
	Routes []*RouteQuote
}

// Best returns the top route or nil. An empty result is a valid
// no-liquidity answer, not an error.
func (rr *RoutesResult) Best() *RouteQuote {
	if rr == nil || len(rr.Routes) == 0 {
		return nil
	}
	return rr.Routes[0]
}

// flexUint accepts both string and number encodings of an amount.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexUint(v)
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type rawMarket struct {
	Label string `json:"label"`
	Id    string `json:"id"`
}

type rawPlanStep struct {
	SwapInfo rawMarket `json:"swapInfo"`
}

// rawRoute carries every field spelling the service has been seen to
// use for the same quantity.
type rawRoute struct {
	InputMint      string        `json:"inputMint"`
	OutputMint     string        `json:"outputMint"`
	InAmount       flexUint      `json:"inAmount"`
	InputAmount    flexUint      `json:"inputAmount"`
	AmountIn       flexUint      `json:"amountIn"`
	OutAmount      flexUint      `json:"outAmount"`
	OutputAmount   flexUint      `json:"outputAmount"`
	AmountOut      flexUint      `json:"amountOut"`
	PriceImpactPct flexFloat     `json:"priceImpactPct"`
	PriceImpact    flexFloat     `json:"priceImpact"`
	MarketInfos    []rawMarket   `json:"marketInfos"`
	RoutePlan      []rawPlanStep `json:"routePlan"`
}

func firstUint(vs ...flexUint) uint64 {
	for _, v := range vs {
		if v != 0 {
			return uint64(v)
		}
	}
	return 0
}

// normalize maps one external route payload into the canonical shape.
// Price impact arrives in percent units and is stored as a fraction.
func normalize(data json.RawMessage, in, out solana.PublicKey, amount uint64) (*RouteQuote, error) {
	var raw rawRoute
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	quote := &RouteQuote{
		InputMint:  in,
		OutputMint: out,
		InAmount:   firstUint(raw.InAmount, raw.InputAmount, raw.AmountIn),
		OutAmount:  firstUint(raw.OutAmount, raw.OutputAmount, raw.AmountOut),
		Raw:        data,
	}
	if quote.InAmount == 0 {
		quote.InAmount = amount
	}
	if raw.InputMint != "" {
		if key, err := solana.PublicKeyFromBase58(raw.InputMint); err == nil {
			quote.InputMint = key
		}
	}
	if raw.OutputMint != "" {
		if key, err := solana.PublicKeyFromBase58(raw.OutputMint); err == nil {
			quote.OutputMint = key
		}
	}
	impact := float64(raw.PriceImpactPct)
	if impact == 0 {
		impact = float64(raw.PriceImpact)
	}
	quote.PriceImpact = impact / 100
	for _, market := range raw.MarketInfos {
		label := market.Label
		if label == "" {
			label = market.Id
		}
		if label != "" {
			quote.Venues = append(quote.Venues, label)
		}
	}
	for _, step := range raw.RoutePlan {
		if step.SwapInfo.Label != "" {
			quote.Venues = append(quote.Venues, step.SwapInfo.Label)
		}
	}
	return quote, nil
}
