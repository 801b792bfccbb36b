package antiloss

import (
	"context"

	"github.com/dmarino/jupiter-arbitrage/calculator"
	"github.com/dmarino/jupiter-arbitrage/config"
	"github.com/dmarino/jupiter-arbitrage/jupiter"
)

type QuoteSource interface {
	ComputeRoutes(ctx context.Context, req *jupiter.RouteRequest) (*jupiter.RoutesResult, error)
}

// Verified holds the two freshly re-quoted legs and the strictly
// positive profit of their round trip.
type Verified struct {
	Out    *jupiter.RouteQuote
	Back   *jupiter.RouteQuote
	Profit uint64
}

// DoubleCheck re-quotes both legs with the stricter tolerance right
// before execution and confirms the round trip still beats the initial
// amount. It is the only authorization point for committing capital, a
// nil result is a normal no-op, not an error.
func DoubleCheck(ctx context.Context, source QuoteSource, pair *config.Pair, amount uint64, strictBps int, ceiling float64) (*Verified, error) {
	outResult, err := source.ComputeRoutes(ctx, &jupiter.RouteRequest{
		InputMint:   pair.Base,
		OutputMint:  pair.Quote,
		Amount:      amount,
		SlippageBps: strictBps,
	})
	if err != nil {
		return nil, err
	}
	out := outResult.Best()
	if out == nil || !calculator.Usable(out, ceiling) {
		return nil, nil
	}

	backResult, err := source.ComputeRoutes(ctx, &jupiter.RouteRequest{
		InputMint:   pair.Quote,
		OutputMint:  pair.Base,
		Amount:      out.OutAmount,
		SlippageBps: strictBps,
	})
	if err != nil {
		return nil, err
	}
	back := backResult.Best()
	if back == nil || !calculator.Usable(back, ceiling) {
		return nil, nil
	}

	// real profit only: final amount must strictly beat the input
	if back.OutAmount <= amount {
		return nil, nil
	}
	return &Verified{
		Out:    out,
		Back:   back,
		Profit: back.OutAmount - amount,
	}, nil
}
