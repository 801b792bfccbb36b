package calculator

import (
	"fmt"

	"github.com/dmarino/jupiter-arbitrage/jupiter"
)

// DefaultImpactCeiling is the fraction above which a route is unusable,
// 0.005 = 0.5%.
const DefaultImpactCeiling = 0.005

// Usable reports whether a route's price impact stays under the
// ceiling. Routes above it are excluded before profit is computed.
func Usable(route *jupiter.RouteQuote, ceiling float64) bool {
	if route == nil {
		return false
	}
	return route.PriceImpact <= ceiling
}

// RoundTripProfit is outAmount(back) - amountIn in smallest units,
// signed. Integer arithmetic only.
func RoundTripProfit(amountIn uint64, routeBack *jupiter.RouteQuote) int64 {
	return int64(routeBack.OutAmount) - int64(amountIn)
}

// YieldBps expresses a round trip as basis points of the input.
func YieldBps(amountIn uint64, amountOut uint64) int64 {
	if amountIn == 0 {
		return 0
	}
	return (int64(amountOut) - int64(amountIn)) * 10000 / int64(amountIn)
}

// TriangularYield chains legs (A->B->C->...->A) and returns the
// cumulative gain in basis points of the initial amount. Every leg must
// consume what the previous one produced and the cycle must close on
// the starting asset.
func TriangularYield(initialAmount uint64, legs []*jupiter.RouteQuote) (int64, error) {
	if initialAmount == 0 {
		return 0, fmt.Errorf("initial amount is zero")
	}
	if len(legs) < 2 {
		return 0, fmt.Errorf("a cycle needs at least 2 legs")
	}
	for _, leg := range legs {
		if leg.InputMint == leg.OutputMint {
			return 0, fmt.Errorf("leg %s has identical input and output", leg.InputMint)
		}
	}
	for i := 1; i < len(legs); i++ {
		if legs[i].InputMint != legs[i-1].OutputMint {
			return 0, fmt.Errorf("leg %d does not consume leg %d output", i, i-1)
		}
	}
	if legs[len(legs)-1].OutputMint != legs[0].InputMint {
		return 0, fmt.Errorf("cycle does not return to starting asset")
	}
	amount := initialAmount
	for _, leg := range legs {
		if leg.InAmount != amount {
			return 0, fmt.Errorf("leg %s quoted for %d, have %d", leg.InputMint, leg.InAmount, amount)
		}
		amount = leg.OutAmount
	}
	return YieldBps(initialAmount, amount), nil
}

// DynamicSlippageBps picks an execution slippage tolerance from the two
// legs' combined price impact. Tight markets get a tight tolerance.
func DynamicSlippageBps(impactOut, impactBack float64) int {
	total := impactOut + impactBack
	if total < 0.001 {
		return 5
	}
	if total < 0.0025 {
		return 10
	}
	if total < 0.005 {
		return 20
	}
	return 50
}
