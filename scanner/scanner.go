package scanner

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dmarino/jupiter-arbitrage/antiloss"
	"github.com/dmarino/jupiter-arbitrage/calculator"
	"github.com/dmarino/jupiter-arbitrage/config"
	"github.com/dmarino/jupiter-arbitrage/executor"
	"github.com/dmarino/jupiter-arbitrage/jupiter"
	"github.com/dmarino/jupiter-arbitrage/tokens"
	"github.com/dmarino/jupiter-arbitrage/utils"
	"github.com/shopspring/decimal"
)

type QuoteSource interface {
	ComputeRoutes(ctx context.Context, req *jupiter.RouteRequest) (*jupiter.RoutesResult, error)
}

type Dispatcher interface {
	Dispatch(candidate *executor.Candidate) bool
}

// Scanner polls the configured pairs on a fixed cadence. Pairs run in
// bounded batches per tick, ticks never overlap, and dispatched
// executions are not awaited.
type Scanner struct {
	ctx        context.Context
	logger     *log.Logger
	wg         sync.WaitGroup
	pairs      []*config.Pair
	amount     uint64
	slippage   int
	strictBps  int
	ceiling    float64
	interval   time.Duration
	batchSize  int
	source     QuoteSource
	dispatcher Dispatcher
}

func NewScanner(ctx context.Context, cfg *config.Config, source QuoteSource, dispatcher Dispatcher) *Scanner {
	pairs := cfg.Pairs
	if len(pairs) == 0 {
		pairs = tokens.DefaultPairs()
	}
	return &Scanner{
		ctx:        ctx,
		logger:     utils.NewLog(config.LogPath, config.ScannerLog),
		pairs:      pairs,
		amount:     cfg.Amount,
		slippage:   cfg.ScanSlippageBps,
		strictBps:  cfg.StrictBps,
		ceiling:    cfg.ImpactCeiling,
		interval:   time.Duration(cfg.TickMs) * time.Millisecond,
		batchSize:  cfg.BatchSize,
		source:     source,
		dispatcher: dispatcher,
	}
}

func (s *Scanner) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Printf("scanner started, pairs: %d, interval: %s, batch: %d", len(s.pairs), s.interval, s.batchSize)
}

func (s *Scanner) Stop() {
	s.wg.Wait()
	s.logger.Printf("scanner stopped")
}

// run is the loop. There is no terminal state short of shutdown, a
// broken tick logs and waits for the next one.
func (s *Scanner) run() {
	defer s.wg.Done()
	for {
		s.tick()
		select {
		case <-s.ctx.Done():
			s.logger.Printf("scan loop exit")
			return
		case <-time.After(s.interval):
		}
	}
}

func (s *Scanner) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("tick err: %v", r)
		}
	}()
	s.logger.Printf("**************** tick: scanning %d pairs ****************", len(s.pairs))
	for start := 0; start < len(s.pairs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(s.pairs) {
			end = len(s.pairs)
		}
		batch := s.pairs[start:end]
		var wg sync.WaitGroup
		candidates := make([]*executor.Candidate, len(batch))
		for i, pair := range batch {
			wg.Add(1)
			go func(i int, pair *config.Pair) {
				defer wg.Done()
				candidates[i] = s.checkPair(pair)
			}(i, pair)
		}
		wg.Wait()
		for _, candidate := range candidates {
			if candidate == nil {
				continue
			}
			s.logger.Printf("verified opportunity %s, profit: %d (%s), routes: %v -> %v",
				candidate.Pair.Label(), candidate.Profit, s.profitUsd(candidate),
				candidate.Out.Venues, candidate.Back.Venues)
			s.dispatcher.Dispatch(candidate)
		}
		select {
		case <-s.ctx.Done():
			return
		default:
		}
	}
}

// checkPair evaluates one pair. Every failure is contained here, one
// bad pair cannot abort the tick.
func (s *Scanner) checkPair(pair *config.Pair) *executor.Candidate {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("checkPair %s err: %v", pair.Label(), r)
		}
	}()

	outResult, err := s.source.ComputeRoutes(s.ctx, &jupiter.RouteRequest{
		InputMint:   pair.Base,
		OutputMint:  pair.Quote,
		Amount:      s.amount,
		SlippageBps: s.slippage,
	})
	if err != nil {
		s.logger.Printf("checkPair %s out leg err: %v", pair.Label(), err)
		return nil
	}
	out := outResult.Best()
	if out == nil {
		return nil
	}
	// impact ceiling rejects the pair before the back leg is requested
	if !calculator.Usable(out, s.ceiling) {
		return nil
	}

	backResult, err := s.source.ComputeRoutes(s.ctx, &jupiter.RouteRequest{
		InputMint:   pair.Quote,
		OutputMint:  pair.Base,
		Amount:      out.OutAmount,
		SlippageBps: s.slippage,
	})
	if err != nil {
		s.logger.Printf("checkPair %s back leg err: %v", pair.Label(), err)
		return nil
	}
	back := backResult.Best()
	if back == nil || !calculator.Usable(back, s.ceiling) {
		return nil
	}

	// advisory only, the verifier below is the authority
	preliminaryProfit := calculator.RoundTripProfit(s.amount, back)
	if preliminaryProfit <= 0 {
		return nil
	}
	s.logger.Printf("preliminary opportunity %s, profit: %d, yield: %d bps",
		pair.Label(), preliminaryProfit, calculator.YieldBps(s.amount, back.OutAmount))

	verified, err := antiloss.DoubleCheck(s.ctx, s.source, pair, s.amount, s.strictBps, s.ceiling)
	if err != nil {
		s.logger.Printf("checkPair %s verify err: %v", pair.Label(), err)
		return nil
	}
	if verified == nil {
		s.logger.Printf("pair %s rejected on re-verification", pair.Label())
		return nil
	}
	return &executor.Candidate{
		Pair:     pair,
		AmountIn: s.amount,
		Out:      verified.Out,
		Back:     verified.Back,
		Profit:   verified.Profit,
	}
}

// profitUsd is a display-only estimate for USDC-quoted pairs. It never
// gates anything.
func (s *Scanner) profitUsd(candidate *executor.Candidate) string {
	if candidate.Pair.Quote != tokens.USDC || candidate.Pair.Base != tokens.SOL {
		return "n/a"
	}
	baseUi := decimal.NewFromInt(int64(candidate.AmountIn)).Shift(-tokens.SolDecimals)
	quoteUi := decimal.NewFromInt(int64(candidate.Out.OutAmount)).Shift(-tokens.UsdcDecimals)
	if baseUi.IsZero() {
		return "n/a"
	}
	price := quoteUi.Div(baseUi)
	profitUi := decimal.NewFromInt(int64(candidate.Profit)).Shift(-tokens.SolDecimals)
	return "~$" + profitUi.Mul(price).StringFixed(2)
}
