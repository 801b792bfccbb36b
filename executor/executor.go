package executor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dmarino/jupiter-arbitrage/calculator"
	"github.com/dmarino/jupiter-arbitrage/config"
	"github.com/dmarino/jupiter-arbitrage/jupiter"
	"github.com/dmarino/jupiter-arbitrage/notify"
	"github.com/dmarino/jupiter-arbitrage/txlog"
	"github.com/dmarino/jupiter-arbitrage/utils"
	"github.com/gagliardetto/solana-go"
)

const ConfirmDeadline = 30 * time.Second

// Candidate is a verified opportunity handed over by the scanner.
// Profit comes from the verification re-quote and is strictly positive.
type Candidate struct {
	Pair     *config.Pair
	AmountIn uint64
	Out      *jupiter.RouteQuote
	Back     *jupiter.RouteQuote
	Profit   uint64
}

type SwapBuilder interface {
	BuildSwap(ctx context.Context, route *jupiter.RouteQuote, signer solana.PublicKey, wrapNative bool, slippageBps int) ([]solana.Instruction, error)
}

type ChainClient interface {
	Player() solana.PublicKey
	BuildTransaction(ins []solana.Instruction) (*solana.Transaction, error)
	SignTransaction(trx *solana.Transaction) error
	Simulate(ctx context.Context, trx *solana.Transaction) error
	SendRawTransaction(ctx context.Context, serialized []byte) (solana.Signature, error)
	WaitConfirmation(ctx context.Context, signature solana.Signature, deadline time.Duration) error
}

type Bundler interface {
	Enabled() bool
	SendBundle(ctx context.Context, signedTxs [][]byte) (string, error)
}

// Executor drains candidates from a bounded queue with a fixed worker
// pool. One candidate produces exactly one terminal record. A per-pair
// in-flight set keeps concurrent candidates for the same pair from
// producing duplicate submissions.
type Executor struct {
	ctx      context.Context
	logger   *log.Logger
	wg       sync.WaitGroup
	live     bool
	workers  int
	queue    chan *Candidate
	chain    ChainClient
	swaps    SwapBuilder
	bundler  Bundler
	recorder txlog.Recorder
	notifier *notify.Notifier

	mutex    sync.Mutex
	inflight map[string]bool
}

func NewExecutor(ctx context.Context, cfg *config.Config, chain ChainClient, swaps SwapBuilder, bundler Bundler, recorder txlog.Recorder, notifier *notify.Notifier) *Executor {
	return &Executor{
		ctx:      ctx,
		logger:   utils.NewLog(config.LogPath, config.ExecutorLog),
		live:     cfg.Live,
		workers:  cfg.Workers,
		queue:    make(chan *Candidate, cfg.QueueSize),
		chain:    chain,
		swaps:    swaps,
		bundler:  bundler,
		recorder: recorder,
		notifier: notifier,
		inflight: make(map[string]bool),
	}
}

func (e *Executor) Start() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(i + 1)
	}
	e.logger.Printf("executor started, workers: %d, live: %v", e.workers, e.live)
}

func (e *Executor) Stop() {
	e.wg.Wait()
	e.logger.Printf("executor stopped")
}

// Dispatch enqueues a candidate without blocking the caller. A full
// queue rejects the candidate, opportunities are perishable.
func (e *Executor) Dispatch(candidate *Candidate) bool {
	select {
	case e.queue <- candidate:
		return true
	default:
		e.logger.Printf("queue full, dropped candidate for %s", candidate.Pair.Label())
		return false
	}
}

func (e *Executor) worker(id int) {
	defer e.wg.Done()
	e.logger.Printf("worker %d start", id)
	for {
		select {
		case candidate := <-e.queue:
			e.Execute(candidate)
		case <-e.ctx.Done():
			e.logger.Printf("worker %d exit", id)
			return
		}
	}
}

func (e *Executor) acquirePair(label string) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.inflight[label] {
		return false
	}
	e.inflight[label] = true
	return true
}

func (e *Executor) releasePair(label string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.inflight, label)
}

// Execute runs one candidate to its terminal outcome and records it.
func (e *Executor) Execute(candidate *Candidate) {
	label := candidate.Pair.Label()
	start := time.Now()
	if !e.acquirePair(label) {
		e.logger.Printf("pair %s already has an execution in flight", label)
		e.record(&txlog.Record{
			Pair:      label,
			Status:    txlog.StatusSkipped,
			Error:     "execution in flight for pair",
			LatencyMs: time.Since(start).Milliseconds(),
		})
		return
	}
	defer e.releasePair(label)

	record := e.run(candidate, label)
	record.LatencyMs = time.Since(start).Milliseconds()
	e.record(record)
	if e.notifier.Enabled() && record.Status != txlog.StatusSkipped {
		go e.notifier.Notify(&notify.Message{
			Pair:      label,
			Status:    record.Status,
			Method:    record.Method,
			Signature: record.Signature,
			Profit:    candidate.Profit,
		})
	}
}

func (e *Executor) record(record *txlog.Record) {
	e.logger.Printf("result pair: %s, status: %s, method: %s, signature: %s, err: %s, latency: %dms",
		record.Pair, record.Status, record.Method, record.Signature, record.Error, record.LatencyMs)
	e.recorder.Record(record)
}

func (e *Executor) run(candidate *Candidate, label string) *txlog.Record {
	slippageBps := calculator.DynamicSlippageBps(candidate.Out.PriceImpact, candidate.Back.PriceImpact)
	e.logger.Printf("executing %s, amount: %d, verified profit: %d, slippage: %d bps",
		label, candidate.AmountIn, candidate.Profit, slippageBps)

	// build: both legs or nothing, the combined transaction settles
	// atomically on chain
	insOut, err := e.swaps.BuildSwap(e.ctx, candidate.Out, e.chain.Player(), true, slippageBps)
	if err != nil {
		return failed(label, fmt.Errorf("build transaction failed: %w", err))
	}
	insBack, err := e.swaps.BuildSwap(e.ctx, candidate.Back, e.chain.Player(), true, slippageBps)
	if err != nil {
		return failed(label, fmt.Errorf("build transaction failed: %w", err))
	}
	ins := make([]solana.Instruction, 0, len(insOut)+len(insBack))
	ins = append(ins, insOut...)
	ins = append(ins, insBack...)
	trx, err := e.chain.BuildTransaction(ins)
	if err != nil {
		return failed(label, fmt.Errorf("build transaction failed: %w", err))
	}

	// simulate before any signature cost, a failure abandons the
	// attempt, the quotes are assumed stale
	if err := e.chain.Simulate(e.ctx, trx); err != nil {
		return failed(label, fmt.Errorf("simulation failed: %w", err))
	}

	if !e.live {
		return &txlog.Record{
			Pair:   label,
			Status: txlog.StatusSimulated,
			Method: txlog.MethodSimulate,
		}
	}

	if err := e.chain.SignTransaction(trx); err != nil {
		return failed(label, fmt.Errorf("sign failed: %w", err))
	}
	serialized, err := trx.MarshalBinary()
	if err != nil {
		return failed(label, fmt.Errorf("serialize failed: %w", err))
	}
	signature := trx.Signatures[0]

	method := txlog.MethodRaw
	sent := false
	if e.bundler != nil && e.bundler.Enabled() {
		bundleId, err := e.bundler.SendBundle(e.ctx, [][]byte{serialized})
		if err != nil {
			// the relay is an optimization, not a requirement
			e.logger.Printf("bundle send failed, falling back to raw: %v", err)
		} else {
			e.logger.Printf("bundle sent: %s", bundleId)
			method = txlog.MethodJito
			sent = true
		}
	}
	if !sent {
		sig, err := e.chain.SendRawTransaction(e.ctx, serialized)
		if err != nil {
			return failed(label, fmt.Errorf("broadcast failed: %w", err))
		}
		signature = sig
	}

	// a sent transaction cannot be unsent, wait or time out
	if err := e.chain.WaitConfirmation(e.ctx, signature, ConfirmDeadline); err != nil {
		return &txlog.Record{
			Pair:      label,
			Status:    txlog.StatusFailed,
			Method:    method,
			Signature: signature.String(),
			Error:     err.Error(),
		}
	}
	return &txlog.Record{
		Pair:      label,
		Status:    txlog.StatusSuccess,
		Method:    method,
		Signature: signature.String(),
	}
}

func failed(label string, err error) *txlog.Record {
	return &txlog.Record{
		Pair:   label,
		Status: txlog.StatusFailed,
		Error:  err.Error(),
	}
}
