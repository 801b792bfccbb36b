package executor

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dmarino/jupiter-arbitrage/backend"
	"github.com/dmarino/jupiter-arbitrage/config"
	"github.com/dmarino/jupiter-arbitrage/jupiter"
	"github.com/dmarino/jupiter-arbitrage/txlog"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "executor")
	if err != nil {
		panic(err)
	}
	config.LogPath = dir + "/"
	os.Exit(m.Run())
}

var (
	solMint  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

type mockChain struct {
	wallet      *solana.Wallet
	simulateErr error
	sendErr     error
	confirmErr  error
	simulated   int
	signed      int
	sent        int
	confirmed   int
}

func newMockChain() *mockChain {
	return &mockChain{wallet: solana.NewWallet()}
}

func (m *mockChain) Player() solana.PublicKey {
	return m.wallet.PublicKey()
}

func (m *mockChain) BuildTransaction(ins []solana.Instruction) (*solana.Transaction, error) {
	builder := solana.NewTransactionBuilder()
	for _, in := range ins {
		builder.AddInstruction(in)
	}
	builder.SetFeePayer(m.wallet.PublicKey())
	builder.SetRecentBlockHash(solana.Hash{1})
	return builder.Build()
}

func (m *mockChain) SignTransaction(trx *solana.Transaction) error {
	m.signed++
	_, err := trx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key == m.wallet.PublicKey() {
			pk := m.wallet.PrivateKey
			return &pk
		}
		return nil
	})
	return err
}

func (m *mockChain) Simulate(ctx context.Context, trx *solana.Transaction) error {
	m.simulated++
	return m.simulateErr
}

func (m *mockChain) SendRawTransaction(ctx context.Context, serialized []byte) (solana.Signature, error) {
	if m.simulated == 0 {
		panic("broadcast without a preceding simulation")
	}
	m.sent++
	if m.sendErr != nil {
		return solana.Signature{}, m.sendErr
	}
	return solana.Signature{2}, nil
}

func (m *mockChain) WaitConfirmation(ctx context.Context, signature solana.Signature, deadline time.Duration) error {
	m.confirmed++
	return m.confirmErr
}

type mockSwaps struct {
	calls    int
	failLeg  int
	slippage int
}

func (m *mockSwaps) BuildSwap(ctx context.Context, route *jupiter.RouteQuote, signer solana.PublicKey, wrapNative bool, slippageBps int) ([]solana.Instruction, error) {
	m.calls++
	m.slippage = slippageBps
	if m.failLeg != 0 && m.calls == m.failLeg {
		return nil, fmt.Errorf("route cannot be materialized")
	}
	in := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.NewAccountMeta(signer, true, true)},
		[]byte{byte(m.calls)},
	)
	return []solana.Instruction{in}, nil
}

type mockBundler struct {
	enabled bool
	err     error
	calls   int
}

func (m *mockBundler) Enabled() bool { return m.enabled }

func (m *mockBundler) SendBundle(ctx context.Context, signedTxs [][]byte) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "bundle-1", nil
}

type captureRecorder struct {
	records []*txlog.Record
}

func (c *captureRecorder) Record(record *txlog.Record) {
	c.records = append(c.records, record)
}

func candidate() *Candidate {
	return &Candidate{
		Pair:     &config.Pair{Base: solMint, Quote: usdcMint},
		AmountIn: 10000000,
		Out:      &jupiter.RouteQuote{InputMint: solMint, OutputMint: usdcMint, InAmount: 10000000, OutAmount: 20000000, PriceImpact: 0.0004},
		Back:     &jupiter.RouteQuote{InputMint: usdcMint, OutputMint: solMint, InAmount: 20000000, OutAmount: 20000000, PriceImpact: 0.0004},
		Profit:   10000000,
	}
}

func newTestExecutor(live bool, chain *mockChain, swaps *mockSwaps, bundler *mockBundler, recorder *captureRecorder) *Executor {
	cfg := &config.Config{
		Live:      live,
		Workers:   1,
		QueueSize: 1,
	}
	return NewExecutor(context.Background(), cfg, chain, swaps, bundler, recorder, nil)
}

func TestExecuteSimulateOnly(t *testing.T) {
	chain := newMockChain()
	swaps := &mockSwaps{}
	recorder := &captureRecorder{}
	e := newTestExecutor(false, chain, swaps, &mockBundler{}, recorder)

	e.Execute(candidate())

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, txlog.StatusSimulated, record.Status)
	assert.Equal(t, txlog.MethodSimulate, record.Method)
	assert.Empty(t, record.Signature)
	assert.Equal(t, 1, chain.simulated)
	// combined impact of 0.0008 lands in the tightest slippage step
	assert.Equal(t, 5, swaps.slippage)
	// simulate-only never reaches broadcast or confirmation
	assert.Zero(t, chain.sent)
	assert.Zero(t, chain.confirmed)
	assert.Zero(t, chain.signed)
}

func TestExecuteLiveRawBroadcast(t *testing.T) {
	chain := newMockChain()
	recorder := &captureRecorder{}
	e := newTestExecutor(true, chain, &mockSwaps{}, &mockBundler{}, recorder)

	e.Execute(candidate())

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, txlog.StatusSuccess, record.Status)
	assert.Equal(t, txlog.MethodRaw, record.Method)
	assert.NotEmpty(t, record.Signature)
	assert.Equal(t, 1, chain.simulated)
	assert.Equal(t, 1, chain.sent)
	assert.Equal(t, 1, chain.confirmed)
}

func TestExecuteRelayFailureFallsBackToRaw(t *testing.T) {
	chain := newMockChain()
	bundler := &mockBundler{enabled: true, err: fmt.Errorf("relay timeout")}
	recorder := &captureRecorder{}
	e := newTestExecutor(true, chain, &mockSwaps{}, bundler, recorder)

	e.Execute(candidate())

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	// the relay is an optimization, its failure is not terminal
	assert.Equal(t, txlog.StatusSuccess, record.Status)
	assert.Equal(t, txlog.MethodRaw, record.Method)
	assert.Equal(t, 1, bundler.calls)
	assert.Equal(t, 1, chain.sent)
}

func TestExecuteRelaySuccessSkipsRawSend(t *testing.T) {
	chain := newMockChain()
	bundler := &mockBundler{enabled: true}
	recorder := &captureRecorder{}
	e := newTestExecutor(true, chain, &mockSwaps{}, bundler, recorder)

	e.Execute(candidate())

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, txlog.StatusSuccess, record.Status)
	assert.Equal(t, txlog.MethodJito, record.Method)
	assert.Equal(t, 1, bundler.calls)
	assert.Zero(t, chain.sent)
	assert.Equal(t, 1, chain.confirmed)
}

func TestExecuteSimulationFailureAbortsBeforeBroadcast(t *testing.T) {
	chain := newMockChain()
	chain.simulateErr = fmt.Errorf("program error: insufficient funds")
	bundler := &mockBundler{enabled: true}
	recorder := &captureRecorder{}
	e := newTestExecutor(true, chain, &mockSwaps{}, bundler, recorder)

	e.Execute(candidate())

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, txlog.StatusFailed, record.Status)
	assert.Contains(t, record.Error, "simulation failed")
	assert.Zero(t, chain.sent)
	assert.Zero(t, chain.signed)
	assert.Zero(t, bundler.calls)
}

func TestExecuteBuildFailureIsTerminal(t *testing.T) {
	chain := newMockChain()
	recorder := &captureRecorder{}
	// the second leg cannot be materialized, nothing may be sent
	e := newTestExecutor(true, chain, &mockSwaps{failLeg: 2}, &mockBundler{}, recorder)

	e.Execute(candidate())

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, txlog.StatusFailed, record.Status)
	assert.Contains(t, record.Error, "build transaction failed")
	assert.Zero(t, chain.simulated)
	assert.Zero(t, chain.sent)
}

func TestExecuteBroadcastFailureIsTerminal(t *testing.T) {
	chain := newMockChain()
	chain.sendErr = fmt.Errorf("connection refused")
	recorder := &captureRecorder{}
	e := newTestExecutor(true, chain, &mockSwaps{}, &mockBundler{}, recorder)

	e.Execute(candidate())

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, txlog.StatusFailed, record.Status)
	assert.Contains(t, record.Error, "broadcast failed")
	assert.Zero(t, chain.confirmed)
}

func TestExecuteConfirmationTimeoutIsDistinct(t *testing.T) {
	chain := newMockChain()
	chain.confirmErr = backend.ErrConfirmationTimeout
	recorder := &captureRecorder{}
	e := newTestExecutor(true, chain, &mockSwaps{}, &mockBundler{}, recorder)

	e.Execute(candidate())

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, txlog.StatusFailed, record.Status)
	assert.Equal(t, "confirmation timeout", record.Error)
	// the signature is kept, the transaction may still land
	assert.NotEmpty(t, record.Signature)
}

func TestExecuteSkipsPairAlreadyInFlight(t *testing.T) {
	chain := newMockChain()
	recorder := &captureRecorder{}
	e := newTestExecutor(false, chain, &mockSwaps{}, &mockBundler{}, recorder)

	c := candidate()
	require.True(t, e.acquirePair(c.Pair.Label()))
	e.Execute(c)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, txlog.StatusSkipped, recorder.records[0].Status)
	assert.Zero(t, chain.simulated)

	// released pairs execute again
	e.releasePair(c.Pair.Label())
	e.Execute(c)
	require.Len(t, recorder.records, 2)
	assert.Equal(t, txlog.StatusSimulated, recorder.records[1].Status)
}

func TestDispatchDropsWhenQueueFull(t *testing.T) {
	e := newTestExecutor(false, newMockChain(), &mockSwaps{}, &mockBundler{}, &captureRecorder{})
	// no workers are draining, capacity is one
	assert.True(t, e.Dispatch(candidate()))
	assert.False(t, e.Dispatch(candidate()))
}
