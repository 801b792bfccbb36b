package txlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRecords(t *testing.T, file string) []*Record {
	t.Helper()
	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()
	records := make([]*Record, 0)
	lines := bufio.NewScanner(f)
	for lines.Scan() {
		record := &Record{}
		require.NoError(t, json.Unmarshal(lines.Bytes(), record))
		records = append(records, record)
	}
	require.NoError(t, lines.Err())
	return records
}

func TestSinkAppendsOneLinePerRecord(t *testing.T) {
	dir := t.TempDir() + "/"
	ctx, cancel := context.WithCancel(context.Background())
	sink := NewSink(ctx, dir, "transactions")
	sink.Start()

	sink.Record(&Record{Pair: "SOL_USDC", Status: StatusSimulated, Method: MethodSimulate, LatencyMs: 12})
	sink.Record(&Record{Pair: "SOL_USDT", Status: StatusFailed, Error: "simulation failed", LatencyMs: 7})

	cancel()
	sink.Stop()

	records := readRecords(t, dir+"transactions.log")
	require.Len(t, records, 2)
	assert.Equal(t, "SOL_USDC", records[0].Pair)
	assert.Equal(t, StatusSimulated, records[0].Status)
	assert.NotEmpty(t, records[0].Ts)
	assert.Equal(t, "simulation failed", records[1].Error)
}

func TestSinkConcurrentRecords(t *testing.T) {
	dir := t.TempDir() + "/"
	ctx, cancel := context.WithCancel(context.Background())
	sink := NewSink(ctx, dir, "transactions")
	sink.Start()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Record(&Record{Pair: "SOL_USDC", Status: StatusSuccess, Method: MethodRaw})
		}()
	}
	wg.Wait()
	cancel()
	sink.Stop()

	// every line parses on its own, concurrent appends never interleave
	records := readRecords(t, dir+"transactions.log")
	assert.Len(t, records, 50)
	for _, record := range records {
		assert.Equal(t, StatusSuccess, record.Status)
	}
}

func TestSinkFullBufferDropsInsteadOfBlocking(t *testing.T) {
	dir := t.TempDir() + "/"
	sink := NewSink(context.Background(), dir, "transactions")
	// not started, the buffer fills up and extra records are dropped
	for i := 0; i < 1000; i++ {
		sink.Record(&Record{Pair: "SOL_USDC", Status: StatusSuccess})
	}
	assert.Len(t, sink.records, 256)
}
