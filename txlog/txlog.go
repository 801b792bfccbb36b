package txlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	StatusSimulated = "simulated"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

const (
	MethodSimulate = "simulate"
	MethodJito     = "jito"
	MethodRaw      = "raw"
)

// Record is one terminal outcome of one execution request. Each record
// is appended as a single JSON line, so concurrent writers can never
// interleave inside a record.
type Record struct {
	Ts        string `json:"ts"`
	Pair      string `json:"pair"`
	Status    string `json:"status"`
	Method    string `json:"method,omitempty"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

type Recorder interface {
	Record(record *Record)
}

// Sink drains records through a bounded channel into an append-only
// file. A full buffer drops the record instead of blocking the caller.
type Sink struct {
	ctx     context.Context
	wg      sync.WaitGroup
	records chan *Record
	file    *os.File
}

func NewSink(ctx context.Context, dir, name string) *Sink {
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(err)
	}
	fileName := fmt.Sprintf("%s%s.log", dir, name)
	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		panic(err)
	}
	return &Sink{
		ctx:     ctx,
		records: make(chan *Record, 256),
		file:    file,
	}
}

func (s *Sink) Start() {
	s.wg.Add(1)
	go s.store()
}

func (s *Sink) Stop() {
	s.wg.Wait()
	s.file.Close()
}

func (s *Sink) store() {
	defer s.wg.Done()
	for {
		select {
		case record := <-s.records:
			s.write(record)
		case <-s.ctx.Done():
			// drain what is already buffered
			for {
				select {
				case record := <-s.records:
					s.write(record)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(record *Record) {
	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	s.file.Write(append(line, '\n'))
}

func (s *Sink) Record(record *Record) {
	if record.Ts == "" {
		record.Ts = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.records <- record:
	default:
	}
}
