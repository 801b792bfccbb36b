package backend

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmarino/jupiter-arbitrage/config"
	"github.com/dmarino/jupiter-arbitrage/utils"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const blockHashRefresh = 2 * time.Second

type Backend struct {
	logger          *log.Logger
	ctx             context.Context
	wg              sync.WaitGroup
	rpcClient       *rpc.Client
	blockHashNodes  []*rpc.Client
	wallets         []*Wallet
	player          solana.PublicKey
	lock            int32
	cachedBlockHash solana.Hash
}

func NewBackend(ctx context.Context, nodes []*config.Node, blockHashNodes []string) *Backend {
	backend := &Backend{
		ctx:       ctx,
		logger:    utils.NewLog(config.LogPath, config.BackendLog),
		rpcClient: rpc.New(nodes[0].Rpc),
	}
	if len(blockHashNodes) == 0 {
		blockHashNodes = []string{nodes[0].Rpc}
	}
	for _, node := range blockHashNodes {
		backend.blockHashNodes = append(backend.blockHashNodes, rpc.New(node))
	}
	return backend
}

func (backend *Backend) Start() {
	backend.refreshBlockHash()
	backend.wg.Add(1)
	go backend.cacheRecentBlockHash()
}

func (backend *Backend) Stop() {
	backend.wg.Wait()
}

func (backend *Backend) cacheRecentBlockHash() {
	defer backend.wg.Done()
	ticker := time.NewTicker(blockHashRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			backend.refreshBlockHash()
		case <-backend.ctx.Done():
			backend.logger.Printf("recent block hash cache exit")
			return
		}
	}
}

func (backend *Backend) refreshBlockHash() {
	var result *rpc.GetLatestBlockhashResult
	var err error
	for i, client := range backend.blockHashNodes {
		result, err = client.GetLatestBlockhash(backend.ctx, rpc.CommitmentFinalized)
		if err == nil {
			break
		}
		backend.logger.Printf("GetLatestBlockhash, %d err: %s", i, err.Error())
	}
	if err != nil {
		backend.logger.Printf("GetLatestBlockhash, all err: %s", err.Error())
		return
	}
	for !atomic.CompareAndSwapInt32(&backend.lock, 0, 1) {
		continue
	}
	backend.cachedBlockHash = result.Value.Blockhash
	atomic.StoreInt32(&backend.lock, 0)
}

func (backend *Backend) RecentBlockHash() solana.Hash {
	defer atomic.StoreInt32(&backend.lock, 0)
	for !atomic.CompareAndSwapInt32(&backend.lock, 0, 1) {
		continue
	}
	return backend.cachedBlockHash
}
