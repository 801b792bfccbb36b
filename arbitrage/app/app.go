package app

import (
	"context"
	"log"

	"github.com/dmarino/jupiter-arbitrage/backend"
	"github.com/dmarino/jupiter-arbitrage/config"
	"github.com/dmarino/jupiter-arbitrage/executor"
	"github.com/dmarino/jupiter-arbitrage/jito"
	"github.com/dmarino/jupiter-arbitrage/jupiter"
	"github.com/dmarino/jupiter-arbitrage/netdetect"
	"github.com/dmarino/jupiter-arbitrage/notify"
	"github.com/dmarino/jupiter-arbitrage/scanner"
	"github.com/dmarino/jupiter-arbitrage/txlog"
	"github.com/dmarino/jupiter-arbitrage/utils"
)

// App wires the pipeline: scanner -> verifier -> executor -> chain,
// with the quote client, relay, log sink and notifier injected once at
// startup.
type App struct {
	ctx      context.Context
	logger   *log.Logger
	config   *config.Config
	backend  *backend.Backend
	sink     *txlog.Sink
	executor *executor.Executor
	scanner  *scanner.Scanner
	nd       *netdetect.NetworkDetector
}

func NewApp(ctx context.Context, cfg *config.Config) *App {
	app := &App{
		ctx:    ctx,
		logger: utils.NewLog(config.LogPath, "arbitrage"),
		config: cfg,
	}
	chain := backend.NewBackend(ctx, cfg.Nodes, cfg.BlockHashNodes)
	if cfg.Key != "" {
		if err := chain.ImportWallet(cfg.Key); err != nil {
			panic(err)
		}
	}
	app.backend = chain

	quoteClient := jupiter.NewClient(cfg.QuoteApi)
	quoteClient.SetPriorityFee(cfg.PriorityFee)
	bundler := jito.NewClient(cfg.JitoUrl, cfg.PriorityFee)
	notifier := notify.NewNotifier(cfg.NotifyUrl)
	app.sink = txlog.NewSink(ctx, config.LogPath, config.TransactionLog)
	app.executor = executor.NewExecutor(ctx, cfg, chain, quoteClient, bundler, app.sink, notifier)
	app.scanner = scanner.NewScanner(ctx, cfg, quoteClient, app.executor)
	if cfg.NetStatus {
		app.nd = netdetect.NewNetworkDetector([]string{cfg.QuoteApi, cfg.JitoUrl, cfg.Nodes[0].Rpc})
	}
	return app
}

func (app *App) Service() {
	app.Start()
	<-app.ctx.Done()
	app.Stop()
}

func (app *App) Start() {
	if app.nd != nil {
		app.nd.Start()
	}
	app.sink.Start()
	app.backend.Start()
	app.executor.Start()
	app.scanner.Start()
	mode := "simulate-only"
	if app.config.Live {
		mode = "live"
	}
	app.logger.Printf("arbitrage pipeline has started (%s)......", mode)
}

func (app *App) Stop() {
	app.scanner.Stop()
	app.executor.Stop()
	app.backend.Stop()
	app.sink.Stop()
	if app.nd != nil {
		app.nd.Stop()
	}
	app.logger.Printf("arbitrage pipeline has stopped......")
}
