package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmarino/jupiter-arbitrage/arbitrage/app"
	"github.com/dmarino/jupiter-arbitrage/config"
)

func shutdown(cancel context.CancelFunc, quit chan os.Signal) {
	<-quit
	cancel()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGABRT)
	go shutdown(cancel, quit)

	if len(os.Args) == 2 {
		if err := os.Chdir(os.Args[1]); err != nil {
			panic(err)
		}
	}
	workspace, _ := os.Getwd()
	fmt.Printf("work space: %s\n", workspace)

	cfg, err := config.Load(config.ConfigFile)
	if err != nil {
		panic(err)
	}
	cfg.WorkSpace = workspace

	app.NewApp(ctx, cfg).Service()
}
