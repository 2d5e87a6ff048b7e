// Repertoire HTTP server without the rest of the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hailam/repertoire/internal/cli"
	"github.com/hailam/repertoire/internal/config"
	"github.com/hailam/repertoire/internal/logger"
)

var (
	configPath = flag.String("config", os.Getenv("REPERTOIRE_CONFIG"), "path to a YAML config file")
	addr       = flag.String("addr", "", "listen address (overrides server.addr)")
	dataDir    = flag.String("data-dir", "", "data directory (overrides storage.dir)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Storage.Dir = *dataDir
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Serve(ctx, cfg, log, *addr); err != nil {
		stop()
		log.Fatal("server exited", "error", err)
	}
}
