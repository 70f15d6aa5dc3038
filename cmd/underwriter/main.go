// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// underwriter runs the cross-chain swap underwriting daemon: one monitor,
// wallet, underwriter pipeline, and expirer pipeline per configured chain,
// fronting payouts ahead of message finality and reclaiming collateral on
// ones that never confirm.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/luxfi/underwriter/internal/config"
	"github.com/luxfi/underwriter/internal/httpapi"
	"github.com/luxfi/underwriter/internal/listener"
	"github.com/luxfi/underwriter/internal/logging"
	"github.com/luxfi/underwriter/internal/metrics"
	"github.com/luxfi/underwriter/internal/orchestrator"
	"github.com/luxfi/underwriter/internal/rpc"
	"github.com/luxfi/underwriter/internal/store"
	"github.com/luxfi/underwriter/internal/underwriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"
)

const clientIdentifier = "underwriter"

var app = &cli.App{
	Name:    clientIdentifier,
	Usage:   "Cross-chain swap underwriter daemon",
	Version: "1.0.0",
}

func init() {
	app.Action = run
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "config-dir", Value: ".", Usage: "directory containing config.<env>.yaml"},
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	fs := pflag.NewFlagSet(clientIdentifier, pflag.ContinueOnError)
	config.Flags(fs)

	root, err := config.Load(fs, cliCtx.String("config-dir"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	if root.Global.LogLevel != "" {
		logCfg.Level = root.Global.LogLevel
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	resolved, err := config.Resolve(root, nil)
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	st := store.NewMemstore()
	reg := prometheus.NewRegistry()
	metricsReg := metrics.New(reg)
	pricing := &underwriter.StaticRateOracle{}

	transportFactory := func(rpcURL, privateKeyHex string) (orchestrator.Transport, error) {
		return rpc.Dial(cliCtx.Context, rpcURL, privateKeyHex)
	}

	orch, err := orchestrator.New(resolved, st, transportFactory, pricing, metricsReg, logger)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := httpapi.New(root.Global.Port, reg, logger)
	evtListener := listener.Noop{}

	errCh := make(chan error, 3)
	go func() { errCh <- orch.Run(ctx) }()
	go func() { errCh <- httpSrv.Run(ctx) }()
	go func() { errCh <- evtListener.Run(ctx) }()

	select {
	case <-ctx.Done():
		<-errCh
		return nil
	case err := <-errCh:
		stop()
		return err
	}
}
