// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package orchestrator spawns and supervises the per-chain worker set:
// monitor, store-driven pipelines, wallet, and their wiring. One chain's
// failure never stops its siblings.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/approval"
	"github.com/luxfi/underwriter/internal/config"
	"github.com/luxfi/underwriter/internal/expirer"
	"github.com/luxfi/underwriter/internal/metrics"
	"github.com/luxfi/underwriter/internal/monitor"
	"github.com/luxfi/underwriter/internal/store"
	"github.com/luxfi/underwriter/internal/underwriter"
	"github.com/luxfi/underwriter/internal/wallet"
	"golang.org/x/sync/errgroup"
)

// StatusLogInterval is how often each chain's worker set logs its queue
// depths, giving operators a cheap sense of backlog without scraping
// metrics.
const StatusLogInterval = 30 * time.Second

// Transport bundles the two narrow interfaces one chain's RPC connection
// must satisfy. A single concrete connection (e.g. *rpc.Adapter) typically
// implements both, so TransportFactory is called once per chain.
type Transport interface {
	monitor.ChainReader
	wallet.Broadcaster
}

// TransportFactory builds the RPC transport for one chain; injected so
// tests can substitute a fake without a live endpoint.
type TransportFactory func(rpcURL, privateKeyHex string) (Transport, error)

// Chain is one running chain's full worker set, kept around so the status
// logger can inspect queue depths.
type Chain struct {
	ID          string
	Monitor     *monitor.Monitor
	Wallet      *wallet.Wallet
	Approval    *approval.Handler
	Underwriter *underwriter.Pipeline
	Expirer     *expirer.Pipeline
}

// Orchestrator owns one Chain per configured chain and the errgroup that
// supervises all of their goroutines.
type Orchestrator struct {
	chains  []*Chain
	logger  log.Logger
	metrics *metrics.Registry
}

// New builds the full worker set for every resolved chain. The store is
// shared across all chains since SendAsset events from any source chain
// may target any destination chain's underwriter pipeline. metrics may be
// nil to skip Prometheus reporting.
func New(
	resolved []config.ResolvedChainConfig,
	st store.Store,
	transportFactory TransportFactory,
	pricing underwriter.PricingOracle,
	reg *metrics.Registry,
	logger log.Logger,
) (*Orchestrator, error) {
	o := &Orchestrator{logger: logger, metrics: reg}

	for _, rc := range resolved {
		transport, err := transportFactory(rc.RPCURL, rc.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("chain %s: build RPC transport: %w", rc.ChainID, err)
		}

		chainLogger := logger.New("chain", rc.ChainID)

		src := monitor.NewPollSource(rc.ChainID, transport, rc.PollInterval, chainLogger)
		mon := monitor.New(rc.ChainID, rc.BlockDelay, src, chainLogger)

		w := wallet.New(rc.ChainID, transport, rc.Wallet, chainLogger)

		approvalHandler := approval.NewHandler(w.AttachToWallet(), chainLogger)

		uw := underwriter.New(rc.ChainID, rc.Underwriter, st, mon, w.AttachToWallet(), approvalHandler, pricing, chainLogger)
		ex := expirer.New(rc.ChainID, rc.Expirer, st, mon, w.AttachToWallet(), pricing, chainLogger)

		o.chains = append(o.chains, &Chain{
			ID:          rc.ChainID,
			Monitor:     mon,
			Wallet:      w,
			Approval:    approvalHandler,
			Underwriter: uw,
			Expirer:     ex,
		})
	}

	return o, nil
}

// Run drives every chain's workers concurrently until ctx is cancelled. A
// panic in one chain's worker goroutine is recovered and logged at error
// level and does not stop the others; Run itself only returns once every
// goroutine (across every chain) has exited.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, c := range o.chains {
		c := c
		g.Go(func() error { return o.superviseChain(ctx, c) })
	}

	g.Go(func() error {
		o.logStatus(ctx)
		return nil
	})

	return g.Wait()
}

// superviseChain runs one chain's worker goroutines, recovering from a
// panic in any of them so a single misbehaving chain cannot take down the
// rest of the fleet.
func (o *Orchestrator) superviseChain(ctx context.Context, c *Chain) error {
	workers := []func(context.Context){
		c.Monitor.Run,
		c.Wallet.Run,
		c.Approval.Run,
		c.Underwriter.Run,
		c.Expirer.Run,
	}

	var inner errgroup.Group
	for _, w := range workers {
		w := w
		inner.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("worker panicked, chain continues degraded", "chain", c.ID, "panic", r)
				}
			}()
			w(ctx)
			return nil
		})
	}
	return inner.Wait()
}

func (o *Orchestrator) logStatus(ctx context.Context) {
	ticker := time.NewTicker(StatusLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range o.chains {
				block, ok := c.Monitor.CurrentBlock()
				o.logger.Info("chain status",
					"chain", c.ID,
					"block", block,
					"blockReady", ok,
					"walletPending", c.Wallet.Size(),
					"underwriterPending", c.Underwriter.Size(),
					"expirerPending", c.Expirer.Size(),
				)
				if o.metrics != nil {
					o.metrics.CurrentBlock.WithLabelValues(c.ID).Set(float64(block))
					o.metrics.WalletPending.WithLabelValues(c.ID).Set(float64(c.Wallet.Size()))
					o.metrics.QueueSize.WithLabelValues(c.ID, "underwriter").Set(float64(c.Underwriter.Size()))
					o.metrics.QueueSize.WithLabelValues(c.ID, "expirer").Set(float64(c.Expirer.Size()))
				}
			}
		}
	}
}
