// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expirer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/monitor"
	"github.com/luxfi/underwriter/internal/queue"
	"github.com/luxfi/underwriter/internal/store"
	"github.com/luxfi/underwriter/internal/underwriter"
	"github.com/luxfi/underwriter/internal/wallet"
)

// Pipeline is one chain's expirer worker: maintains the admission heap from
// SwapUnderwritten/SwapUnderwriteComplete/ExpireUnderwrite events, and
// drives eval -> submit once an entry's expireAt is reached.
type Pipeline struct {
	chainID string
	cfg     Config
	store   store.Store
	monitor *monitor.Monitor
	logger  log.Logger

	heap   *expiryHeap
	eval   *queue.Queue[EvalOrder, ExpireOrder]
	submit *queue.Queue[ExpireOrder, ExpireResult]
	client *wallet.Client

	// inFlight holds every underwrite key admitted out of heap and still
	// working through eval/submit. superseded marks a key whose on-chain
	// underwrite completed (or was independently expired) while its own
	// expire submission was still in flight, so the eventual result is
	// discarded instead of acted on.
	inFlight   mapset.Set[chain.SwapKey]
	superseded mapset.Set[chain.SwapKey]

	idCounter int64
}

// New wires a full expirer pipeline for one chain. pricing is the same
// PricingOracle passed to underwriter.New, reused to value the collateral an
// expireUnderwrite call would reclaim.
func New(chainID string, cfg Config, st store.Store, mon *monitor.Monitor, walletPort wallet.Port, pricing underwriter.PricingOracle, logger log.Logger) *Pipeline {
	cfg = cfg.withFloor()

	p := &Pipeline{
		chainID:    chainID,
		cfg:        cfg,
		store:      st,
		monitor:    mon,
		logger:     logger,
		heap:       newExpiryHeap(),
		inFlight:   mapset.NewSet[chain.SwapKey](),
		superseded: mapset.NewSet[chain.SwapKey](),
		client:     wallet.NewClient(walletPort, "expire-"+chainID),
	}

	es := &evalStrategy{cfg: cfg, store: st, pricing: pricing, logger: logger}
	es.onDrop = func(key chain.SwapKey) { p.inFlight.Remove(key) }
	p.eval = queue.New[EvalOrder, ExpireOrder]("expirer-eval-"+chainID, queue.Config{
		MaxConcurrent: 16,
		MaxTries:      3,
		RetryInterval: time.Second,
	}, es, logger)

	ss := &submitStrategy{client: p.client, logger: logger}
	ss.release = func(key chain.SwapKey) { p.inFlight.Remove(key) }
	ss.onResult = func(order ExpireOrder, result ExpireResult) {
		key := order.State.Key
		if p.superseded.Contains(key) {
			p.superseded.Remove(key)
			p.logger.Info("expirer: discarding confirmed expire, already superseded by on-chain completion", "underwriteId", key.UnderwriteID)
			return
		}
		p.logger.Info("expirer: expireUnderwrite confirmed", "underwriteId", key.UnderwriteID)
	}
	p.submit = queue.New[ExpireOrder, ExpireResult]("expirer-submit-"+chainID, queue.Config{
		MaxConcurrent: 16,
		MaxTries:      cfg.MaxSubmitTries,
		RetryInterval: cfg.SubmitRetryInterval,
	}, ss, logger)
	es.onReady = func(order ExpireOrder) { p.submit.AddOrders(order) }

	st.On(store.ChannelSwapUnderwritten, p.onSwapUnderwritten)
	st.On(store.ChannelSwapUnderwriteComplete, p.onSwapUnderwriteComplete)
	st.On(store.ChannelExpireUnderwrite, p.onExpireUnderwrite)

	return p
}

func (p *Pipeline) onSwapUnderwritten(payload []byte) {
	var ev chain.SwapUnderwritten
	if err := json.Unmarshal(payload, &ev); err != nil {
		p.logger.Error("expirer: malformed SwapUnderwritten payload", "chain", p.chainID, "err", err)
		return
	}
	if ev.ToChainID != p.chainID {
		return
	}

	expireAt := ev.Expiry
	if ev.Underwriter == p.cfg.OwnAddress && expireAt > p.cfg.ExpireBlocksMargin {
		expireAt -= p.cfg.ExpireBlocksMargin
	}

	key := chain.SwapKey{ToChainID: ev.ToChainID, ToInterface: ev.ToInterface, UnderwriteID: ev.UnderwriteID}
	p.heap.Insert(&scheduledExpiry{
		key:           key,
		expireAt:      expireAt,
		underwriter:   ev.Underwriter,
		swapBlockTime: ev.BlockTimestamp,
	})
}

func (p *Pipeline) onSwapUnderwriteComplete(payload []byte) {
	var ev chain.SwapUnderwriteComplete
	if err := json.Unmarshal(payload, &ev); err != nil {
		p.logger.Error("expirer: malformed SwapUnderwriteComplete payload", "chain", p.chainID, "err", err)
		return
	}
	key := chain.SwapKey{ToChainID: ev.ToChainID, ToInterface: ev.ToInterface, UnderwriteID: ev.UnderwriteID}
	p.dropOrSupersede(key, "SwapUnderwriteComplete")
}

func (p *Pipeline) onExpireUnderwrite(payload []byte) {
	var ev chain.ExpireUnderwrite
	if err := json.Unmarshal(payload, &ev); err != nil {
		p.logger.Error("expirer: malformed ExpireUnderwrite payload", "chain", p.chainID, "err", err)
		return
	}
	key := chain.SwapKey{ToChainID: ev.ToChainID, ToInterface: ev.ToInterface, UnderwriteID: ev.UnderwriteID}
	p.dropOrSupersede(key, "ExpireUnderwrite")
}

// dropOrSupersede handles a terminal on-chain event for key: if it is still
// waiting in the heap, drop it outright. If it has already been admitted
// into eval/submit, it cannot be pulled back out of an in-flight queue, so
// mark it superseded instead and let the eventual submit result be
// discarded rather than acted on or logged as a surprise failure.
func (p *Pipeline) dropOrSupersede(key chain.SwapKey, source string) {
	if p.heap.Remove(key) {
		return
	}
	if p.inFlight.Contains(key) {
		p.superseded.Add(key)
		p.logger.Info("expirer: "+source+" raced an in-flight expire submission, result will be discarded", "underwriteId", key.UnderwriteID)
		return
	}
	p.logger.Warn("expirer: "+source+" for unknown pending expiry", "underwriteId", key.UnderwriteID)
}

// Run drives the eval/submit queues, the wallet client pump, and the
// expireAt admission sweep until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	go p.client.Run(ctx)
	go p.eval.Run(ctx)
	go p.submit.Run(ctx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.admit()
		}
	}
}

func (p *Pipeline) admit() {
	currentBlock, ok := p.monitor.CurrentBlock()
	if !ok {
		return
	}
	for _, e := range p.heap.PopReady(currentBlock) {
		id := fmt.Sprintf("expire-%s-%d", p.chainID, atomic.AddInt64(&p.idCounter, 1))
		p.inFlight.Add(e.key)
		p.eval.AddOrders(EvalOrder{ID: id, Key: e.key})
	}
}

// Size reports the combined eval+submit backlog for status logging.
func (p *Pipeline) Size() int {
	return p.eval.Size() + p.submit.Size()
}
