// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package approval owns one chain's ERC-20 allowance ledger: the amount an
// underwrite's destination interface is required to be able to pull versus
// the amount actually set on-chain, reconciling the two through the wallet.
package approval

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/wallet"
)

// allowanceKey identifies one (interface, asset) pair in the ledger.
type allowanceKey struct {
	Interface common.Address
	Asset     common.Address
}

// Order is the subset of an underwrite/expire order the ledger needs: which
// interface is the spender, which asset it must be able to pull, and how
// much.
type Order struct {
	Interface common.Address
	Asset     common.Address
	Allowance *uint256.Int
}

// approveMetadata rides along on the wallet reply so Run can roll back an
// optimistic update if the approve transaction never lands.
type approveMetadata struct {
	key    allowanceKey
	oldSet *uint256.Int
}

// Handler tracks required-vs-set allowances for one signer on one chain and
// batches reconciling approve() calls through that signer's Wallet.
type Handler struct {
	mu       sync.Mutex
	required map[allowanceKey]*uint256.Int
	set      map[allowanceKey]*uint256.Int
	dirty    mapset.Set[allowanceKey]

	walletPort wallet.Port
	idCounter  int64
	logger     log.Logger
}

// NewHandler constructs a Handler dispatching approvals over walletPort. Run
// must be called to drain wallet replies.
func NewHandler(walletPort wallet.Port, logger log.Logger) *Handler {
	return &Handler{
		required:   make(map[allowanceKey]*uint256.Int),
		set:        make(map[allowanceKey]*uint256.Int),
		dirty:      mapset.NewThreadUnsafeSet[allowanceKey](),
		walletPort: walletPort,
		logger:     logger,
	}
}

// Run drains approve-tx replies until ctx is cancelled, rolling back the
// optimistic `set` update on any failed approval.
func (h *Handler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reply, ok := <-h.walletPort.Replies:
			if !ok {
				return
			}
			h.handleReply(reply)
		}
	}
}

func (h *Handler) handleReply(reply wallet.Reply) {
	md, ok := reply.Metadata.(approveMetadata)
	if !ok {
		return
	}
	if reply.SubmissionError == nil && reply.ConfirmationError == nil {
		return
	}

	h.mu.Lock()
	h.set[md.key] = md.oldSet
	h.mu.Unlock()
	h.logger.Warn("approval: approve tx failed, rolled back optimistic allowance",
		"interface", md.key.Interface, "asset", md.key.Asset,
		"err", firstNonNil(reply.SubmissionError, reply.ConfirmationError))
}

func firstNonNil(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

// UpdateAllowances folds each order's required allowance into the ledger and
// runs a reconciliation pass.
func (h *Handler) UpdateAllowances(ctx context.Context, orders ...Order) {
	h.mu.Lock()
	for _, o := range orders {
		key := allowanceKey{Interface: o.Interface, Asset: o.Asset}
		cur := h.required[key]
		if cur == nil {
			cur = uint256.NewInt(0)
		}
		h.required[key] = new(uint256.Int).Add(cur, o.Allowance)
		h.dirty.Add(key)
	}
	h.mu.Unlock()

	h.setAllowances(ctx)
}

// RegisterRequiredAllowanceDecrease reduces the required side of the ledger,
// used when an order is cancelled before submission. An over-approved
// allowance left on-chain is harmless and is consumed by the next order for
// the same asset, so this does not force a reconciliation pass.
func (h *Handler) RegisterRequiredAllowanceDecrease(iface, asset common.Address, amount *uint256.Int) {
	key := allowanceKey{Interface: iface, Asset: asset}
	h.mu.Lock()
	defer h.mu.Unlock()
	cur := h.required[key]
	if cur == nil {
		return
	}
	h.required[key] = subClampZero(cur, amount)
}

// RegisterAllowanceUse decreases both required and set by the amount a
// successful underwrite actually consumed, so the next reconciliation does
// not issue a redundant approval for an already-spent allowance.
func (h *Handler) RegisterAllowanceUse(iface, asset common.Address, amount *uint256.Int) {
	key := allowanceKey{Interface: iface, Asset: asset}
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.required[key]; ok {
		h.required[key] = subClampZero(cur, amount)
	}
	if cur, ok := h.set[key]; ok {
		h.set[key] = subClampZero(cur, amount)
	}
}

func subClampZero(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(a, b)
}

// setAllowances walks every dirty (interface, asset) pair, optimistically
// bumps `set` to `required` before dispatching the approve tx (order among
// approvals is not preserved across failure), and asynchronously rolls the
// bump back if the approve never confirms.
func (h *Handler) setAllowances(ctx context.Context) {
	h.mu.Lock()
	keys := h.dirty.ToSlice()
	h.dirty.Clear()
	type dispatch struct {
		key    allowanceKey
		oldSet *uint256.Int
		newSet *uint256.Int
	}
	var toDispatch []dispatch
	for _, key := range keys {
		req := h.required[key]
		if req == nil {
			continue
		}
		cur := h.set[key]
		if cur == nil {
			cur = uint256.NewInt(0)
		}
		if cur.Cmp(req) == 0 {
			continue
		}
		h.set[key] = req
		toDispatch = append(toDispatch, dispatch{key: key, oldSet: cur, newSet: req})
	}
	h.mu.Unlock()

	for _, d := range toDispatch {
		data, err := chain.EncodeApprove(d.key.Interface, d.newSet)
		if err != nil {
			h.logger.Error("approval: encode approve failed", "asset", d.key.Asset, "err", err)
			h.mu.Lock()
			h.set[d.key] = d.oldSet
			h.mu.Unlock()
			continue
		}

		id := fmt.Sprintf("approve-%d", atomic.AddInt64(&h.idCounter, 1))
		req := wallet.PortRequest{
			MessageID: id,
			TxRequest: wallet.TxRequest{To: d.key.Asset, Data: data, Value: uint256.NewInt(0)},
			Metadata:  approveMetadata{key: d.key, oldSet: d.oldSet},
			Options:   wallet.OptionsNoNonceRetry(),
		}

		select {
		case h.walletPort.Requests <- req:
		case <-ctx.Done():
			return
		}
	}
}
