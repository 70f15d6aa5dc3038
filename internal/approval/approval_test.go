// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package approval

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/wallet"
	"github.com/stretchr/testify/require"
)

func newTestHandler() (*Handler, chan wallet.PortRequest, chan wallet.Reply) {
	requests := make(chan wallet.PortRequest, 16)
	replies := make(chan wallet.Reply, 16)
	port := wallet.Port{Requests: requests, Replies: replies}
	return NewHandler(port, log.Root()), requests, replies
}

func TestUpdateAllowances_DispatchesApproveOnFirstUse(t *testing.T) {
	h, requests, _ := newTestHandler()
	iface := common.HexToAddress("0xaaaa")
	asset := common.HexToAddress("0xbbbb")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.UpdateAllowances(ctx, Order{Interface: iface, Asset: asset, Allowance: uint256.NewInt(100)})

	select {
	case req := <-requests:
		require.Equal(t, asset, req.TxRequest.To)
		require.NotEmpty(t, req.TxRequest.Data)
	case <-time.After(time.Second):
		t.Fatal("expected an approve request to be dispatched")
	}
}

func TestUpdateAllowances_NoRedispatchWhenAlreadySatisfied(t *testing.T) {
	h, requests, _ := newTestHandler()
	iface := common.HexToAddress("0xaaaa")
	asset := common.HexToAddress("0xbbbb")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.UpdateAllowances(ctx, Order{Interface: iface, Asset: asset, Allowance: uint256.NewInt(100)})
	<-requests // drain the first approve dispatch; set is now 100, matching required

	// Marking the same key dirty again without changing required should not
	// trigger a second dispatch, since set already equals required.
	h.mu.Lock()
	h.dirty.Add(allowanceKey{Interface: iface, Asset: asset})
	h.mu.Unlock()
	h.setAllowances(ctx)

	select {
	case <-requests:
		t.Fatal("did not expect a second approve dispatch")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleReply_RollsBackOnFailure(t *testing.T) {
	h, requests, replies := newTestHandler()
	iface := common.HexToAddress("0xaaaa")
	asset := common.HexToAddress("0xbbbb")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.UpdateAllowances(ctx, Order{Interface: iface, Asset: asset, Allowance: uint256.NewInt(100)})
	req := <-requests

	key := allowanceKey{Interface: iface, Asset: asset}
	h.mu.Lock()
	require.Equal(t, uint256.NewInt(100), h.set[key])
	h.mu.Unlock()

	replies <- wallet.Reply{MessageID: req.MessageID, Metadata: req.Metadata, SubmissionError: context.DeadlineExceeded}
	go h.Run(ctx)

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.set[key].Cmp(uint256.NewInt(0)) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRegisterAllowanceUse_DecreasesBothMaps(t *testing.T) {
	h, requests, _ := newTestHandler()
	iface := common.HexToAddress("0xaaaa")
	asset := common.HexToAddress("0xbbbb")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.UpdateAllowances(ctx, Order{Interface: iface, Asset: asset, Allowance: uint256.NewInt(100)})
	<-requests

	h.RegisterAllowanceUse(iface, asset, uint256.NewInt(40))

	key := allowanceKey{Interface: iface, Asset: asset}
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Equal(t, uint256.NewInt(60), h.required[key])
	require.Equal(t, uint256.NewInt(60), h.set[key])
}

func TestRegisterRequiredAllowanceDecrease_ClampsAtZero(t *testing.T) {
	h, requests, _ := newTestHandler()
	iface := common.HexToAddress("0xaaaa")
	asset := common.HexToAddress("0xbbbb")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.UpdateAllowances(ctx, Order{Interface: iface, Asset: asset, Allowance: uint256.NewInt(10)})
	<-requests

	h.RegisterRequiredAllowanceDecrease(iface, asset, uint256.NewInt(100))

	key := allowanceKey{Interface: iface, Asset: asset}
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Equal(t, uint256.NewInt(0), h.required[key])
}
