// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expirer

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/underwriter"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	states map[chain.SwapKey]*chain.ActiveSwapState
}

func (f *fakeStore) Set(string, []byte) error                                   { return nil }
func (f *fakeStore) Get(string) ([]byte, bool, error)                           { return nil, false, nil }
func (f *fakeStore) Del(string) error                                          { return nil }
func (f *fakeStore) On(string, func([]byte)) func()                            { return func() {} }
func (f *fakeStore) Publish(string, []byte)                                    {}
func (f *fakeStore) SaveSwapState(*chain.ActiveSwapState) error                 { return nil }
func (f *fakeStore) GetSwapStateByExpectedUnderwrite(string, common.Address, common.Hash) (*chain.ActiveSwapState, bool, error) {
	return nil, false, nil
}
func (f *fakeStore) GetActiveUnderwriteState(key chain.SwapKey) (*chain.ActiveSwapState, bool, error) {
	s, ok := f.states[key]
	return s, ok, nil
}

func TestEvalStrategy_DropsWhenNotUnderwritten(t *testing.T) {
	key := chain.SwapKey{ToChainID: "1", ToInterface: common.HexToAddress("0x01"), UnderwriteID: common.HexToHash("0x1")}
	s := &evalStrategy{
		cfg:    Config{MinUnderwriteDuration: time.Hour},
		store:  &fakeStore{states: map[chain.SwapKey]*chain.ActiveSwapState{key: {Key: key, Status: chain.StatusFulfilled}}},
		logger: log.Root(),
	}

	outcome, err := s.HandleOrder(context.Background(), EvalOrder{ID: "1", Key: key}, 0)
	require.NoError(t, err)
	require.True(t, outcome.Drop)
}

func TestEvalStrategy_DropsWhenYoungerThanMinDuration(t *testing.T) {
	key := chain.SwapKey{ToChainID: "1", ToInterface: common.HexToAddress("0x01"), UnderwriteID: common.HexToHash("0x1")}
	s := &evalStrategy{
		cfg: Config{MinUnderwriteDuration: 2 * time.Hour},
		store: &fakeStore{states: map[chain.SwapKey]*chain.ActiveSwapState{
			key: {Key: key, Status: chain.StatusUnderwritten, LastTransitionTime: time.Now().Unix()},
		}},
		logger: log.Root(),
	}

	outcome, err := s.HandleOrder(context.Background(), EvalOrder{ID: "1", Key: key}, 0)
	require.NoError(t, err)
	require.True(t, outcome.Drop)
}

func TestEvalStrategy_ProducesExpireOrderWhenStaleEnough(t *testing.T) {
	key := chain.SwapKey{ToChainID: "1", ToInterface: common.HexToAddress("0x01"), UnderwriteID: common.HexToHash("0x1")}
	s := &evalStrategy{
		cfg: Config{MinUnderwriteDuration: 2 * time.Hour, MinExpireReward: uint256.NewInt(10)},
		store: &fakeStore{states: map[chain.SwapKey]*chain.ActiveSwapState{
			key: {Key: key, Status: chain.StatusUnderwritten, LastTransitionTime: time.Now().Add(-3 * time.Hour).Unix(), Units: uint256.NewInt(100)},
		}},
		pricing: underwriter.StaticRateOracle{},
		logger:  log.Root(),
	}

	outcome, err := s.HandleOrder(context.Background(), EvalOrder{ID: "1", Key: key}, 0)
	require.NoError(t, err)
	require.True(t, outcome.Settled)
	require.Equal(t, key, outcome.Result.State.Key)
}

func TestEvalStrategy_DropsWhenReclaimedValueBelowFloor(t *testing.T) {
	key := chain.SwapKey{ToChainID: "1", ToInterface: common.HexToAddress("0x01"), UnderwriteID: common.HexToHash("0x1")}
	s := &evalStrategy{
		cfg: Config{MinUnderwriteDuration: 2 * time.Hour, MinExpireReward: uint256.NewInt(1000)},
		store: &fakeStore{states: map[chain.SwapKey]*chain.ActiveSwapState{
			key: {Key: key, Status: chain.StatusUnderwritten, LastTransitionTime: time.Now().Add(-3 * time.Hour).Unix(), Units: uint256.NewInt(100)},
		}},
		pricing: underwriter.StaticRateOracle{},
		logger:  log.Root(),
	}

	outcome, err := s.HandleOrder(context.Background(), EvalOrder{ID: "1", Key: key}, 0)
	require.NoError(t, err)
	require.True(t, outcome.Drop)
}
