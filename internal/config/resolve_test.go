// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var errBadKey = errors.New("bad key")

func fakeDerive(_ string, _ string) (common.Address, error) {
	return common.HexToAddress("0xabc"), nil
}

func TestResolve_ChainOverridesGlobal(t *testing.T) {
	globalReward := "100"
	chainReward := "500"
	root := &Root{
		Global: GlobalConfig{MinUnderwriteReward: &globalReward},
		Chains: []ChainConfig{
			{ChainID: "1", RPCURL: "http://localhost:8545", MinUnderwriteReward: &chainReward},
			{ChainID: "2", RPCURL: "http://localhost:8546"},
		},
	}

	resolved, err := Resolve(root, fakeDerive)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	require.Equal(t, "500", resolved[0].Underwriter.MinUnderwriteReward.String())
	require.Equal(t, "100", resolved[1].Underwriter.MinUnderwriteReward.String())
}

func TestResolve_FallsBackToBuiltinDefaults(t *testing.T) {
	root := &Root{
		Chains: []ChainConfig{{ChainID: "1", RPCURL: "http://localhost:8545"}},
	}

	resolved, err := Resolve(root, fakeDerive)
	require.NoError(t, err)
	require.Equal(t, Defaults.BlockDelay, resolved[0].BlockDelay)
	require.Equal(t, Defaults.UnderwriteBlocksMargin, resolved[0].Underwriter.UnderwriteBlocksMargin)
	require.Equal(t, Defaults.MinUnderwriteDuration, resolved[0].Expirer.MinUnderwriteDuration)
}

func TestResolve_PopulatesWalletFeeConfig(t *testing.T) {
	root := &Root{
		Chains: []ChainConfig{{ChainID: "1", RPCURL: "http://localhost:8545"}},
	}

	resolved, err := Resolve(root, fakeDerive)
	require.NoError(t, err)

	fee := resolved[0].Wallet.Fee
	require.NotNil(t, fee.MaxAllowedPriorityFeePerGas)
	require.NotNil(t, fee.ConfiguredMaxFeePerGas)
	require.NotNil(t, fee.MaxAllowedGasPrice)
	require.NotZero(t, fee.MaxPriorityFeeAdjScaled)
	require.NotZero(t, fee.GasPriceAdjScaled)
	require.NotZero(t, fee.PriorityAdjustmentFactorScaled)
}

func TestResolve_ChainOverridesGlobalFeeCaps(t *testing.T) {
	globalCap := "1000000000"
	chainCap := "2000000000"
	root := &Root{
		Global: GlobalConfig{ConfiguredMaxFeePerGas: &globalCap},
		Chains: []ChainConfig{
			{ChainID: "1", RPCURL: "http://localhost:8545", ConfiguredMaxFeePerGas: &chainCap},
			{ChainID: "2", RPCURL: "http://localhost:8546"},
		},
	}

	resolved, err := Resolve(root, fakeDerive)
	require.NoError(t, err)
	require.Equal(t, "2000000000", resolved[0].Wallet.Fee.ConfiguredMaxFeePerGas.String())
	require.Equal(t, "1000000000", resolved[1].Wallet.Fee.ConfiguredMaxFeePerGas.String())
}

func TestResolve_ChainOverridesGlobalMinExpireReward(t *testing.T) {
	globalFloor := "10"
	chainFloor := "50"
	root := &Root{
		Global: GlobalConfig{MinExpireReward: &globalFloor},
		Chains: []ChainConfig{
			{ChainID: "1", RPCURL: "http://localhost:8545", MinExpireReward: &chainFloor},
			{ChainID: "2", RPCURL: "http://localhost:8546"},
		},
	}

	resolved, err := Resolve(root, fakeDerive)
	require.NoError(t, err)
	require.Equal(t, "50", resolved[0].Expirer.MinExpireReward.String())
	require.Equal(t, "10", resolved[1].Expirer.MinExpireReward.String())
}

func TestResolve_PropagatesDeriveAddressError(t *testing.T) {
	root := &Root{Chains: []ChainConfig{{ChainID: "1"}}}

	_, err := Resolve(root, func(string, string) (common.Address, error) {
		return common.Address{}, errBadKey
	})
	require.Error(t, err)
}
