// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/underwriter/internal/expirer"
	"github.com/luxfi/underwriter/internal/underwriter"
	"github.com/luxfi/underwriter/internal/wallet"
)

// AddressFromPrivateKey recovers the signer address for a hex-encoded
// secp256k1 private key, accepting an optional "0x" prefix.
func AddressFromPrivateKey(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// scaleBase mirrors wallet.scaleBase; decimal multipliers below are encoded
// against it so downstream fee/allowance math stays in integer arithmetic.
const scaleBase = 10000

// Defaults holds the built-in fallbacks applied when neither a chain nor
// the global section sets a value.
var Defaults = struct {
	MaxPendingTransactions int
	Confirmations          uint64
	ConfirmationTimeout    time.Duration
	BlockDelay             uint64
	PollInterval           time.Duration
	MinUnderwriteReward    *uint256.Int
	MaxUnderwriteAllowed   *uint256.Int
	UnderwriteBlocksMargin uint64
	AllowanceBuffer        float64
	MaxSubmissionDelay     time.Duration
	ExpireBlocksMargin     uint64
	MinUnderwriteDuration  time.Duration
	MinExpireReward        *uint256.Int

	MaxPriorityFeeAdjustment    float64
	MaxAllowedPriorityFeePerGas *uint256.Int
	ConfiguredMaxFeePerGas      *uint256.Int
	GasPriceAdjustment          float64
	MaxAllowedGasPrice          *uint256.Int
	PriorityAdjustmentFactor    float64
}{
	MaxPendingTransactions: 16,
	Confirmations:          3,
	ConfirmationTimeout:    2 * time.Minute,
	BlockDelay:             2,
	PollInterval:           3 * time.Second,
	MinUnderwriteReward:    uint256.NewInt(0),
	MaxUnderwriteAllowed:   new(uint256.Int).SetAllOne(),
	UnderwriteBlocksMargin: 10,
	AllowanceBuffer:        0.05,
	MaxSubmissionDelay:     time.Minute,
	ExpireBlocksMargin:     20,
	MinUnderwriteDuration:  2 * time.Hour,
	MinExpireReward:        uint256.NewInt(0),

	MaxPriorityFeeAdjustment:    1.0,
	MaxAllowedPriorityFeePerGas: new(uint256.Int).SetAllOne(),
	ConfiguredMaxFeePerGas:      new(uint256.Int).SetAllOne(),
	GasPriceAdjustment:          1.0,
	MaxAllowedGasPrice:          new(uint256.Int).SetAllOne(),
	// PriorityAdjustmentFactor bumps a stuck transaction's replacement fee
	// by 12.5%, the smallest increment most nodes' mempools will accept as
	// a valid replacement.
	PriorityAdjustmentFactor: 1.125,
}

// ResolvedChainConfig is the fully-layered, effective configuration for one
// chain's workers. Workers never read Root/ChainConfig again after spawn.
type ResolvedChainConfig struct {
	ChainID    string
	RPCURL     string
	PrivateKey string
	OwnAddress common.Address

	BlockDelay   uint64
	PollInterval time.Duration

	Wallet      wallet.Config
	Underwriter underwriter.Config
	Expirer     expirer.Config
}

// Resolve layers chain ?? global ?? default exactly once per field for
// every chain in root. deriveAddress recovers a chain's signer address from
// its configured private key; pass nil to use AddressFromPrivateKey.
func Resolve(root *Root, deriveAddress func(chainID, privateKeyHex string) (common.Address, error)) ([]ResolvedChainConfig, error) {
	if deriveAddress == nil {
		deriveAddress = func(_ string, privateKeyHex string) (common.Address, error) {
			return AddressFromPrivateKey(privateKeyHex)
		}
	}
	out := make([]ResolvedChainConfig, 0, len(root.Chains))
	for _, c := range root.Chains {
		addr, err := deriveAddress(c.ChainID, c.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("chain %s: derive signer address: %w", c.ChainID, err)
		}

		maxPending := pickInt(c.MaxPendingTransactions, root.Global.MaxPendingTransactions, Defaults.MaxPendingTransactions)
		confirmations := pickU64(c.Confirmations, root.Global.Confirmations, Defaults.Confirmations)
		confirmTimeout := pickDurationMS(c.ConfirmationTimeoutMS, root.Global.ConfirmationTimeoutMS, Defaults.ConfirmationTimeout)
		blockDelay := pickU64(c.BlockDelay, root.Global.BlockDelay, Defaults.BlockDelay)
		pollInterval := pickDurationMS(c.PollIntervalMS, root.Global.PollIntervalMS, Defaults.PollInterval)

		minReward, err := pickAmount(c.MinUnderwriteReward, root.Global.MinUnderwriteReward, Defaults.MinUnderwriteReward)
		if err != nil {
			return nil, fmt.Errorf("chain %s: minUnderwriteReward: %w", c.ChainID, err)
		}
		maxAllowed, err := pickAmount(c.MaxUnderwriteAllowed, root.Global.MaxUnderwriteAllowed, Defaults.MaxUnderwriteAllowed)
		if err != nil {
			return nil, fmt.Errorf("chain %s: maxUnderwriteAllowed: %w", c.ChainID, err)
		}
		relativeMinReward := pickFloat(c.RelativeMinUnderwriteReward, root.Global.RelativeMinUnderwriteReward, 0)
		underwriteDelay := pickU64(c.UnderwriteDelay, root.Global.UnderwriteDelay, 0)
		underwriteMargin := pickU64(c.UnderwriteBlocksMargin, root.Global.UnderwriteBlocksMargin, Defaults.UnderwriteBlocksMargin)
		allowanceBuffer := pickFloat(c.AllowanceBuffer, root.Global.AllowanceBuffer, Defaults.AllowanceBuffer)
		maxSubmissionDelay := pickDurationMS(c.MaxSubmissionDelayMS, root.Global.MaxSubmissionDelayMS, Defaults.MaxSubmissionDelay)

		expireMargin := pickU64(c.ExpireBlocksMargin, root.Global.ExpireBlocksMargin, Defaults.ExpireBlocksMargin)
		minDuration := pickDurationMS(c.MinUnderwriteDurationMS, root.Global.MinUnderwriteDurationMS, Defaults.MinUnderwriteDuration)
		minExpireReward, err := pickAmount(c.MinExpireReward, root.Global.MinExpireReward, Defaults.MinExpireReward)
		if err != nil {
			return nil, fmt.Errorf("chain %s: minExpireReward: %w", c.ChainID, err)
		}

		maxPriorityFeeAdj := pickFloat(c.MaxPriorityFeeAdjustment, root.Global.MaxPriorityFeeAdjustment, Defaults.MaxPriorityFeeAdjustment)
		maxAllowedPriorityFee, err := pickAmount(c.MaxAllowedPriorityFeePerGas, root.Global.MaxAllowedPriorityFeePerGas, Defaults.MaxAllowedPriorityFeePerGas)
		if err != nil {
			return nil, fmt.Errorf("chain %s: maxAllowedPriorityFeePerGas: %w", c.ChainID, err)
		}
		configuredMaxFee, err := pickAmount(c.ConfiguredMaxFeePerGas, root.Global.ConfiguredMaxFeePerGas, Defaults.ConfiguredMaxFeePerGas)
		if err != nil {
			return nil, fmt.Errorf("chain %s: configuredMaxFeePerGas: %w", c.ChainID, err)
		}
		gasPriceAdj := pickFloat(c.GasPriceAdjustment, root.Global.GasPriceAdjustment, Defaults.GasPriceAdjustment)
		maxAllowedGasPrice, err := pickAmount(c.MaxAllowedGasPrice, root.Global.MaxAllowedGasPrice, Defaults.MaxAllowedGasPrice)
		if err != nil {
			return nil, fmt.Errorf("chain %s: maxAllowedGasPrice: %w", c.ChainID, err)
		}
		priorityAdjFactor := pickFloat(c.PriorityAdjustmentFactor, root.Global.PriorityAdjustmentFactor, Defaults.PriorityAdjustmentFactor)

		out = append(out, ResolvedChainConfig{
			ChainID:      c.ChainID,
			RPCURL:       c.RPCURL,
			PrivateKey:   c.PrivateKey,
			OwnAddress:   addr,
			BlockDelay:   blockDelay,
			PollInterval: pollInterval,
			Wallet: wallet.Config{
				MaxPendingTransactions: maxPending,
				Confirmations:          confirmations,
				ConfirmationTimeout:    confirmTimeout,
				MaxConfirmTries:        3,
				MaxSubmitTries:         3,
				SubmitRetryInterval:    5 * time.Second,
				Fee: wallet.FeeConfig{
					MaxPriorityFeeAdjScaled:        uint64(maxPriorityFeeAdj * scaleBase),
					MaxAllowedPriorityFeePerGas:    maxAllowedPriorityFee,
					ConfiguredMaxFeePerGas:         configuredMaxFee,
					GasPriceAdjScaled:              uint64(gasPriceAdj * scaleBase),
					MaxAllowedGasPrice:             maxAllowedGasPrice,
					PriorityAdjustmentFactorScaled: uint64(priorityAdjFactor * scaleBase),
				},
			},
			Underwriter: underwriter.Config{
				OwnAddress:                        addr,
				MinUnderwriteReward:               minReward,
				RelativeMinUnderwriteRewardScaled: uint64(relativeMinReward * scaleBase),
				MaxUnderwriteAllowed:              maxAllowed,
				UnderwriteDelay:                   underwriteDelay,
				UnderwriteBlocksMargin:            underwriteMargin,
				ExpectedUnderwriteWindowBlocks:    underwriteMargin * 10,
				AllowanceBufferScaled:             uint64(allowanceBuffer * scaleBase),
				MaxSubmissionDelay:                maxSubmissionDelay,
				MaxPendingTransactions:            maxPending,
				MaxSubmitTries:                    3,
				SubmitRetryInterval:               5 * time.Second,
			},
			Expirer: expirer.Config{
				OwnAddress:            addr,
				ExpireBlocksMargin:    expireMargin,
				MinUnderwriteDuration: minDuration,
				MinExpireReward:       minExpireReward,
				MaxSubmitTries:        1,
				SubmitRetryInterval:   5 * time.Second,
			},
		})
	}
	return out, nil
}

func pickInt(chain *int, global *int, def int) int {
	if chain != nil {
		return *chain
	}
	if global != nil {
		return *global
	}
	return def
}

func pickU64(chain *uint64, global *uint64, def uint64) uint64 {
	if chain != nil {
		return *chain
	}
	if global != nil {
		return *global
	}
	return def
}

func pickFloat(chain *float64, global *float64, def float64) float64 {
	if chain != nil {
		return *chain
	}
	if global != nil {
		return *global
	}
	return def
}

func pickDurationMS(chain *int64, global *int64, def time.Duration) time.Duration {
	if chain != nil {
		return time.Duration(*chain) * time.Millisecond
	}
	if global != nil {
		return time.Duration(*global) * time.Millisecond
	}
	return def
}

func pickAmount(chain *string, global *string, def *uint256.Int) (*uint256.Int, error) {
	s := ""
	if chain != nil {
		s = *chain
	} else if global != nil {
		s = *global
	}
	if s == "" {
		return def, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}
