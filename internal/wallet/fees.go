// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"context"

	"github.com/holiman/uint256"
)

// scaleBase is the shared denominator every decimal multiplier is encoded
// against, keeping fee math in integer arithmetic on 256-bit values.
const scaleBase = 10000

// maxAdjustmentFactorScaled bounds every configurable multiplier at 5x,
// encoded in scaleBase units, to stop fee runaway from a misconfigured
// multiplier.
const maxAdjustmentFactorScaled = 5 * scaleBase

// QueriedFeeData is what the chain currently reports.
type QueriedFeeData struct {
	IsEIP1559            bool
	BaseFee              *uint256.Int // EIP-1559 only
	MaxPriorityFeePerGas *uint256.Int // EIP-1559 only
	GasPrice             *uint256.Int // legacy only
}

// FeeOracle is the transport seam this package depends on to learn the
// chain's current fee market; the concrete implementation lives outside
// this package.
type FeeOracle interface {
	Query(ctx context.Context) (QueriedFeeData, error)
}

// FeeConfig holds the per-chain multipliers and caps. The *Scaled
// multipliers are scaled by scaleBase, each individually capped at
// maxAdjustmentFactorScaled; the *uint256.Int caps are absolute amounts.
type FeeConfig struct {
	MaxPriorityFeeAdjScaled      uint64
	MaxAllowedPriorityFeePerGas  *uint256.Int
	ConfiguredMaxFeePerGas       *uint256.Int
	GasPriceAdjScaled            uint64
	MaxAllowedGasPrice           *uint256.Int
	PriorityAdjustmentFactorScaled uint64 // applied only when this is a priority (replacement) computation
}

// FeeData is the computed fee fields to attach to one transaction.
type FeeData struct {
	IsEIP1559            bool
	MaxFeePerGas         *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
	GasPrice             *uint256.Int
}

func clampScaled(v uint64) uint64 {
	if v == 0 {
		return scaleBase
	}
	if v > maxAdjustmentFactorScaled {
		return maxAdjustmentFactorScaled
	}
	return v
}

func scale(v *uint256.Int, factorScaled uint64) *uint256.Int {
	out := new(uint256.Int).Mul(v, uint256.NewInt(factorScaled))
	return out.Div(out, uint256.NewInt(scaleBase))
}

func minU256(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// ComputeFeeData implements the fee algorithm from the design:
//
//	maxPriorityFeePerGas <- min(queried.maxPriority * maxPriorityFeeAdj, maxAllowedPriorityFeePerGas)
//	maxFeePerGas         <- min(configured.maxFeePerGas, queried.baseFee*2 + maxPriorityFeePerGas)
//	if priority: multiply both by priorityAdjustmentFactor
//
// with the legacy branch substituting gasPrice for the EIP-1559 fields.
func ComputeFeeData(queried QueriedFeeData, cfg FeeConfig, priority bool) FeeData {
	priorityAdj := clampScaled(cfg.PriorityAdjustmentFactorScaled)
	if !priority {
		priorityAdj = scaleBase
	}

	if queried.IsEIP1559 {
		maxPriorityFeePerGas := minU256(scale(queried.MaxPriorityFeePerGas, clampScaled(cfg.MaxPriorityFeeAdjScaled)), cfg.MaxAllowedPriorityFeePerGas)
		twiceBase := new(uint256.Int).Mul(queried.BaseFee, uint256.NewInt(2))
		ceiling := new(uint256.Int).Add(twiceBase, maxPriorityFeePerGas)
		maxFeePerGas := minU256(cfg.ConfiguredMaxFeePerGas, ceiling)

		maxPriorityFeePerGas = scale(maxPriorityFeePerGas, priorityAdj)
		maxFeePerGas = scale(maxFeePerGas, priorityAdj)

		return FeeData{IsEIP1559: true, MaxFeePerGas: maxFeePerGas, MaxPriorityFeePerGas: maxPriorityFeePerGas}
	}

	gasPrice := minU256(scale(queried.GasPrice, clampScaled(cfg.GasPriceAdjScaled)), cfg.MaxAllowedGasPrice)
	gasPrice = scale(gasPrice, priorityAdj)
	return FeeData{IsEIP1559: false, GasPrice: gasPrice}
}

// IncreasedFeeData computes the bumped fee for a stuck transaction's
// replacement: the per-field max of (original * priorityFactor) and a
// freshly-queried priority-fee bundle.
func IncreasedFeeData(original FeeData, queried QueriedFeeData, cfg FeeConfig) FeeData {
	fresh := ComputeFeeData(queried, cfg, true)

	if original.IsEIP1559 {
		priorityAdj := clampScaled(cfg.PriorityAdjustmentFactorScaled)
		bumpedMaxFee := scale(original.MaxFeePerGas, priorityAdj)
		bumpedPriority := scale(original.MaxPriorityFeePerGas, priorityAdj)
		return FeeData{
			IsEIP1559:            true,
			MaxFeePerGas:         maxU256(bumpedMaxFee, fresh.MaxFeePerGas),
			MaxPriorityFeePerGas: maxU256(bumpedPriority, fresh.MaxPriorityFeePerGas),
		}
	}

	priorityAdj := clampScaled(cfg.PriorityAdjustmentFactorScaled)
	bumped := scale(original.GasPrice, priorityAdj)
	return FeeData{IsEIP1559: false, GasPrice: maxU256(bumped, fresh.GasPrice)}
}

func maxU256(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
