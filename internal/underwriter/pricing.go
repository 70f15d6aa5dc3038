// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package underwriter

import "github.com/holiman/uint256"

// PricingOracle converts a quantity of toAsset into the common reward unit
// the profitability gates are expressed in. The source this was distilled
// from left the expected-out pricing formula as a TODO; this seam pins it
// down without inventing an external price-feed integration.
type PricingOracle interface {
	ValueOf(asset [20]byte, amount *uint256.Int) *uint256.Int
}

// StaticRateOracle assumes 1:1 expected-out pricing: every asset's value
// equals its raw amount. Adequate for single-asset-family deployments or as
// a placeholder until a real feed is wired in.
type StaticRateOracle struct{}

func (StaticRateOracle) ValueOf(_ [20]byte, amount *uint256.Int) *uint256.Int {
	return amount
}
