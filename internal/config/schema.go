// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads and validates the layered YAML configuration that
// describes which chains, AMBs, and endpoints this underwriter instance
// operates on, and resolves each chain's effective settings by layering
// chain-specific overrides over global defaults over built-in defaults.
package config

import (
	"fmt"
	"regexp"
)

var (
	hexAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	hexBytes32Re = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// GlobalConfig holds the defaults applied to every chain unless overridden.
type GlobalConfig struct {
	Port                  int      `mapstructure:"port"`
	LogLevel              string   `mapstructure:"logLevel"`
	MaxPendingTransactions *int    `mapstructure:"maxPendingTransactions"`
	Confirmations         *uint64  `mapstructure:"confirmations"`
	ConfirmationTimeoutMS *int64   `mapstructure:"confirmationTimeoutMs"`
	BlockDelay            *uint64 `mapstructure:"blockDelay"`
	PollIntervalMS        *int64   `mapstructure:"pollIntervalMs"`

	MinUnderwriteReward       *string `mapstructure:"minUnderwriteReward"`
	RelativeMinUnderwriteReward *float64 `mapstructure:"relativeMinUnderwriteReward"`
	MaxUnderwriteAllowed      *string `mapstructure:"maxUnderwriteAllowed"`
	UnderwriteDelay           *uint64 `mapstructure:"underwriteDelay"`
	UnderwriteBlocksMargin    *uint64 `mapstructure:"underwriteBlocksMargin"`
	AllowanceBuffer           *float64 `mapstructure:"allowanceBuffer"`
	MaxSubmissionDelayMS      *int64  `mapstructure:"maxSubmissionDelayMs"`

	ExpireBlocksMargin     *uint64 `mapstructure:"expireBlocksMargin"`
	MinUnderwriteDurationMS *int64  `mapstructure:"minUnderwriteDurationMs"`
	MinExpireReward        *string `mapstructure:"minExpireReward"`

	MaxPriorityFeeAdjustment    *float64 `mapstructure:"maxPriorityFeeAdjustment"`
	MaxAllowedPriorityFeePerGas *string  `mapstructure:"maxAllowedPriorityFeePerGas"`
	ConfiguredMaxFeePerGas      *string  `mapstructure:"configuredMaxFeePerGas"`
	GasPriceAdjustment          *float64 `mapstructure:"gasPriceAdjustment"`
	MaxAllowedGasPrice          *string  `mapstructure:"maxAllowedGasPrice"`
	PriorityAdjustmentFactor    *float64 `mapstructure:"priorityAdjustmentFactor"`
}

// AMBConfig describes one arbitrary-messaging-bridge configuration, entirely
// configuration-only from this core's perspective.
type AMBConfig struct {
	Name string `mapstructure:"name"`
}

// EndpointConfig describes the contracts deployed on one chain for one AMB.
type EndpointConfig struct {
	ChainID   string `mapstructure:"chainId"`
	AMB       string `mapstructure:"amb"`
	Factory   string `mapstructure:"factory"`
	Interface string `mapstructure:"interface"`
	Incentive string `mapstructure:"incentive"`
}

// ChainConfig is one chain's configuration; pointer fields are nullable
// overrides of GlobalConfig.
type ChainConfig struct {
	ChainID    string `mapstructure:"chainId"`
	RPCURL     string `mapstructure:"rpcUrl"`
	PrivateKey string `mapstructure:"privateKey"`

	MaxPendingTransactions *int    `mapstructure:"maxPendingTransactions"`
	Confirmations          *uint64 `mapstructure:"confirmations"`
	ConfirmationTimeoutMS  *int64  `mapstructure:"confirmationTimeoutMs"`
	BlockDelay             *uint64 `mapstructure:"blockDelay"`
	PollIntervalMS         *int64  `mapstructure:"pollIntervalMs"`

	MinUnderwriteReward         *string  `mapstructure:"minUnderwriteReward"`
	RelativeMinUnderwriteReward *float64 `mapstructure:"relativeMinUnderwriteReward"`
	MaxUnderwriteAllowed        *string  `mapstructure:"maxUnderwriteAllowed"`
	UnderwriteDelay             *uint64  `mapstructure:"underwriteDelay"`
	UnderwriteBlocksMargin      *uint64  `mapstructure:"underwriteBlocksMargin"`
	AllowanceBuffer             *float64 `mapstructure:"allowanceBuffer"`
	MaxSubmissionDelayMS        *int64   `mapstructure:"maxSubmissionDelayMs"`

	ExpireBlocksMargin      *uint64 `mapstructure:"expireBlocksMargin"`
	MinUnderwriteDurationMS *int64  `mapstructure:"minUnderwriteDurationMs"`
	MinExpireReward         *string `mapstructure:"minExpireReward"`

	MaxPriorityFeeAdjustment    *float64 `mapstructure:"maxPriorityFeeAdjustment"`
	MaxAllowedPriorityFeePerGas *string  `mapstructure:"maxAllowedPriorityFeePerGas"`
	ConfiguredMaxFeePerGas      *string  `mapstructure:"configuredMaxFeePerGas"`
	GasPriceAdjustment          *float64 `mapstructure:"gasPriceAdjustment"`
	MaxAllowedGasPrice          *string  `mapstructure:"maxAllowedGasPrice"`
	PriorityAdjustmentFactor    *float64 `mapstructure:"priorityAdjustmentFactor"`
}

// Root is the top-level shape of config.<env>.yaml.
type Root struct {
	Global    GlobalConfig     `mapstructure:"global"`
	AMBs      []AMBConfig      `mapstructure:"ambs"`
	Chains    []ChainConfig    `mapstructure:"chains"`
	Endpoints []EndpointConfig `mapstructure:"endpoints"`
}

// Validate checks every field the JSON schema constrains: hex addresses,
// bytes32, and that referenced chains/AMBs exist.
func (r *Root) Validate() error {
	chainIDs := make(map[string]bool, len(r.Chains))
	for i, c := range r.Chains {
		if c.ChainID == "" {
			return fmt.Errorf("chains[%d]: chainId is required", i)
		}
		if c.PrivateKey != "" && !hexBytes32Re.MatchString(c.PrivateKey) {
			return fmt.Errorf("chains[%d] (%s): privateKey must be a 32-byte hex string", i, c.ChainID)
		}
		chainIDs[c.ChainID] = true
	}
	ambNames := make(map[string]bool, len(r.AMBs))
	for _, a := range r.AMBs {
		ambNames[a.Name] = true
	}
	for i, e := range r.Endpoints {
		if !chainIDs[e.ChainID] {
			return fmt.Errorf("endpoints[%d]: unknown chainId %q", i, e.ChainID)
		}
		if !ambNames[e.AMB] {
			return fmt.Errorf("endpoints[%d]: unknown amb %q", i, e.AMB)
		}
		for name, v := range map[string]string{"factory": e.Factory, "interface": e.Interface, "incentive": e.Incentive} {
			if v != "" && !hexAddressRe.MatchString(v) {
				return fmt.Errorf("endpoints[%d]: %s must be a 20-byte hex address", i, name)
			}
		}
	}
	return nil
}
