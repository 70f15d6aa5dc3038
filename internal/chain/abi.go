// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

// selector returns the 4-byte function selector for a Solidity signature.
func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

var (
	fingerprintArgs = mustArguments(
		abi.Type{T: abi.AddressTy},        // toAccount
		abi.Type{T: abi.UintTy, Size: 256}, // units
		abi.Type{T: abi.UintTy, Size: 256}, // fromAmount - fee
		abi.Type{T: abi.AddressTy},         // fromAsset
		abi.Type{T: abi.UintTy, Size: 64},  // blockNumber
	)

	underwriteArgs = mustArguments(
		abi.Type{T: abi.AddressTy}, // toVault
		abi.Type{T: abi.AddressTy}, // toAsset
		abi.Type{T: abi.UintTy, Size: 256},
		abi.Type{T: abi.UintTy, Size: 256}, // minOut
		abi.Type{T: abi.AddressTy},         // toAccount
		abi.Type{T: abi.UintTy, Size: 16},  // underwriteIncentiveX16
		abi.Type{T: abi.BytesTy},           // calldata tail
	)
	expireUnderwriteArgs   = underwriteArgs
	underwriteSelector     = selector("underwrite(address,address,uint256,uint256,address,uint16,bytes)")
	expireUnderwriteSelec  = selector("expireUnderwrite(address,address,uint256,uint256,address,uint16,bytes)")
	approveArgs            = mustArguments(abi.Type{T: abi.AddressTy}, abi.Type{T: abi.UintTy, Size: 256})
	approveSelector        = selector("approve(address,uint256)")
)

func mustArguments(types ...abi.Type) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		args[i] = abi.Argument{Type: t}
	}
	return args
}

// UnderwriteCall holds the parameters of the underwrite() call.
type UnderwriteCall struct {
	ToVault                common.Address
	ToAsset                common.Address
	Units                  *uint256.Int
	MinOut                 *uint256.Int
	ToAccount              common.Address
	UnderwriteIncentiveX16 uint16
	CalldataTail           []byte
}

// Encode packs the call data for CatalystChainInterface.underwrite.
func (c UnderwriteCall) Encode() ([]byte, error) {
	packed, err := underwriteArgs.Pack(c.ToVault, c.ToAsset, c.Units.ToBig(), c.MinOut.ToBig(), c.ToAccount, c.UnderwriteIncentiveX16, c.CalldataTail)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, underwriteSelector...), packed...), nil
}

// ExpireUnderwriteCall holds the parameters of the expireUnderwrite() call;
// the ABI layout is identical to UnderwriteCall.
type ExpireUnderwriteCall = UnderwriteCall

// EncodeExpire packs the call data for CatalystChainInterface.expireUnderwrite.
func EncodeExpire(c ExpireUnderwriteCall) ([]byte, error) {
	packed, err := expireUnderwriteArgs.Pack(c.ToVault, c.ToAsset, c.Units.ToBig(), c.MinOut.ToBig(), c.ToAccount, c.UnderwriteIncentiveX16, c.CalldataTail)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, expireUnderwriteSelec...), packed...), nil
}

// packFingerprint ABI-encodes the SwapIdentifier tuple (toAccount, units,
// fromAmount-fee, fromAsset, blockNumber) ahead of hashing. The argument
// types are all fixed-size (address/uint), so packing a well-formed
// *SendAsset can never fail.
func packFingerprint(toAccount common.Address, units, net *uint256.Int, fromAsset common.Address, blockNumber uint64) ([]byte, error) {
	return fingerprintArgs.Pack(toAccount, units.ToBig(), net.ToBig(), fromAsset, blockNumber)
}

// EncodeApprove packs the call data for ERC-20 approve(spender, amount).
func EncodeApprove(spender common.Address, amount *uint256.Int) ([]byte, error) {
	packed, err := approveArgs.Pack(spender, amount.ToBig())
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, approveSelector...), packed...), nil
}
