// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestUnderwriteCall_Encode_PrefixesSelector(t *testing.T) {
	call := UnderwriteCall{
		ToVault:                common.HexToAddress("0x1111111111111111111111111111111111111111"),
		ToAsset:                common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Units:                  uint256.NewInt(1_000_000),
		MinOut:                 uint256.NewInt(990_000),
		ToAccount:              common.HexToAddress("0x3333333333333333333333333333333333333333"),
		UnderwriteIncentiveX16: 42,
		CalldataTail:           []byte{0xde, 0xad, 0xbe, 0xef},
	}

	data, err := call.Encode()
	require.NoError(t, err)
	require.Len(t, data[:4], 4)
	require.Equal(t, underwriteSelector, data[:4])

	decoded, err := underwriteArgs.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, call.ToVault, decoded[0])
	require.Equal(t, call.ToAsset, decoded[1])
	require.Equal(t, call.Units.ToBig(), decoded[2])
	require.Equal(t, call.MinOut.ToBig(), decoded[3])
}

func TestEncodeExpire_UsesDistinctSelectorFromUnderwrite(t *testing.T) {
	call := ExpireUnderwriteCall{
		ToVault:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		ToAsset:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Units:     uint256.NewInt(1),
		MinOut:    uint256.NewInt(1),
		ToAccount: common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}

	underwriteData, err := UnderwriteCall(call).Encode()
	require.NoError(t, err)
	expireData, err := EncodeExpire(call)
	require.NoError(t, err)

	require.NotEqual(t, underwriteData[:4], expireData[:4])
	require.Equal(t, underwriteData[4:], expireData[4:], "argument layout is identical, only the selector differs")
}

func TestSendAsset_Fingerprint_DeterministicAndDistinguishesInputs(t *testing.T) {
	base := SendAsset{
		ToAccount:   common.HexToAddress("0x3333333333333333333333333333333333333333"),
		FromAsset:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		FromAmount:  uint256.NewInt(1_000_000),
		Fee:         uint256.NewInt(1_000),
		Units:       uint256.NewInt(999_000),
		BlockNumber: 42,
	}

	again := base
	require.Equal(t, base.Fingerprint(), again.Fingerprint())

	differentBlock := base
	differentBlock.BlockNumber = 43
	require.NotEqual(t, base.Fingerprint(), differentBlock.Fingerprint())

	differentUnits := base
	differentUnits.Units = uint256.NewInt(1)
	require.NotEqual(t, base.Fingerprint(), differentUnits.Fingerprint())
}

func TestEncodeApprove_PacksSpenderAndAmount(t *testing.T) {
	spender := common.HexToAddress("0x4444444444444444444444444444444444444444")
	amount := uint256.NewInt(500)

	data, err := EncodeApprove(spender, amount)
	require.NoError(t, err)
	require.Equal(t, approveSelector, data[:4])

	decoded, err := approveArgs.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, spender, decoded[0])
	require.Equal(t, amount.ToBig(), decoded[1])
}
