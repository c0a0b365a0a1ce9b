// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
	"github.com/stretchr/testify/require"
)

func TestSelectorsMatchSignatures(t *testing.T) {
	tests := []struct {
		method    string
		signature string
	}{
		{"exchangeNativeAndInvoke", "exchangeNativeAndInvoke(address,uint256,address,bytes)"},
		{"exchangeTokenAndInvoke", "exchangeTokenAndInvoke(address,uint256,address,uint256,address,bytes)"},
		{"exchangeTokenForNativeAndInvoke", "exchangeTokenForNativeAndInvoke(address,uint256,uint256,address,bytes)"},
		{"recoverCall", "recoverCall(address,bytes,uint256)"},
		{"setAdmin", "setAdmin(address)"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			sel := SwapCallABI.Selector(tt.method)
			require.Equal(t, crypto.Keccak256([]byte(tt.signature))[:4], sel[:])
		})
	}
	require.Equal(t, [4]byte{0x09, 0x5e, 0xa7, 0xb3}, ERC20ABI.Selector("approve"))
	require.Equal(t, [4]byte{}, SwapCallABI.Selector("missing"))
}

func TestSwapAndCallEventRoundTrip(t *testing.T) {
	ev := SwapAndCallEvent{
		Initiator:      common.HexToAddress("0xA11CE"),
		FromAsset:      NativeCurrency,
		ToAsset:        tokenB,
		TargetContract: common.HexToAddress("0x4001"),
		AmountIn:       uint256.NewInt(462_000_000_000_000),
		AmountRefunded: uint256.NewInt(42_000_000_000_000),
	}
	topics, data, err := SwapCallABI.PackEvent("SwapAndCall",
		ev.Initiator, ev.FromAsset.Address, ev.ToAsset.Address, ev.TargetContract,
		ev.AmountIn.ToBig(), ev.AmountRefunded.ToBig())
	require.NoError(t, err)
	require.Len(t, topics, 4)
	require.Equal(t, SwapAndCallTopic, topics[0])

	parsed, err := ParseSwapAndCall(&ethtypes.Log{Topics: topics, Data: data})
	require.NoError(t, err)
	require.Equal(t, ev, parsed)

	_, err = ParseSwapAndCall(&ethtypes.Log{Topics: topics[:2], Data: data})
	require.ErrorIs(t, err, errNotSwapAndCall)
}

func TestPackEventRejectsWrongArity(t *testing.T) {
	_, _, err := SwapCallABI.PackEvent("SwapAndCall", common.Address{})
	require.Error(t, err)
	_, _, err = SwapCallABI.PackEvent("Missing")
	require.Error(t, err)
}

func TestPackOutput(t *testing.T) {
	ret, err := SwapCallABI.PackOutput("exchangeNativeAndInvoke", big.NewInt(1), big.NewInt(2))
	require.NoError(t, err)
	require.Len(t, ret, 64)

	_, err = SwapCallABI.PackOutput("missing")
	require.Error(t, err)
}

func TestUnpackInputStrict(t *testing.T) {
	input, err := SwapCallABI.Pack("venueFor", common.HexToAddress("0x2001"))
	require.NoError(t, err)

	args, err := SwapCallABI.UnpackInput("venueFor", input[4:], true)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x2001"), args[0])

	_, err = SwapCallABI.UnpackInput("venueFor", append(input[4:], 0x01), true)
	require.Error(t, err)

	_, err = SwapCallABI.UnpackInput("missing", input[4:], true)
	require.Error(t, err)
}

func TestPackTopicAcceptsOnlyAddresses(t *testing.T) {
	addr := common.HexToAddress("0xA11CE")
	topic, err := packTopic(addr)
	require.NoError(t, err)
	require.Equal(t, common.BytesToHash(addr.Bytes()), topic)

	_, err = packTopic(big.NewInt(1))
	require.Error(t, err)
}
