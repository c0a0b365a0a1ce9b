// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestRefundThreshold(t *testing.T) {
	var p RefundPolicy
	require.Equal(t, uint64(21_000_000_000_000), p.Threshold(uint256.NewInt(1_000_000_000)).Uint64())
	require.True(t, p.Threshold(uint256.NewInt(0)).IsZero())
	require.True(t, p.Threshold(nil).IsZero())
}

func TestDecideNative(t *testing.T) {
	var p RefundPolicy
	threshold := uint256.NewInt(21_000)

	tests := []struct {
		name      string
		remaining *uint256.Int
		refund    uint64
		donate    bool
	}{
		{name: "nothing left", remaining: uint256.NewInt(0), donate: true},
		{name: "below threshold", remaining: uint256.NewInt(20_999), donate: true},
		{name: "at threshold", remaining: uint256.NewInt(21_000), donate: true},
		{name: "above threshold", remaining: uint256.NewInt(21_001), refund: 21_001},
		{name: "nil", remaining: nil, donate: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, donate := p.DecideNative(tt.remaining, threshold)
			require.Equal(t, tt.donate, donate)
			require.Equal(t, tt.refund, amount.Uint64())
		})
	}
}

func TestDecideNativeWithZeroGasPrice(t *testing.T) {
	var p RefundPolicy
	amount, donate := p.DecideNative(uint256.NewInt(1), p.Threshold(uint256.NewInt(0)))
	require.False(t, donate)
	require.Equal(t, uint64(1), amount.Uint64())
}
