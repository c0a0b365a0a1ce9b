// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	info, ok := Lookup(common.HexToAddress(SwapCallAddress))
	require.True(t, ok)
	require.Equal(t, "SWAP_CALL", info.Name)
	require.Equal(t, "LP-9090", info.LPRange)
	require.Equal(t, []string{"C", "Zoo"}, info.Chains)

	_, ok = Lookup(common.HexToAddress("0x9091"))
	require.False(t, ok)
}

func TestAddressesAreUnique(t *testing.T) {
	seen := make(map[common.Address]bool)
	for _, p := range AllPrecompiles {
		require.True(t, common.IsHexAddress(p.Address), p.Name)
		addr := common.HexToAddress(p.Address)
		require.False(t, seen[addr], p.Name)
		seen[addr] = true
	}
}
