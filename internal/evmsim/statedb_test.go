// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evmsim

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
	"github.com/stretchr/testify/require"
)

func TestStateDBSnapshotRevert(t *testing.T) {
	s := NewStateDB()
	addr := common.HexToAddress("0x01")
	key := common.HexToHash("0xaa")

	s.AddBalance(addr, uint256.NewInt(100), tracing.BalanceChangeUnspecified)
	s.SetState(addr, key, common.HexToHash("0x01"))

	snap := s.Snapshot()
	s.SubBalance(addr, uint256.NewInt(40), tracing.BalanceChangeTransfer)
	s.SetState(addr, key, common.HexToHash("0x02"))
	s.AddLog(&ethtypes.Log{Address: addr})
	require.Len(t, s.Logs(), 1)

	s.RevertToSnapshot(snap)
	require.Equal(t, uint64(100), s.GetBalance(addr).Uint64())
	require.Equal(t, common.HexToHash("0x01"), s.GetState(addr, key))
	require.Empty(t, s.Logs())
}

func TestStateDBNestedSnapshots(t *testing.T) {
	s := NewStateDB()
	addr := common.HexToAddress("0x01")

	outer := s.Snapshot()
	s.AddBalance(addr, uint256.NewInt(1), tracing.BalanceChangeUnspecified)
	inner := s.Snapshot()
	s.AddBalance(addr, uint256.NewInt(2), tracing.BalanceChangeUnspecified)

	s.RevertToSnapshot(inner)
	require.Equal(t, uint64(1), s.GetBalance(addr).Uint64())

	s.RevertToSnapshot(outer)
	require.True(t, s.GetBalance(addr).IsZero())
	require.False(t, s.Exist(addr))
}

func TestStateDBBalanceIsCopied(t *testing.T) {
	s := NewStateDB()
	addr := common.HexToAddress("0x01")
	s.AddBalance(addr, uint256.NewInt(5), tracing.BalanceChangeUnspecified)

	b := s.GetBalance(addr)
	b.SetUint64(1000)
	require.Equal(t, uint64(5), s.GetBalance(addr).Uint64())
}

func TestStateDBCodeSize(t *testing.T) {
	s := NewStateDB()
	addr := common.HexToAddress("0x01")
	require.Zero(t, s.GetCodeSize(addr))

	s.SetCodeSize(addr, 1)
	require.True(t, s.Exist(addr))
	require.Equal(t, 1, s.GetCodeSize(addr))
}
