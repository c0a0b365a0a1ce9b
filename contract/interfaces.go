// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the execution surface a stateful precompile sees:
// the state database, block and transaction context, and the message-call
// capability used to reach other accounts.
package contract

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/swaprouter/precompileconfig"
)

// StateDB is the subset of the EVM state a precompile may read and modify.
// Snapshot / RevertToSnapshot must cover balances, storage and logs.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash) common.Hash

	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int
	SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int

	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)
	GetCodeSize(addr common.Address) int

	AddLog(log *ethtypes.Log)
	TxHash() common.Hash

	Snapshot() int
	RevertToSnapshot(id int)
}

// BlockContext exposes the block the call executes in.
type BlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// TxContext exposes the transaction the call executes in.
type TxContext interface {
	Origin() common.Address
	GasPrice() *uint256.Int
}

// Caller performs message calls into other accounts. A reverted callee
// returns its revert data together with vm.ErrExecutionReverted.
type Caller interface {
	Call(from, to common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error)
	StaticCall(from, to common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error)
}

// AccessibleState is everything a precompile can reach during Run.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
	GetTxContext() TxContext
	GetCaller() Caller
}

// StatefulPrecompiledContract is a precompile with access to state. value has
// already been credited to addr when Run is invoked.
type StatefulPrecompiledContract interface {
	Run(
		accessibleState AccessibleState,
		caller common.Address,
		addr common.Address,
		input []byte,
		value *uint256.Int,
		suppliedGas uint64,
		readOnly bool,
	) (ret []byte, remainingGas uint64, err error)
}

// ConfigurationBlockContext is the block context available at activation.
type ConfigurationBlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// Configurator builds and applies a precompile's configuration.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(
		chainConfig precompileconfig.ChainConfig,
		cfg precompileconfig.Config,
		state StateDB,
		blockContext ConfigurationBlockContext,
	) error
}
