// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package evmsim is a small simulated chain for driving precompiles against
// Go implementations of the contracts they call.
package evmsim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/luxfi/geth/core/vm"

	"github.com/luxfi/swaprouter/contract"
)

var _ contract.AccessibleState = (*World)(nil)
var _ contract.Caller = (*World)(nil)

// Gas charged by the simulator for entering a simulated contract.
const CallGas uint64 = 2_600

// MaxDepth bounds nested calls.
const MaxDepth = 64

// Errors
var (
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")
	ErrDepth               = errors.New("max call depth exceeded")
)

// revertSelector is the selector of Error(string).
var revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

var stringArgs = func() abi.Arguments {
	typ, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: typ}}
}()

// RevertError makes a simulated contract revert with an Error(string) reason.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

// Revert returns a revert with the formatted reason.
func Revert(format string, args ...interface{}) error {
	return &RevertError{Reason: fmt.Sprintf(format, args...)}
}

// EncodeRevert encodes reason as Error(string) revert data.
func EncodeRevert(reason string) []byte {
	packed, err := stringArgs.Pack(reason)
	if err != nil {
		panic(err)
	}
	return append(common.CopyBytes(revertSelector), packed...)
}

// DecodeRevert extracts the reason from Error(string) revert data.
func DecodeRevert(data []byte) (string, bool) {
	if len(data) < 4 || string(data[:4]) != string(revertSelector) {
		return "", false
	}
	values, err := stringArgs.Unpack(data[4:])
	if err != nil || len(values) != 1 {
		return "", false
	}
	reason, ok := values[0].(string)
	return reason, ok
}

// CallContext is what a simulated contract sees when it is called.
type CallContext struct {
	World    *World
	Caller   common.Address
	Self     common.Address
	Input    []byte
	Value    *uint256.Int
	ReadOnly bool
}

// Call performs a nested call from the contract being executed.
func (c *CallContext) Call(to common.Address, input []byte, value *uint256.Int) ([]byte, error) {
	if c.ReadOnly {
		ret, _, err := c.World.StaticCall(c.Self, to, input, c.World.gasFor())
		return ret, err
	}
	ret, _, err := c.World.Call(c.Self, to, input, c.World.gasFor(), value)
	return ret, err
}

// StaticCall performs a nested read-only call.
func (c *CallContext) StaticCall(to common.Address, input []byte) ([]byte, error) {
	ret, _, err := c.World.StaticCall(c.Self, to, input, c.World.gasFor())
	return ret, err
}

// Contract is a simulated contract.
type Contract interface {
	Call(ctx *CallContext) ([]byte, error)
}

// Block is the simulated block header.
type Block struct {
	Number uint64
	Time   uint64
}

type blockContext struct{ b Block }

func (c blockContext) Number() *big.Int  { return new(big.Int).SetUint64(c.b.Number) }
func (c blockContext) Timestamp() uint64 { return c.b.Time }

type txContext struct {
	origin   common.Address
	gasPrice *uint256.Int
}

func (c txContext) Origin() common.Address { return c.origin }
func (c txContext) GasPrice() *uint256.Int { return c.gasPrice.Clone() }

// World routes calls between accounts, simulated contracts and precompiles.
type World struct {
	State *StateDB
	Block Block

	gasPrice *uint256.Int
	origin   common.Address
	nonce    uint64

	contracts   map[common.Address]Contract
	precompiles map[common.Address]contract.StatefulPrecompiledContract

	depth    int
	readOnly bool
}

// NewWorld creates a world at block 1 with a gas price of 1 gwei.
func NewWorld() *World {
	return &World{
		State:       NewStateDB(),
		Block:       Block{Number: 1, Time: 1_700_000_000},
		gasPrice:    uint256.NewInt(1_000_000_000),
		contracts:   make(map[common.Address]Contract),
		precompiles: make(map[common.Address]contract.StatefulPrecompiledContract),
	}
}

func (w *World) GetStateDB() contract.StateDB { return w.State }

func (w *World) GetBlockContext() contract.BlockContext { return blockContext{w.Block} }

func (w *World) GetTxContext() contract.TxContext {
	return txContext{origin: w.origin, gasPrice: w.gasPrice}
}

func (w *World) GetCaller() contract.Caller { return w }

// SetGasPrice sets the gas price of subsequent transactions.
func (w *World) SetGasPrice(p *uint256.Int) {
	w.gasPrice = p.Clone()
}

// Deploy installs a simulated contract at addr.
func (w *World) Deploy(addr common.Address, c Contract) {
	w.contracts[addr] = c
	w.State.SetCodeSize(addr, 1)
}

// Install activates a precompile at addr.
func (w *World) Install(addr common.Address, p contract.StatefulPrecompiledContract) {
	w.precompiles[addr] = p
	w.State.SetCodeSize(addr, 1)
}

// Fund credits addr with native currency.
func (w *World) Fund(addr common.Address, amount *uint256.Int) {
	w.State.AddBalance(addr, amount, tracing.BalanceChangeUnspecified)
}

// Transact runs a top-level call from an externally owned account. State is
// left untouched when the call fails. Each transaction gets a distinct hash.
func (w *World) Transact(from, to common.Address, input []byte, value *uint256.Int, gas uint64) ([]byte, uint64, error) {
	w.nonce++
	w.origin = from
	w.State.SetTxHash(common.BytesToHash(crypto.Keccak256(from.Bytes(), binary.BigEndian.AppendUint64(nil, w.nonce))))
	ret, left, err := w.Call(from, to, input, gas, value)
	return ret, gas - left, err
}

// Query runs a top-level read-only call.
func (w *World) Query(from, to common.Address, input []byte) ([]byte, error) {
	ret, _, err := w.StaticCall(from, to, input, 10_000_000)
	return ret, err
}

// gasFor is the gas a simulated contract forwards to its own calls. The
// simulator does not meter simulated contracts beyond CallGas.
func (w *World) gasFor() uint64 {
	return 10_000_000
}

func (w *World) Call(from, to common.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	if value == nil {
		value = uint256.NewInt(0)
	}
	if w.readOnly && !value.IsZero() {
		return nil, gas, vm.ErrWriteProtection
	}
	return w.call(from, to, input, gas, value, w.readOnly)
}

func (w *World) StaticCall(from, to common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	w.State.freeze()
	prev := w.readOnly
	w.readOnly = true
	snap := w.State.Snapshot()

	ret, left, err := w.call(from, to, input, gas, uint256.NewInt(0), true)

	w.readOnly = prev
	if violated := w.State.thaw(); violated && err == nil {
		err = vm.ErrWriteProtection
		ret = nil
	}
	w.State.RevertToSnapshot(snap)
	return ret, left, err
}

func (w *World) call(from, to common.Address, input []byte, gas uint64, value *uint256.Int, readOnly bool) ([]byte, uint64, error) {
	if w.depth >= MaxDepth {
		return nil, gas, ErrDepth
	}
	w.depth++
	defer func() { w.depth-- }()

	snap := w.State.Snapshot()
	if !value.IsZero() {
		if w.State.GetBalance(from).Lt(value) {
			return nil, gas, ErrInsufficientBalance
		}
		w.State.SubBalance(from, value, tracing.BalanceChangeTransfer)
		w.State.AddBalance(to, value, tracing.BalanceChangeTransfer)
	}

	var (
		ret  []byte
		left = gas
		err  error
	)
	if p, ok := w.precompiles[to]; ok {
		ret, left, err = p.Run(w, from, to, input, value, gas, readOnly)
	} else if c, ok := w.contracts[to]; ok {
		if gas < CallGas {
			w.State.RevertToSnapshot(snap)
			return nil, 0, vm.ErrOutOfGas
		}
		left = gas - CallGas
		ret, err = c.Call(&CallContext{
			World:    w,
			Caller:   from,
			Self:     to,
			Input:    input,
			Value:    value.Clone(),
			ReadOnly: readOnly,
		})
		var revert *RevertError
		if errors.As(err, &revert) {
			ret, err = EncodeRevert(revert.Reason), vm.ErrExecutionReverted
		}
	}

	if err != nil {
		w.State.RevertToSnapshot(snap)
		return ret, left, err
	}
	return ret, left, nil
}
