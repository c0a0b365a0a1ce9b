// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swaprouter/contract"
)

// Frame is the execution context of one precompile invocation. External
// calls are made from Self and draw on the remaining gas.
type Frame struct {
	env   contract.AccessibleState
	state contract.StateDB
	self  common.Address
	gas   uint64
}

// NewFrame creates a frame for self with the given gas allowance.
func NewFrame(env contract.AccessibleState, self common.Address, gas uint64) *Frame {
	return &Frame{
		env:   env,
		state: env.GetStateDB(),
		self:  self,
		gas:   gas,
	}
}

// Self returns the orchestrator's address
func (f *Frame) Self() common.Address { return f.self }

// State returns the state database
func (f *Frame) State() contract.StateDB { return f.state }

// Gas returns the gas left in the frame
func (f *Frame) Gas() uint64 { return f.gas }

// UseGas charges a fixed cost against the frame.
func (f *Frame) UseGas(cost uint64) error {
	if f.gas < cost {
		f.gas = 0
		return ErrInsufficientGas
	}
	f.gas -= cost
	return nil
}

// Deadline is the venue deadline for swaps in this frame. Venue deadline
// logic is bypassed by passing the current block time.
func (f *Frame) Deadline() *uint256.Int {
	return uint256.NewInt(f.env.GetBlockContext().Timestamp())
}

// GasPrice is the gas price of the enclosing transaction.
func (f *Frame) GasPrice() *uint256.Int {
	if p := f.env.GetTxContext().GasPrice(); p != nil {
		return p
	}
	return uint256.NewInt(0)
}

// NativeBalance returns the orchestrator's native balance.
func (f *Frame) NativeBalance() *uint256.Int {
	return f.state.GetBalance(f.self).Clone()
}

// Call performs a message call from the orchestrator, forwarding all the
// remaining gas.
func (f *Frame) Call(to common.Address, input []byte, value *uint256.Int) ([]byte, error) {
	if value == nil {
		value = uint256.NewInt(0)
	}
	ret, left, err := f.env.GetCaller().Call(f.self, to, input, f.gas, value)
	f.gas = left
	return ret, err
}

// StaticCall performs a read-only message call from the orchestrator.
func (f *Frame) StaticCall(to common.Address, input []byte) ([]byte, error) {
	ret, left, err := f.env.GetCaller().StaticCall(f.self, to, input, f.gas)
	f.gas = left
	return ret, err
}
