// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/swaprouter/contract"
)

// SwapCallContract exposes an Orchestrator through the precompile ABI.
type SwapCallContract struct {
	orchestrator *Orchestrator
}

// NewContract wraps a fresh orchestrator. A nil logger selects the default.
func NewContract(logger log.Logger) *SwapCallContract {
	return &SwapCallContract{orchestrator: NewOrchestrator(logger)}
}

// Orchestrator returns the orchestrator behind the contract.
func (c *SwapCallContract) Orchestrator() *Orchestrator {
	return c.orchestrator
}

// Run executes the precompile
func (c *SwapCallContract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	value *uint256.Int,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	// Plain value transfer: venues push unspent native back here mid-operation.
	if len(input) == 0 {
		return nil, suppliedGas, nil
	}
	if len(input) < 4 {
		return nil, suppliedGas, ErrInvalidInput
	}

	method, err := SwapCallABI.MethodById(input[:4])
	if err != nil {
		return nil, suppliedGas, fmt.Errorf("%w: unknown selector 0x%x", ErrInvalidInput, input[:4])
	}
	if readOnly && !method.IsConstant() {
		return nil, suppliedGas, ErrWriteProtection
	}
	if !method.IsPayable() && value != nil && !value.IsZero() {
		return nil, suppliedGas, fmt.Errorf("%w: %s is not payable", ErrInvalidAmount, method.Name)
	}
	args, err := SwapCallABI.UnpackInput(method.Name, input[4:], true)
	if err != nil {
		return nil, suppliedGas, fmt.Errorf("%w: %s: %w", ErrInvalidInput, method.Name, err)
	}

	switch method.Name {
	case "exchangeNativeAndInvoke",
		"exchangeNativeAndInvokeDynamic",
		"exchangeTokenAndInvoke",
		"exchangeTokenAndInvokeDynamic",
		"exchangeTokenForNativeAndInvoke",
		"exchangeTokenForNativeAndInvokeDynamic":
		return c.exchange(accessibleState, caller, addr, method.Name, args, value, suppliedGas)
	case "recoverCall":
		return c.recoverCall(accessibleState, caller, addr, args, suppliedGas)
	case "setAdmin":
		return c.setAdmin(accessibleState.GetStateDB(), caller, addr, args, suppliedGas)
	case "admin":
		return c.viewAddress(method.Name, ReadAdmin(accessibleState.GetStateDB(), addr), suppliedGas)
	case "venueRegistry":
		return c.viewAddress(method.Name, ReadVenueRegistry(accessibleState.GetStateDB(), addr), suppliedGas)
	case "venueFor":
		return c.venueFor(accessibleState, addr, args, suppliedGas)
	case "minRefundThreshold":
		return c.minRefundThreshold(accessibleState, suppliedGas)
	default:
		return nil, suppliedGas, fmt.Errorf("%w: %s", ErrInvalidInput, method.Name)
	}
}

func (c *SwapCallContract) exchange(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	name string,
	args []interface{},
	value *uint256.Int,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasSwapAndCall {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasSwapAndCall

	op, err := decodeOperation(name, args)
	if err != nil {
		return nil, remainingGas, err
	}
	op.Initiator = caller
	op.AttachedValue = amountOrZero(value)

	receipt, remainingGas, err := c.orchestrator.Execute(accessibleState, addr, op, remainingGas)
	if err != nil {
		var revert *CallRevertError
		if errors.As(err, &revert) && revert.Reverted() {
			return common.CopyBytes(revert.Data), remainingGas, err
		}
		return nil, remainingGas, err
	}

	ret, err := SwapCallABI.PackOutput(name, receipt.Consumed.ToBig(), receipt.Refund.Amount.ToBig())
	if err != nil {
		return nil, remainingGas, err
	}
	return ret, remainingGas, nil
}

// decodeOperation maps the arguments of an exchange method to an Operation.
func decodeOperation(name string, args []interface{}) (*Operation, error) {
	d := argDecoder{args: args}
	op := &Operation{}
	switch name {
	case "exchangeNativeAndInvoke":
		op.TargetAsset = TokenCurrency(d.address(0))
		op.TargetAmount = d.amount(1)
		op.TargetContract = d.address(2)
		op.CallPayload = d.bytes(3)
	case "exchangeNativeAndInvokeDynamic":
		op.TargetAsset = TokenCurrency(d.address(0))
		op.TargetContract = d.address(1)
		op.PriceQuery = d.query(2)
		op.CallPayload = d.bytes(3)
	case "exchangeTokenAndInvoke":
		op.SourceAsset = TokenCurrency(d.address(0))
		op.SourceAmountIn = d.amount(1)
		op.TargetAsset = TokenCurrency(d.address(2))
		op.TargetAmount = d.amount(3)
		op.TargetContract = d.address(4)
		op.CallPayload = d.bytes(5)
	case "exchangeTokenAndInvokeDynamic":
		op.SourceAsset = TokenCurrency(d.address(0))
		op.SourceAmountIn = d.amount(1)
		op.TargetAsset = TokenCurrency(d.address(2))
		op.TargetContract = d.address(3)
		op.PriceQuery = d.query(4)
		op.CallPayload = d.bytes(5)
	case "exchangeTokenForNativeAndInvoke":
		op.SourceAsset = TokenCurrency(d.address(0))
		op.SourceAmountIn = d.amount(1)
		op.TargetAmount = d.amount(2)
		op.TargetContract = d.address(3)
		op.CallPayload = d.bytes(4)
	case "exchangeTokenForNativeAndInvokeDynamic":
		op.SourceAsset = TokenCurrency(d.address(0))
		op.SourceAmountIn = d.amount(1)
		op.TargetContract = d.address(2)
		op.PriceQuery = d.query(3)
		op.CallPayload = d.bytes(4)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, name)
	}
	if d.err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, name, d.err)
	}
	return op, nil
}

// argDecoder reads typed ABI arguments and keeps the first error.
type argDecoder struct {
	args []interface{}
	err  error
}

func (d *argDecoder) at(i int) interface{} {
	if i >= len(d.args) {
		if d.err == nil {
			d.err = fmt.Errorf("missing argument %d", i)
		}
		return nil
	}
	return d.args[i]
}

func (d *argDecoder) address(i int) common.Address {
	v, ok := d.at(i).(common.Address)
	if !ok && d.err == nil {
		d.err = fmt.Errorf("argument %d is not an address", i)
	}
	return v
}

func (d *argDecoder) amount(i int) *uint256.Int {
	v, ok := d.at(i).(*big.Int)
	if !ok {
		if d.err == nil {
			d.err = fmt.Errorf("argument %d is not a uint256", i)
		}
		return uint256.NewInt(0)
	}
	return uint256.MustFromBig(v)
}

func (d *argDecoder) bytes(i int) []byte {
	v, ok := d.at(i).([]byte)
	if !ok && d.err == nil {
		d.err = fmt.Errorf("argument %d is not bytes", i)
	}
	return v
}

// query is bytes that is never nil, so the operation is marked dynamic.
func (d *argDecoder) query(i int) []byte {
	if v := d.bytes(i); v != nil {
		return v
	}
	return []byte{}
}

func (c *SwapCallContract) recoverCall(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	args []interface{},
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasRecover {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasRecover

	d := argDecoder{args: args}
	target, data, value := d.address(0), d.bytes(1), d.amount(2)
	if d.err != nil {
		return nil, remainingGas, fmt.Errorf("%w: recoverCall: %w", ErrInvalidInput, d.err)
	}

	result, remainingGas, err := c.orchestrator.Recover(accessibleState, addr, caller, target, data, value, remainingGas)
	if err != nil {
		var revert *CallRevertError
		if errors.As(err, &revert) && revert.Reverted() {
			return common.CopyBytes(revert.Data), remainingGas, err
		}
		return nil, remainingGas, err
	}
	ret, err := SwapCallABI.PackOutput("recoverCall", result)
	if err != nil {
		return nil, remainingGas, err
	}
	return ret, remainingGas, nil
}

func (c *SwapCallContract) setAdmin(
	stateDB contract.StateDB,
	caller common.Address,
	addr common.Address,
	args []interface{},
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	// No admin configured means the admin surface is disabled.
	admin := ReadAdmin(stateDB, addr)
	if admin == (common.Address{}) || caller != admin {
		return nil, remainingGas, ErrUnauthorized
	}

	d := argDecoder{args: args}
	newAdmin := d.address(0)
	if d.err != nil {
		return nil, remainingGas, fmt.Errorf("%w: setAdmin: %w", ErrInvalidInput, d.err)
	}
	if newAdmin == (common.Address{}) {
		return nil, remainingGas, ErrInvalidAddress
	}

	setStateAddress(stateDB, addr, adminSlot, newAdmin)
	c.orchestrator.log.Info("swapcall: admin changed", "from", admin, "to", newAdmin)
	return nil, remainingGas, nil
}

// View functions

func (c *SwapCallContract) viewAddress(name string, value common.Address, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < GasView {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasView

	ret, err := SwapCallABI.PackOutput(name, value)
	if err != nil {
		return nil, remainingGas, err
	}
	return ret, remainingGas, nil
}

func (c *SwapCallContract) venueFor(
	accessibleState contract.AccessibleState,
	addr common.Address,
	args []interface{},
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasView {
		return nil, 0, ErrInsufficientGas
	}
	d := argDecoder{args: args}
	asset := d.address(0)
	if d.err != nil {
		return nil, suppliedGas - GasView, fmt.Errorf("%w: venueFor: %w", ErrInvalidInput, d.err)
	}

	f := NewFrame(accessibleState, addr, suppliedGas-GasView)
	locator := ExchangeLocator{Registry: ReadVenueRegistry(f.state, addr)}
	venue, err := locator.Resolve(f, TokenCurrency(asset))
	if err != nil {
		return nil, f.Gas(), err
	}
	ret, err := SwapCallABI.PackOutput("venueFor", venue.Address)
	if err != nil {
		return nil, f.Gas(), err
	}
	return ret, f.Gas(), nil
}

func (c *SwapCallContract) minRefundThreshold(accessibleState contract.AccessibleState, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < GasView {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasView

	threshold := RefundPolicy{}.Threshold(accessibleState.GetTxContext().GasPrice())
	ret, err := SwapCallABI.PackOutput("minRefundThreshold", threshold.ToBig())
	if err != nil {
		return nil, remainingGas, err
	}
	return ret, remainingGas, nil
}
