// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/swaprouter/contract"
)

// Orchestrator runs exchange-grant-invoke-verify-refund operations. One
// instance admits one operation at a time.
type Orchestrator struct {
	guard   Guard
	engine  SwapEngine
	prices  PriceResolver
	refunds RefundPolicy

	// GrantUnbounded selects the deprecated unscoped allowance grant.
	GrantUnbounded bool

	log log.Logger
}

// NewOrchestrator creates an orchestrator. A nil logger selects the default.
func NewOrchestrator(logger log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}
	return &Orchestrator{log: logger}
}

// Busy reports whether an operation is in flight.
func (o *Orchestrator) Busy() bool {
	return o.guard.Held()
}

// Execute runs op to completion from the orchestrator at self, or undoes
// every state change it made. The returned gas is what remains of gas.
func (o *Orchestrator) Execute(
	env contract.AccessibleState,
	self common.Address,
	op *Operation,
	gas uint64,
) (*Receipt, uint64, error) {
	if err := o.guard.Acquire(); err != nil {
		o.log.Warn("swapcall: operation rejected", "initiator", op.Initiator, "err", err)
		return nil, gas, err
	}
	defer o.guard.Release()

	stateDB := env.GetStateDB()
	snapshot := stateDB.Snapshot()
	f := NewFrame(env, self, gas)

	receipt, err := o.execute(f, op)
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		o.log.Warn("swapcall: operation aborted",
			"initiator", op.Initiator,
			"from", op.SourceAsset,
			"to", op.TargetAsset,
			"target", op.TargetContract,
			"err", err,
		)
		return nil, f.Gas(), err
	}

	o.log.Info("swapcall: operation completed",
		"initiator", op.Initiator,
		"route", receipt.Route,
		"targetAmount", receipt.TargetAmount,
		"consumed", receipt.Consumed,
		"refunded", receipt.Refund.Amount,
		"donated", receipt.Refund.Donated,
	)
	return receipt, f.Gas(), nil
}

func (o *Orchestrator) execute(f *Frame, op *Operation) (*Receipt, error) {
	route, err := op.Route()
	if err != nil {
		return nil, err
	}
	if err := validate(op, route); err != nil {
		return nil, err
	}

	registry := ReadVenueRegistry(f.state, f.self)
	if registry == (common.Address{}) {
		return nil, fmt.Errorf("%w: no venue registry configured", ErrConfiguration)
	}
	locator := ExchangeLocator{Registry: registry}
	gate := AllowanceGate{
		Check:          ReadConsumptionCheck(f.state, f.self),
		GrantUnbounded: o.GrantUnbounded,
	}

	targetAmount := op.TargetAmount
	if op.Dynamic() {
		if err := f.UseGas(GasPriceQuery); err != nil {
			return nil, err
		}
		targetAmount, err = o.prices.ResolveDynamicPrice(f, op.TargetContract, op.PriceQuery)
		if err != nil {
			return nil, err
		}
		o.log.Debug("swapcall: price resolved", "target", op.TargetContract, "amount", targetAmount)
	}

	var (
		consumed *uint256.Int
		refund   RefundRecord
	)
	switch route {
	case RouteNativeToToken:
		consumed, refund, err = o.nativeToToken(f, locator, gate, op, targetAmount)
	case RouteTokenToToken:
		consumed, refund, err = o.tokenToToken(f, locator, gate, op, targetAmount)
	case RouteTokenToNative:
		consumed, refund, err = o.tokenToNative(f, locator, gate, op, targetAmount)
	}
	if err != nil {
		return nil, err
	}

	event := SwapAndCallEvent{
		Initiator:      op.Initiator,
		FromAsset:      op.SourceAsset,
		ToAsset:        op.TargetAsset,
		TargetContract: op.TargetContract,
		AmountIn:       op.AmountIn(),
		AmountRefunded: refund.Amount.Clone(),
	}
	if err := emitSwapAndCall(f, event); err != nil {
		return nil, err
	}
	return &Receipt{
		Route:        route,
		TargetAmount: targetAmount.Clone(),
		Consumed:     consumed,
		Refund:       refund,
		Event:        event,
	}, nil
}

func validate(op *Operation, route Route) error {
	if op.TargetContract == (common.Address{}) {
		return fmt.Errorf("%w: target contract", ErrInvalidAddress)
	}
	if route == RouteTokenToToken && op.SourceAsset == op.TargetAsset {
		return fmt.Errorf("%w: source and target are both %s", ErrUnsupportedRoute, op.SourceAsset)
	}
	if !op.Dynamic() && (op.TargetAmount == nil || op.TargetAmount.IsZero()) {
		return fmt.Errorf("%w: target amount is zero", ErrInvalidAmount)
	}
	if op.AmountIn().IsZero() {
		return fmt.Errorf("%w: nothing supplied", ErrInvalidAmount)
	}
	if route != RouteNativeToToken && op.AttachedValue != nil && !op.AttachedValue.IsZero() {
		return fmt.Errorf("%w: native value attached to a token-sourced operation", ErrInvalidAmount)
	}
	return nil
}

func (o *Orchestrator) nativeToToken(
	f *Frame,
	locator ExchangeLocator,
	gate AllowanceGate,
	op *Operation,
	targetAmount *uint256.Int,
) (*uint256.Int, RefundRecord, error) {
	venue, err := locator.Resolve(f, op.TargetAsset)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	tokenBaseline, err := tokenBalance(f, op.TargetAsset, f.self)
	if err != nil {
		return nil, RefundRecord{}, err
	}

	consumed, err := o.engine.SwapNativeForExactTarget(f, venue, targetAmount, op.AmountIn())
	if err != nil {
		return nil, RefundRecord{}, err
	}
	o.log.Debug("swapcall: swapped", "venue", venue.Address, "consumed", consumed, "bought", targetAmount)

	if _, err := gate.InvokeWithAllowance(f, op.TargetAsset, targetAmount, op.TargetContract, op.CallPayload, tokenBaseline); err != nil {
		return nil, RefundRecord{}, err
	}
	return consumed, o.refunds.SettleNative(f, op.Initiator), nil
}

func (o *Orchestrator) tokenToToken(
	f *Frame,
	locator ExchangeLocator,
	gate AllowanceGate,
	op *Operation,
	targetAmount *uint256.Int,
) (*uint256.Int, RefundRecord, error) {
	venue, err := locator.Resolve(f, op.SourceAsset)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	if _, err := locator.Resolve(f, op.TargetAsset); err != nil {
		return nil, RefundRecord{}, err
	}
	sourceBaseline, err := tokenBalance(f, op.SourceAsset, f.self)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	targetBaseline, err := tokenBalance(f, op.TargetAsset, f.self)
	if err != nil {
		return nil, RefundRecord{}, err
	}

	consumed, err := o.engine.SwapExactSourceForExactTarget(
		f, venue, op.Initiator, op.SourceAsset, op.SourceAmountIn, op.TargetAsset, targetAmount,
	)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	o.log.Debug("swapcall: swapped", "venue", venue.Address, "consumed", consumed, "bought", targetAmount)

	if _, err := gate.InvokeWithAllowance(f, op.TargetAsset, targetAmount, op.TargetContract, op.CallPayload, targetBaseline); err != nil {
		return nil, RefundRecord{}, err
	}
	refund, err := o.refunds.SettleToken(f, op.SourceAsset, op.Initiator, sourceBaseline)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	return consumed, refund, nil
}

func (o *Orchestrator) tokenToNative(
	f *Frame,
	locator ExchangeLocator,
	gate AllowanceGate,
	op *Operation,
	targetAmount *uint256.Int,
) (*uint256.Int, RefundRecord, error) {
	venue, err := locator.Resolve(f, op.SourceAsset)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	sourceBaseline, err := tokenBalance(f, op.SourceAsset, f.self)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	nativeBaseline := f.NativeBalance()

	consumed, err := o.engine.SwapExactSourceForExactNative(
		f, venue, op.Initiator, op.SourceAsset, op.SourceAmountIn, targetAmount,
	)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	o.log.Debug("swapcall: swapped", "venue", venue.Address, "consumed", consumed, "bought", targetAmount)

	if _, err := gate.InvokeWithNativeValue(f, targetAmount, op.TargetContract, op.CallPayload, nativeBaseline); err != nil {
		return nil, RefundRecord{}, err
	}
	refund, err := o.refunds.SettleToken(f, op.SourceAsset, op.Initiator, sourceBaseline)
	if err != nil {
		return nil, RefundRecord{}, err
	}
	return consumed, refund, nil
}

// Recover performs an arbitrary call from the orchestrator on behalf of its
// admin. It is the escape hatch for assets stranded on the orchestrator.
func (o *Orchestrator) Recover(
	env contract.AccessibleState,
	self common.Address,
	caller common.Address,
	target common.Address,
	data []byte,
	value *uint256.Int,
	gas uint64,
) ([]byte, uint64, error) {
	if err := o.guard.Acquire(); err != nil {
		return nil, gas, err
	}
	defer o.guard.Release()

	stateDB := env.GetStateDB()
	admin := ReadAdmin(stateDB, self)
	if admin == (common.Address{}) || caller != admin {
		return nil, gas, ErrUnauthorized
	}
	if target == (common.Address{}) {
		return nil, gas, ErrInvalidAddress
	}

	f := NewFrame(env, self, gas)
	ret, err := invoke(f, target, data, value)
	if err != nil {
		return nil, f.Gas(), err
	}
	o.log.Info("swapcall: recovery call", "admin", caller, "target", target, "value", amountOrZero(value))
	return ret, f.Gas(), nil
}
