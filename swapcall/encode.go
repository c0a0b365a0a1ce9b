// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"
)

// MethodFor returns the exchange method that carries op.
func MethodFor(op *Operation) (string, error) {
	route, err := op.Route()
	if err != nil {
		return "", err
	}
	var name string
	switch route {
	case RouteNativeToToken:
		name = "exchangeNativeAndInvoke"
	case RouteTokenToToken:
		name = "exchangeTokenAndInvoke"
	case RouteTokenToNative:
		name = "exchangeTokenForNativeAndInvoke"
	}
	if op.Dynamic() {
		name += "Dynamic"
	}
	return name, nil
}

// EncodeOperation packs op as calldata for the precompile. Initiator and
// AttachedValue travel as the call's sender and value and are not encoded.
func EncodeOperation(op *Operation) (string, []byte, error) {
	name, err := MethodFor(op)
	if err != nil {
		return "", nil, err
	}
	if !op.Dynamic() && op.TargetAmount == nil {
		return "", nil, fmt.Errorf("%w: missing target amount", ErrInvalidAmount)
	}

	var (
		source   = op.SourceAsset.Address
		amountIn = amountOrZero(op.SourceAmountIn).ToBig()
		target   = op.TargetAsset.Address
		payload  = op.CallPayload
	)
	if payload == nil {
		payload = []byte{}
	}

	var args []interface{}
	switch name {
	case "exchangeNativeAndInvoke":
		args = []interface{}{target, op.TargetAmount.ToBig(), op.TargetContract, payload}
	case "exchangeNativeAndInvokeDynamic":
		args = []interface{}{target, op.TargetContract, op.PriceQuery, payload}
	case "exchangeTokenAndInvoke":
		args = []interface{}{source, amountIn, target, op.TargetAmount.ToBig(), op.TargetContract, payload}
	case "exchangeTokenAndInvokeDynamic":
		args = []interface{}{source, amountIn, target, op.TargetContract, op.PriceQuery, payload}
	case "exchangeTokenForNativeAndInvoke":
		args = []interface{}{source, amountIn, op.TargetAmount.ToBig(), op.TargetContract, payload}
	case "exchangeTokenForNativeAndInvokeDynamic":
		args = []interface{}{source, amountIn, op.TargetContract, op.PriceQuery, payload}
	}

	input, err := SwapCallABI.Pack(name, args...)
	if err != nil {
		return "", nil, err
	}
	return name, input, nil
}
