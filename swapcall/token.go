// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// maxUint256 is the unscoped allowance and the "no limit" swap bound.
var maxUint256 = new(uint256.Int).SetAllOne()

func tokenBalance(f *Frame, token Currency, owner common.Address) (*uint256.Int, error) {
	if token.IsNative() {
		return f.state.GetBalance(owner).Clone(), nil
	}
	input, err := ERC20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	ret, err := f.StaticCall(token.Address, input)
	if err != nil {
		return nil, fmt.Errorf("%w: balanceOf on %s: %w", ErrTokenCallFailed, token, err)
	}
	return decodeTokenWord(token, "balanceOf", ret)
}

func tokenAllowance(f *Frame, token Currency, owner, spender common.Address) (*uint256.Int, error) {
	input, err := ERC20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	ret, err := f.StaticCall(token.Address, input)
	if err != nil {
		return nil, fmt.Errorf("%w: allowance on %s: %w", ErrTokenCallFailed, token, err)
	}
	return decodeTokenWord(token, "allowance", ret)
}

func tokenApprove(f *Frame, token Currency, spender common.Address, amount *uint256.Int) error {
	return tokenCall(f, token, "approve", spender, amount.ToBig())
}

func tokenTransfer(f *Frame, token Currency, to common.Address, amount *uint256.Int) error {
	return tokenCall(f, token, "transfer", to, amount.ToBig())
}

func tokenTransferFrom(f *Frame, token Currency, from, to common.Address, amount *uint256.Int) error {
	return tokenCall(f, token, "transferFrom", from, to, amount.ToBig())
}

// tokenCall invokes a state-changing ERC20 method. Tokens that return
// nothing are accepted; tokens that return false are not.
func tokenCall(f *Frame, token Currency, method string, args ...interface{}) error {
	input, err := ERC20ABI.Pack(method, args...)
	if err != nil {
		return err
	}
	ret, err := f.Call(token.Address, input, nil)
	if err != nil {
		return fmt.Errorf("%w: %s on %s: %w", ErrTokenCallFailed, method, token, err)
	}
	if len(ret) >= 32 && new(uint256.Int).SetBytes(ret[:32]).IsZero() {
		return fmt.Errorf("%w: %s on %s returned false", ErrTokenCallFailed, method, token)
	}
	return nil
}

// decodeWord reads the first 32-byte word of return data as a uint256.
func decodeWord(ret []byte) (*uint256.Int, bool) {
	if len(ret) < 32 {
		return nil, false
	}
	return new(uint256.Int).SetBytes(ret[:32]), true
}

func decodeTokenWord(token Currency, method string, ret []byte) (*uint256.Int, error) {
	v, ok := decodeWord(ret)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s returned %d bytes", ErrTokenCallFailed, method, token, len(ret))
	}
	return v, nil
}

func bigOrZero(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}
