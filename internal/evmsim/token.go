// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evmsim

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swaprouter/swapcall"
)

// Token is an ERC20 whose balances and allowances live in contract storage,
// so they are covered by snapshots.
type Token struct {
	Address common.Address
	Symbol  string
}

// NewToken deploys a token at addr.
func NewToken(w *World, addr common.Address, symbol string) *Token {
	t := &Token{Address: addr, Symbol: symbol}
	w.Deploy(addr, t)
	return t
}

func balanceKey(owner common.Address) common.Hash {
	return slot("bal", owner.Bytes())
}

func allowanceKey(owner, spender common.Address) common.Hash {
	return slot("alw", owner.Bytes(), spender.Bytes())
}

// Mint credits to with amount.
func (t *Token) Mint(w *World, to common.Address, amount *uint256.Int) {
	bal := t.BalanceOf(w, to)
	writeAmount(w.State, t.Address, balanceKey(to), bal.Add(bal, amount))
}

// BalanceOf reads owner's balance directly from state.
func (t *Token) BalanceOf(w *World, owner common.Address) *uint256.Int {
	return readAmount(w.State, t.Address, balanceKey(owner))
}

// Allowance reads the allowance directly from state.
func (t *Token) Allowance(w *World, owner, spender common.Address) *uint256.Int {
	return readAmount(w.State, t.Address, allowanceKey(owner, spender))
}

// SetAllowance writes an allowance directly to state.
func (t *Token) SetAllowance(w *World, owner, spender common.Address, amount *uint256.Int) {
	writeAmount(w.State, t.Address, allowanceKey(owner, spender), amount)
}

func (t *Token) Call(ctx *CallContext) ([]byte, error) {
	name, args, err := decode(swapcall.ERC20ABI, ctx.Input)
	if err != nil {
		return nil, err
	}
	w := ctx.World
	switch name {
	case "balanceOf":
		return packAmount(swapcall.ERC20ABI, name, t.BalanceOf(w, argAddress(args, 0)))
	case "allowance":
		return packAmount(swapcall.ERC20ABI, name, t.Allowance(w, argAddress(args, 0), argAddress(args, 1)))
	case "approve":
		t.SetAllowance(w, ctx.Caller, argAddress(args, 0), argAmount(args, 1))
		return packBool(swapcall.ERC20ABI, name, true)
	case "transfer":
		if err := t.move(w, ctx.Caller, argAddress(args, 0), argAmount(args, 1)); err != nil {
			return nil, err
		}
		return packBool(swapcall.ERC20ABI, name, true)
	case "transferFrom":
		from, to, amount := argAddress(args, 0), argAddress(args, 1), argAmount(args, 2)
		allowed := t.Allowance(w, from, ctx.Caller)
		if allowed.Lt(amount) {
			return nil, Revert("%s: insufficient allowance", t.Symbol)
		}
		t.SetAllowance(w, from, ctx.Caller, allowed.Sub(allowed, amount))
		if err := t.move(w, from, to, amount); err != nil {
			return nil, err
		}
		return packBool(swapcall.ERC20ABI, name, true)
	default:
		return nil, Revert("%s: unsupported method %s", t.Symbol, name)
	}
}

func (t *Token) move(w *World, from, to common.Address, amount *uint256.Int) error {
	bal := t.BalanceOf(w, from)
	if bal.Lt(amount) {
		return Revert("%s: insufficient balance", t.Symbol)
	}
	writeAmount(w.State, t.Address, balanceKey(from), bal.Sub(bal, amount))
	dst := t.BalanceOf(w, to)
	writeAmount(w.State, t.Address, balanceKey(to), dst.Add(dst, amount))
	return nil
}
