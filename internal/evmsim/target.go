// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evmsim

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swaprouter/swapcall"
)

// TargetRawABI is the interface of the scripted target contract.
const TargetRawABI = `[
	{"type":"function","name":"purchase","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"purchaseWithNative","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"price","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"purchases","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// TargetABI is the parsed target interface.
var TargetABI = swapcall.ParseABI(TargetRawABI)

// TargetMode scripts how a target behaves when invoked.
type TargetMode uint8

const (
	// TargetExact takes exactly Price.
	TargetExact TargetMode = iota
	// TargetUnderConsume takes one unit less than Price.
	TargetUnderConsume
	// TargetRevert always reverts.
	TargetRevert
	// TargetReentrant calls Reentry before taking Price.
	TargetReentrant
	// TargetMutatingPrice writes state while quoting its price.
	TargetMutatingPrice
)

// RevertReason is the reason a TargetRevert target reverts with.
const RevertReason = "target: sold out"

// Reentry is the call a reentrant target makes while it is invoked.
type Reentry struct {
	To    common.Address
	Input []byte
	Value *uint256.Int
}

// Target is a third-party contract that sells something for Price of Asset.
// A zero Asset means it is paid in native currency.
type Target struct {
	Address common.Address
	Asset   common.Address
	Price   *uint256.Int
	Mode    TargetMode
	Reentry Reentry

	// ReentryErr is the error the reentrant call returned.
	ReentryErr error
}

// NewTarget deploys a target at addr.
func NewTarget(w *World, addr, asset common.Address, price *uint256.Int, mode TargetMode) *Target {
	t := &Target{Address: addr, Asset: asset, Price: price, Mode: mode}
	w.Deploy(addr, t)
	return t
}

var purchasesKey = slot("purchases")

// Purchases returns how many purchases completed.
func (t *Target) Purchases(w *World) uint64 {
	return readAmount(w.State, t.Address, purchasesKey).Uint64()
}

func (t *Target) Call(ctx *CallContext) ([]byte, error) {
	if len(ctx.Input) == 0 {
		return nil, nil
	}
	name, _, err := decode(TargetABI, ctx.Input)
	if err != nil {
		return nil, err
	}
	w := ctx.World
	switch name {
	case "price":
		if t.Mode == TargetMutatingPrice {
			writeAmount(w.State, t.Address, slot("quoted"), uint256.NewInt(1))
		}
		return packAmount(TargetABI, name, t.Price)
	case "purchases":
		return packAmount(TargetABI, name, readAmount(w.State, t.Address, purchasesKey))
	case "purchase":
		if err := t.before(ctx); err != nil {
			return nil, err
		}
		amount := t.Price
		if t.Mode == TargetUnderConsume {
			amount = new(uint256.Int).SubUint64(t.Price, 1)
		}
		input, err := swapcall.ERC20ABI.Pack("transferFrom", ctx.Caller, t.Address, amount.ToBig())
		if err != nil {
			return nil, err
		}
		if _, err := ctx.Call(t.Asset, input, nil); err != nil {
			return nil, err
		}
		return nil, t.record(w)
	case "purchaseWithNative":
		if err := t.before(ctx); err != nil {
			return nil, err
		}
		if !ctx.Value.Eq(t.Price) {
			return nil, Revert("target: wrong payment %s", ctx.Value)
		}
		if t.Mode == TargetUnderConsume {
			if _, err := ctx.Call(ctx.Caller, nil, uint256.NewInt(1)); err != nil {
				return nil, err
			}
		}
		return nil, t.record(w)
	default:
		return nil, Revert("target: unsupported method %s", name)
	}
}

func (t *Target) before(ctx *CallContext) error {
	switch t.Mode {
	case TargetRevert:
		return Revert(RevertReason)
	case TargetReentrant:
		_, t.ReentryErr = ctx.Call(t.Reentry.To, t.Reentry.Input, t.Reentry.Value)
	}
	return nil
}

func (t *Target) record(w *World) error {
	n := readAmount(w.State, t.Address, purchasesKey)
	writeAmount(w.State, t.Address, purchasesKey, n.AddUint64(n, 1))
	return nil
}
