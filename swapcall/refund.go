// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
)

// RefundPolicy decides what is returned to the initiator.
type RefundPolicy struct{}

// Threshold is the cost of one plain native transfer at gasPrice. Native
// leftovers at or below it are not worth returning.
func (RefundPolicy) Threshold(gasPrice *uint256.Int) *uint256.Int {
	if gasPrice == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Mul(gasPrice, uint256.NewInt(GasPlainTransfer))
}

// DecideNative returns the amount to refund, or donate=true when remaining
// does not exceed threshold and stays with the orchestrator.
func (RefundPolicy) DecideNative(remaining, threshold *uint256.Int) (*uint256.Int, bool) {
	if remaining == nil || !remaining.Gt(threshold) {
		return uint256.NewInt(0), true
	}
	return remaining.Clone(), false
}

// SettleNative sweeps the orchestrator's whole native balance to initiator
// when it exceeds the dust threshold. Dust retained by earlier operations
// counts toward the threshold, so a leftover below it can still be refunded
// once accumulated residue pushes the balance over, and that residue goes
// to whoever triggers the sweep.
func (p RefundPolicy) SettleNative(f *Frame, initiator common.Address) RefundRecord {
	remaining := f.NativeBalance()
	amount, donate := p.DecideNative(remaining, p.Threshold(f.GasPrice()))
	if donate {
		return RefundRecord{Asset: NativeCurrency, Amount: uint256.NewInt(0), Donated: !remaining.IsZero()}
	}
	f.state.SubBalance(f.self, amount, tracing.BalanceChangeTransfer)
	f.state.AddBalance(initiator, amount, tracing.BalanceChangeTransfer)
	return RefundRecord{Asset: NativeCurrency, Amount: amount}
}

// SettleToken returns everything the operation left of token on the
// orchestrator above baseline. There is no threshold for tokens.
func (RefundPolicy) SettleToken(f *Frame, token Currency, initiator common.Address, baseline *uint256.Int) (RefundRecord, error) {
	now, err := tokenBalance(f, token, f.self)
	if err != nil {
		return RefundRecord{}, err
	}
	amount := uint256.NewInt(0)
	if now.Gt(baseline) {
		amount.Sub(now, baseline)
	}
	if !amount.IsZero() {
		if err := tokenTransfer(f, token, initiator, amount); err != nil {
			return RefundRecord{}, err
		}
	}
	return RefundRecord{Asset: token, Amount: amount}, nil
}
