// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// AllowanceGate grants the target a spending right over the target asset,
// invokes it and proves the grant was consumed exactly.
type AllowanceGate struct {
	Check ConsumptionCheck

	// GrantUnbounded approves the maximum amount instead of targetAmount and
	// clears the residue after the call.
	//
	// Deprecated: an unscoped grant outlives the call that needed it. It
	// is kept for venues and targets written against the older behaviour and
	// always verifies consumption by balance.
	GrantUnbounded bool
}

// InvokeWithAllowance approves target for targetAmount of targetAsset, calls
// target with payload and verifies consumption. baseline is the
// orchestrator's balance of targetAsset before the operation began.
func (g AllowanceGate) InvokeWithAllowance(
	f *Frame,
	targetAsset Currency,
	targetAmount *uint256.Int,
	target common.Address,
	payload []byte,
	baseline *uint256.Int,
) ([]byte, error) {
	grant := targetAmount
	if g.GrantUnbounded {
		grant = maxUint256
	}
	if err := tokenApprove(f, targetAsset, target, grant); err != nil {
		return nil, err
	}

	ret, err := invoke(f, target, payload, nil)
	if err != nil {
		return nil, err
	}

	check := g.Check
	if g.GrantUnbounded {
		check = CheckBalance
	}
	switch check {
	case CheckAllowance:
		outstanding, err := tokenAllowance(f, targetAsset, f.self, target)
		if err != nil {
			return nil, err
		}
		if !outstanding.IsZero() {
			return nil, fmt.Errorf("%w: %s of %s left unspent by %s",
				ErrTargetConsumptionMismatch, outstanding, targetAsset, target.Hex())
		}
	case CheckBalance:
		if err := checkBaseline(f, targetAsset, baseline, target); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: consumption check %d", ErrConfiguration, check)
	}

	if g.GrantUnbounded {
		if err := tokenApprove(f, targetAsset, target, uint256.NewInt(0)); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// InvokeWithNativeValue calls target with nativeAmount attached and verifies
// the orchestrator's native balance is back at baseline.
func (g AllowanceGate) InvokeWithNativeValue(
	f *Frame,
	nativeAmount *uint256.Int,
	target common.Address,
	payload []byte,
	baseline *uint256.Int,
) ([]byte, error) {
	ret, err := invoke(f, target, payload, nativeAmount)
	if err != nil {
		return nil, err
	}
	if err := checkBaseline(f, NativeCurrency, baseline, target); err != nil {
		return nil, err
	}
	return ret, nil
}

// invoke performs the opaque call. Failures carry the callee's return data.
func invoke(f *Frame, target common.Address, payload []byte, value *uint256.Int) ([]byte, error) {
	ret, err := f.Call(target, payload, value)
	if err != nil {
		return nil, &CallRevertError{Target: target, Data: common.CopyBytes(ret), Err: err}
	}
	return ret, nil
}

func checkBaseline(f *Frame, asset Currency, baseline *uint256.Int, target common.Address) error {
	now, err := tokenBalance(f, asset, f.self)
	if err != nil {
		return err
	}
	if !now.Eq(baseline) {
		return fmt.Errorf("%w: %s balance %s after calling %s, want %s",
			ErrTargetConsumptionMismatch, asset, now, target.Hex(), baseline)
	}
	return nil
}
