// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/vm"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/swaprouter/internal/evmsim"
	"github.com/luxfi/swaprouter/swapcall"
)

func (e *testEnv) approve(t *testing.T, token *evmsim.Token, amount uint64) {
	t.Helper()
	input, err := swapcall.ERC20ABI.Pack("approve", e.self, new(big.Int).SetUint64(amount))
	require.NoError(t, err)
	_, _, err = e.w.Transact(alice, token.Address, input, nil, testGas)
	require.NoError(t, err)
}

func (e *testEnv) fundTokenA(t *testing.T, amount uint64) {
	t.Helper()
	e.tokenA.Mint(e.w, alice, uint256.NewInt(amount))
	e.approve(t, e.tokenA, amount)
}

// tokenQuote is what the AAA venue charges to deliver want of asset.
func (e *testEnv) tokenQuote(t *testing.T, asset common.Address, want *uint256.Int) *uint256.Int {
	t.Helper()
	native := want
	if asset != (common.Address{}) {
		var ok bool
		native, ok = e.market.Exchanges["BBB"].EthToTokenPrice(e.w, want)
		require.True(t, ok)
	}
	quote, ok := e.market.Exchanges["AAA"].TokenToEthPrice(e.w, native)
	require.True(t, ok)
	return quote
}

func scale(v *uint256.Int, num, den uint64) *uint256.Int {
	out := new(uint256.Int).Mul(v, uint256.NewInt(num))
	return out.Div(out, uint256.NewInt(den))
}

func TestNativeToTokenRefundsAboveThreshold(t *testing.T) {
	e := newTestEnv(t, "")
	target := e.deployTarget(tokenBAddr, evmsim.TargetExact)
	quote := e.nativeQuote(t)
	funded := scale(quote, 11, 10)
	before := e.w.State.GetBalance(alice)

	ret, err := e.transact(t, alice, funded, "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)

	consumed, refunded := unpackResult(t, "exchangeNativeAndInvoke", ret)
	require.Equal(t, quote, consumed)
	require.Equal(t, new(uint256.Int).Sub(funded, quote), refunded)
	threshold := swapcall.RefundPolicy{}.Threshold(e.w.GetTxContext().GasPrice())
	require.True(t, refunded.Gt(threshold))

	require.Equal(t, new(uint256.Int).Sub(before, quote), e.w.State.GetBalance(alice))
	require.True(t, e.w.State.GetBalance(e.self).IsZero())
	require.Equal(t, targetAmount, e.tokenB.BalanceOf(e.w, targetAddr))
	require.True(t, e.tokenB.BalanceOf(e.w, e.self).IsZero())
	require.True(t, e.tokenB.Allowance(e.w, e.self, targetAddr).IsZero())
	require.Equal(t, uint64(1), target.Purchases(e.w))

	logs := e.w.State.Logs()
	require.Len(t, logs, 1)
	ev, err := swapcall.ParseSwapAndCall(logs[0])
	require.NoError(t, err)
	require.Equal(t, alice, ev.Initiator)
	require.True(t, ev.FromAsset.IsNative())
	require.Equal(t, tokenBAddr, ev.ToAsset.Address)
	require.Equal(t, targetAddr, ev.TargetContract)
	require.Equal(t, funded, ev.AmountIn)
	require.Equal(t, refunded, ev.AmountRefunded)
	require.False(t, ev.AmountRefunded.IsZero())
}

func TestNativeDustIsRetainedThenSwept(t *testing.T) {
	e := newTestEnv(t, "")
	e.deployTarget(tokenBAddr, evmsim.TargetExact)

	quote := e.nativeQuote(t)
	funded := new(uint256.Int).AddUint64(quote, 1000)
	_, err := e.transact(t, alice, funded, "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)

	require.Equal(t, uint64(1000), e.w.State.GetBalance(e.self).Uint64())
	ev, err := swapcall.ParseSwapAndCall(e.w.State.Logs()[0])
	require.NoError(t, err)
	require.True(t, ev.AmountRefunded.IsZero())

	// The next refund above the threshold sweeps the residue along.
	quote = e.nativeQuote(t)
	funded = scale(quote, 11, 10)
	ret, err := e.transact(t, alice, funded, "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)

	_, refunded := unpackResult(t, "exchangeNativeAndInvoke", ret)
	want := new(uint256.Int).Sub(funded, quote)
	want.AddUint64(want, 1000)
	require.Equal(t, want, refunded)
	require.True(t, e.w.State.GetBalance(e.self).IsZero())
}

func TestRetainedDustCountsTowardThreshold(t *testing.T) {
	e := newTestEnv(t, "")
	e.deployTarget(tokenBAddr, evmsim.TargetExact)
	threshold := swapcall.RefundPolicy{}.Threshold(e.w.GetTxContext().GasPrice())
	residue := new(uint256.Int).Div(threshold, uint256.NewInt(2))
	residue.AddUint64(residue, 1)

	quote := e.nativeQuote(t)
	_, err := e.transact(t, alice, new(uint256.Int).Add(quote, residue), "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)
	require.Equal(t, residue, e.w.State.GetBalance(e.self))

	// This leftover alone stays below the threshold; with the residue it
	// clears it and both are returned.
	quote = e.nativeQuote(t)
	ret, err := e.transact(t, alice, new(uint256.Int).Add(quote, residue), "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)
	require.False(t, residue.Gt(threshold))

	_, refunded := unpackResult(t, "exchangeNativeAndInvoke", ret)
	require.Equal(t, new(uint256.Int).Add(residue, residue), refunded)
	require.True(t, e.w.State.GetBalance(e.self).IsZero())
}

func TestTokenToTokenRefundsLeftoverInFull(t *testing.T) {
	e := newTestEnv(t, "")
	target := e.deployTarget(tokenBAddr, evmsim.TargetExact)
	e.fundTokenA(t, 1000)
	quote := e.tokenQuote(t, tokenBAddr, targetAmount)

	ret, err := e.transact(t, alice, nil, "exchangeTokenAndInvoke",
		tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)

	consumed, refunded := unpackResult(t, "exchangeTokenAndInvoke", ret)
	require.Equal(t, quote, consumed)
	require.Equal(t, new(uint256.Int).Sub(uint256.NewInt(1000), quote), refunded)
	require.False(t, refunded.IsZero())

	require.Equal(t, refunded, e.tokenA.BalanceOf(e.w, alice))
	require.True(t, e.tokenA.BalanceOf(e.w, e.self).IsZero())
	require.True(t, e.tokenB.BalanceOf(e.w, e.self).IsZero())
	require.Equal(t, targetAmount, e.tokenB.BalanceOf(e.w, targetAddr))
	require.True(t, e.tokenB.Allowance(e.w, e.self, targetAddr).IsZero())
	require.True(t, e.tokenA.Allowance(e.w, e.self, e.market.Exchanges["AAA"].Address).IsZero())
	require.True(t, e.tokenA.Allowance(e.w, alice, e.self).IsZero())
	require.Equal(t, uint64(1), target.Purchases(e.w))

	ev, err := swapcall.ParseSwapAndCall(e.w.State.Logs()[0])
	require.NoError(t, err)
	require.Equal(t, tokenAAddr, ev.FromAsset.Address)
	require.Equal(t, uint64(1000), ev.AmountIn.Uint64())
	require.Equal(t, refunded, ev.AmountRefunded)
}

func TestTokenToTokenLeavesStrayTokens(t *testing.T) {
	e := newTestEnv(t, "")
	e.deployTarget(tokenBAddr, evmsim.TargetExact)
	e.fundTokenA(t, 1000)
	e.tokenA.Mint(e.w, e.self, uint256.NewInt(7))

	ret, err := e.transact(t, alice, nil, "exchangeTokenAndInvoke",
		tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)

	consumed, refunded := unpackResult(t, "exchangeTokenAndInvoke", ret)
	require.Equal(t, uint64(1000), new(uint256.Int).Add(consumed, refunded).Uint64())
	require.Equal(t, uint64(7), e.tokenA.BalanceOf(e.w, e.self).Uint64())
}

func TestTokenToNative(t *testing.T) {
	e := newTestEnv(t, "")
	target := e.deployTarget(common.Address{}, evmsim.TargetExact)
	e.fundTokenA(t, 1000)
	quote := e.tokenQuote(t, common.Address{}, targetAmount)

	ret, err := e.transact(t, alice, nil, "exchangeTokenForNativeAndInvoke",
		tokenAAddr, big.NewInt(1000), targetAmount.ToBig(), targetAddr, purchaseWithNativeCall)
	require.NoError(t, err)

	consumed, refunded := unpackResult(t, "exchangeTokenForNativeAndInvoke", ret)
	require.Equal(t, quote, consumed)
	require.Equal(t, new(uint256.Int).Sub(uint256.NewInt(1000), quote), refunded)
	require.Equal(t, targetAmount, e.w.State.GetBalance(targetAddr))
	require.True(t, e.w.State.GetBalance(e.self).IsZero())
	require.Equal(t, refunded, e.tokenA.BalanceOf(e.w, alice))
	require.Equal(t, uint64(1), target.Purchases(e.w))
}

func TestTargetConsumptionMismatch(t *testing.T) {
	tests := []struct {
		name   string
		check  string
		asset  common.Address
		method string
		args   func(t *testing.T) []interface{}
		value  func(e *testEnv, t *testing.T) *uint256.Int
	}{
		{
			name:   "native to token",
			asset:  tokenBAddr,
			method: "exchangeNativeAndInvoke",
			args: func(t *testing.T) []interface{} {
				return []interface{}{tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall}
			},
			value: func(e *testEnv, t *testing.T) *uint256.Int { return scale(e.nativeQuote(t), 11, 10) },
		},
		{
			name:   "token to token",
			asset:  tokenBAddr,
			method: "exchangeTokenAndInvoke",
			args: func(t *testing.T) []interface{} {
				return []interface{}{tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall}
			},
		},
		{
			name:   "token to token balance check",
			check:  "balance",
			asset:  tokenBAddr,
			method: "exchangeTokenAndInvoke",
			args: func(t *testing.T) []interface{} {
				return []interface{}{tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall}
			},
		},
		{
			name:   "token to native",
			method: "exchangeTokenForNativeAndInvoke",
			args: func(t *testing.T) []interface{} {
				return []interface{}{tokenAAddr, big.NewInt(1000), targetAmount.ToBig(), targetAddr, purchaseWithNativeCall}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, tt.check)
			target := e.deployTarget(tt.asset, evmsim.TargetUnderConsume)
			e.fundTokenA(t, 1000)
			var value *uint256.Int
			if tt.value != nil {
				value = tt.value(e, t)
			}
			before := e.balances(alice)

			_, err := e.transact(t, alice, value, tt.method, tt.args(t)...)
			require.ErrorIs(t, err, swapcall.ErrTargetConsumptionMismatch)

			require.Equal(t, before, e.balances(alice))
			require.Empty(t, e.w.State.Logs())
			require.Zero(t, target.Purchases(e.w))
		})
	}
}

func TestBalanceCheckAcceptsExactConsumption(t *testing.T) {
	e := newTestEnv(t, "balance")
	e.deployTarget(tokenBAddr, evmsim.TargetExact)
	e.tokenB.Mint(e.w, e.self, uint256.NewInt(3))

	_, err := e.transact(t, alice, scale(e.nativeQuote(t), 11, 10), "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)
	require.Equal(t, uint64(3), e.tokenB.BalanceOf(e.w, e.self).Uint64())
}

func TestUnboundedGrantIsCleared(t *testing.T) {
	e := newTestEnv(t, "")
	e.contract.Orchestrator().GrantUnbounded = true
	e.deployTarget(tokenBAddr, evmsim.TargetExact)

	_, err := e.transact(t, alice, scale(e.nativeQuote(t), 11, 10), "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)
	require.True(t, e.tokenB.Allowance(e.w, e.self, targetAddr).IsZero())

	e2 := newTestEnv(t, "")
	e2.contract.Orchestrator().GrantUnbounded = true
	e2.deployTarget(tokenBAddr, evmsim.TargetUnderConsume)
	_, err = e2.transact(t, alice, scale(e2.nativeQuote(t), 11, 10), "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.ErrorIs(t, err, swapcall.ErrTargetConsumptionMismatch)
}

func TestUnboundedGrantOnTokenRoute(t *testing.T) {
	e := newTestEnv(t, "")
	e.contract.Orchestrator().GrantUnbounded = true
	e.deployTarget(tokenBAddr, evmsim.TargetExact)
	e.fundTokenA(t, 1000)
	// Strays already on the orchestrator are neither refunded nor mistaken for leftovers.
	e.tokenA.Mint(e.w, e.self, uint256.NewInt(5))
	e.tokenB.Mint(e.w, e.self, uint256.NewInt(7))

	ret, err := e.transact(t, alice, nil, "exchangeTokenAndInvoke",
		tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)
	consumed, refunded := unpackResult(t, "exchangeTokenAndInvoke", ret)

	require.Equal(t, uint64(1000), consumed.Uint64()+refunded.Uint64())
	require.Equal(t, refunded, e.tokenA.BalanceOf(e.w, alice))
	require.Equal(t, uint64(5), e.tokenA.BalanceOf(e.w, e.self).Uint64())
	require.Equal(t, uint64(7), e.tokenB.BalanceOf(e.w, e.self).Uint64())
	require.True(t, e.tokenB.Allowance(e.w, e.self, targetAddr).IsZero())

	under := newTestEnv(t, "")
	under.contract.Orchestrator().GrantUnbounded = true
	under.deployTarget(tokenBAddr, evmsim.TargetUnderConsume)
	under.fundTokenA(t, 1000)
	before := under.balances(alice)

	_, err = under.transact(t, alice, nil, "exchangeTokenAndInvoke",
		tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.ErrorIs(t, err, swapcall.ErrTargetConsumptionMismatch)
	require.Equal(t, before, under.balances(alice))
}

func TestPullBeyondApprovalIsUnderfunded(t *testing.T) {
	e := newTestEnv(t, "")
	e.deployTarget(tokenBAddr, evmsim.TargetExact)
	e.fundTokenA(t, 1000)
	before := e.balances(alice)

	_, err := e.transact(t, alice, nil, "exchangeTokenAndInvoke",
		tokenAAddr, big.NewInt(1001), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.ErrorIs(t, err, swapcall.ErrUnderfundedSwap)
	require.ErrorIs(t, err, swapcall.ErrTokenCallFailed)
	require.Equal(t, before, e.balances(alice))
}

func TestReentrantCallIsRejected(t *testing.T) {
	e := newTestEnv(t, "")
	target := e.deployTarget(tokenBAddr, evmsim.TargetReentrant)
	reentry, err := swapcall.SwapCallABI.Pack("exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)
	target.Reentry = evmsim.Reentry{To: e.self, Input: reentry}

	_, err = e.transact(t, alice, scale(e.nativeQuote(t), 11, 10), "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)

	require.ErrorIs(t, target.ReentryErr, swapcall.ErrReentrancy)
	require.Len(t, e.w.State.Logs(), 1)
	require.Equal(t, uint64(1), target.Purchases(e.w))
	require.Equal(t, targetAmount, e.tokenB.BalanceOf(e.w, targetAddr))
	require.False(t, e.contract.Orchestrator().Busy())
}

func TestReentrantRecoveryIsRejected(t *testing.T) {
	e := newTestEnv(t, "")
	target := e.deployTarget(tokenBAddr, evmsim.TargetReentrant)
	e.tokenB.Mint(e.w, e.self, uint256.NewInt(50))
	steal, err := swapcall.ERC20ABI.Pack("transfer", targetAddr, big.NewInt(50))
	require.NoError(t, err)
	reentry, err := swapcall.SwapCallABI.Pack("recoverCall", tokenBAddr, steal, big.NewInt(0))
	require.NoError(t, err)
	target.Reentry = evmsim.Reentry{To: e.self, Input: reentry}

	_, err = e.transact(t, alice, scale(e.nativeQuote(t), 11, 10), "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)
	require.ErrorIs(t, target.ReentryErr, swapcall.ErrReentrancy)
	require.Equal(t, uint64(50), e.tokenB.BalanceOf(e.w, e.self).Uint64())
}

func TestOpaqueRevertIsPropagated(t *testing.T) {
	e := newTestEnv(t, "")
	e.deployTarget(tokenBAddr, evmsim.TargetRevert)
	before := e.balances(alice)

	ret, err := e.transact(t, alice, scale(e.nativeQuote(t), 11, 10), "exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.ErrorIs(t, err, swapcall.ErrOpaqueCallReverted)
	require.ErrorIs(t, err, vm.ErrExecutionReverted)

	var revert *swapcall.CallRevertError
	require.True(t, errors.As(err, &revert))
	require.Equal(t, targetAddr, revert.Target)
	require.True(t, revert.Reverted())

	reason, ok := evmsim.DecodeRevert(ret)
	require.True(t, ok)
	require.Equal(t, evmsim.RevertReason, reason)
	require.Equal(t, before, e.balances(alice))
	require.Empty(t, e.w.State.Logs())
}

func TestFailedOperationsLeaveNoTrace(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(e *testEnv)
		value   func(e *testEnv, t *testing.T) *uint256.Int
		method  string
		args    []interface{}
		wantErr error
	}{
		{
			name:    "venue not found for target",
			method:  "exchangeNativeAndInvoke",
			args:    []interface{}{tokenCAddr, targetAmount.ToBig(), targetAddr, []byte{}},
			value:   func(e *testEnv, t *testing.T) *uint256.Int { return ether(1) },
			wantErr: swapcall.ErrVenueNotFound,
		},
		{
			name:    "venue not found for token target",
			method:  "exchangeTokenAndInvoke",
			args:    []interface{}{tokenAAddr, big.NewInt(1000), tokenCAddr, targetAmount.ToBig(), targetAddr, []byte{}},
			wantErr: swapcall.ErrVenueNotFound,
		},
		{
			name:    "venue not found for source",
			method:  "exchangeTokenForNativeAndInvoke",
			args:    []interface{}{tokenCAddr, big.NewInt(1000), targetAmount.ToBig(), targetAddr, []byte{}},
			wantErr: swapcall.ErrVenueNotFound,
		},
		{
			name:   "native underfunded",
			method: "exchangeNativeAndInvoke",
			value: func(e *testEnv, t *testing.T) *uint256.Int {
				return new(uint256.Int).SubUint64(e.nativeQuote(t), 1)
			},
			wantErr: swapcall.ErrUnderfundedSwap,
		},
		{
			name:    "token underfunded",
			method:  "exchangeTokenAndInvoke",
			args:    []interface{}{tokenAAddr, big.NewInt(10), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall},
			wantErr: swapcall.ErrUnderfundedSwap,
		},
		{
			name:    "token pull exceeds approval",
			method:  "exchangeTokenAndInvoke",
			args:    []interface{}{tokenAAddr, big.NewInt(1001), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall},
			wantErr: swapcall.ErrUnderfundedSwap,
		},
		{
			name:   "venue delivers short",
			setup:  func(e *testEnv) { e.market.Exchanges["BBB"].ShortDelivery = true },
			method: "exchangeNativeAndInvoke",
			value: func(e *testEnv, t *testing.T) *uint256.Int {
				return scale(e.nativeQuote(t), 11, 10)
			},
			wantErr: swapcall.ErrUnderfundedSwap,
		},
		{
			name:    "native to native",
			method:  "exchangeNativeAndInvoke",
			args:    []interface{}{common.Address{}, targetAmount.ToBig(), targetAddr, []byte{}},
			value:   func(e *testEnv, t *testing.T) *uint256.Int { return ether(1) },
			wantErr: swapcall.ErrUnsupportedRoute,
		},
		{
			name:    "same token",
			method:  "exchangeTokenAndInvoke",
			args:    []interface{}{tokenAAddr, big.NewInt(1000), tokenAAddr, targetAmount.ToBig(), targetAddr, purchaseCall},
			wantErr: swapcall.ErrUnsupportedRoute,
		},
		{
			name:    "zero target",
			method:  "exchangeNativeAndInvoke",
			args:    []interface{}{tokenBAddr, targetAmount.ToBig(), common.Address{}, []byte{}},
			value:   func(e *testEnv, t *testing.T) *uint256.Int { return ether(1) },
			wantErr: swapcall.ErrInvalidAddress,
		},
		{
			name:    "zero target amount",
			method:  "exchangeTokenAndInvoke",
			args:    []interface{}{tokenAAddr, big.NewInt(1000), tokenBAddr, big.NewInt(0), targetAddr, purchaseCall},
			wantErr: swapcall.ErrInvalidAmount,
		},
		{
			name:    "nothing supplied",
			method:  "exchangeNativeAndInvoke",
			args:    []interface{}{tokenBAddr, targetAmount.ToBig(), targetAddr, []byte{}},
			wantErr: swapcall.ErrInvalidAmount,
		},
		{
			name:    "value on non-payable method",
			method:  "exchangeTokenAndInvoke",
			args:    []interface{}{tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall},
			value:   func(e *testEnv, t *testing.T) *uint256.Int { return uint256.NewInt(1) },
			wantErr: swapcall.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, "")
			e.deployTarget(tokenBAddr, evmsim.TargetExact)
			e.fundTokenA(t, 1000)
			if tt.setup != nil {
				tt.setup(e)
			}
			args := tt.args
			if args == nil {
				args = []interface{}{tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall}
			}
			var value *uint256.Int
			if tt.value != nil {
				value = tt.value(e, t)
			}
			before := e.balances(alice)

			_, err := e.transact(t, alice, value, tt.method, args...)
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, before, e.balances(alice))
			require.Empty(t, e.w.State.Logs())
			require.False(t, e.contract.Orchestrator().Busy())
		})
	}
}

func TestDynamicPriceForms(t *testing.T) {
	t.Run("native to token", func(t *testing.T) {
		e := newTestEnv(t, "")
		e.deployTarget(tokenBAddr, evmsim.TargetExact)
		quote := e.nativeQuote(t)

		ret, err := e.transact(t, alice, scale(quote, 11, 10), "exchangeNativeAndInvokeDynamic",
			tokenBAddr, targetAddr, priceCall, purchaseCall)
		require.NoError(t, err)
		consumed, _ := unpackResult(t, "exchangeNativeAndInvokeDynamic", ret)
		require.Equal(t, quote, consumed)
		require.Equal(t, targetAmount, e.tokenB.BalanceOf(e.w, targetAddr))
	})

	t.Run("token to token", func(t *testing.T) {
		e := newTestEnv(t, "")
		e.deployTarget(tokenBAddr, evmsim.TargetExact)
		e.fundTokenA(t, 1000)

		ret, err := e.transact(t, alice, nil, "exchangeTokenAndInvokeDynamic",
			tokenAAddr, big.NewInt(1000), tokenBAddr, targetAddr, priceCall, purchaseCall)
		require.NoError(t, err)
		consumed, refunded := unpackResult(t, "exchangeTokenAndInvokeDynamic", ret)
		require.Equal(t, uint64(1000), new(uint256.Int).Add(consumed, refunded).Uint64())
		require.Equal(t, targetAmount, e.tokenB.BalanceOf(e.w, targetAddr))
	})

	t.Run("token to native", func(t *testing.T) {
		e := newTestEnv(t, "")
		e.deployTarget(common.Address{}, evmsim.TargetExact)
		e.fundTokenA(t, 1000)

		_, err := e.transact(t, alice, nil, "exchangeTokenForNativeAndInvokeDynamic",
			tokenAAddr, big.NewInt(1000), targetAddr, priceCall, purchaseWithNativeCall)
		require.NoError(t, err)
		require.Equal(t, targetAmount, e.w.State.GetBalance(targetAddr))
	})

	t.Run("price query must be read-only", func(t *testing.T) {
		e := newTestEnv(t, "")
		e.deployTarget(tokenBAddr, evmsim.TargetMutatingPrice)
		before := e.balances(alice)

		_, err := e.transact(t, alice, ether(1), "exchangeNativeAndInvokeDynamic",
			tokenBAddr, targetAddr, priceCall, purchaseCall)
		require.ErrorIs(t, err, swapcall.ErrOpaqueCallReverted)
		require.ErrorIs(t, err, vm.ErrWriteProtection)
		require.Equal(t, before, e.balances(alice))
	})

	t.Run("zero price", func(t *testing.T) {
		e := newTestEnv(t, "")
		evmsim.NewTarget(e.w, targetAddr, tokenBAddr, uint256.NewInt(0), evmsim.TargetExact)

		_, err := e.transact(t, alice, ether(1), "exchangeNativeAndInvokeDynamic",
			tokenBAddr, targetAddr, priceCall, purchaseCall)
		require.ErrorIs(t, err, swapcall.ErrInvalidPriceResponse)
	})

	t.Run("empty price response", func(t *testing.T) {
		e := newTestEnv(t, "")
		e.deployTarget(tokenBAddr, evmsim.TargetExact)

		_, err := e.transact(t, alice, ether(1), "exchangeNativeAndInvokeDynamic",
			tokenBAddr, targetAddr, []byte{}, purchaseCall)
		require.ErrorIs(t, err, swapcall.ErrInvalidPriceResponse)
	})
}

func TestReadOnlyCallCannotExchange(t *testing.T) {
	e := newTestEnv(t, "")
	e.deployTarget(tokenBAddr, evmsim.TargetExact)
	input, err := swapcall.SwapCallABI.Pack("exchangeTokenAndInvoke",
		tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)

	_, err = e.w.Query(alice, e.self, input)
	require.ErrorIs(t, err, swapcall.ErrWriteProtection)
}

func TestUnconfiguredOrchestrator(t *testing.T) {
	w := evmsim.NewWorld()
	w.Install(swapcall.ContractAddress, swapcall.NewContract(nil))
	w.Fund(alice, ether(1))
	input, err := swapcall.SwapCallABI.Pack("exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, []byte{})
	require.NoError(t, err)

	_, _, err = w.Transact(alice, swapcall.ContractAddress, input, ether(1), testGas)
	require.ErrorIs(t, err, swapcall.ErrConfiguration)
	require.Equal(t, ether(1), w.State.GetBalance(alice))
}

func TestRunRejectsMalformedInput(t *testing.T) {
	e := newTestEnv(t, "")

	_, _, err := e.w.Transact(alice, e.self, []byte{1, 2}, nil, testGas)
	require.ErrorIs(t, err, swapcall.ErrInvalidInput)

	_, _, err = e.w.Transact(alice, e.self, []byte{0xde, 0xad, 0xbe, 0xef}, nil, testGas)
	require.ErrorIs(t, err, swapcall.ErrInvalidInput)

	sel := swapcall.SwapCallABI.Selector("exchangeTokenAndInvoke")
	_, _, err = e.w.Transact(alice, e.self, append(sel[:], 1, 2, 3), nil, testGas)
	require.ErrorIs(t, err, swapcall.ErrInvalidInput)

	// Well-formed arguments followed by a stray byte are not word aligned.
	e.fundTokenA(t, 1000)
	input, err := swapcall.SwapCallABI.Pack("exchangeTokenAndInvoke",
		tokenAAddr, big.NewInt(1000), tokenBAddr, targetAmount.ToBig(), targetAddr, purchaseCall)
	require.NoError(t, err)
	_, _, err = e.w.Transact(alice, e.self, append(input, 0x00), nil, testGas)
	require.ErrorIs(t, err, swapcall.ErrInvalidInput)

	_, _, err = e.w.Transact(alice, e.self, nil, uint256.NewInt(5), testGas)
	require.NoError(t, err)
	require.Equal(t, uint64(5), e.w.State.GetBalance(e.self).Uint64())
}

func TestInsufficientGas(t *testing.T) {
	e := newTestEnv(t, "")
	input, err := swapcall.SwapCallABI.Pack("exchangeNativeAndInvoke",
		tokenBAddr, targetAmount.ToBig(), targetAddr, []byte{})
	require.NoError(t, err)

	_, _, err = e.w.Transact(alice, e.self, input, ether(1), swapcall.GasSwapAndCall-1)
	require.ErrorIs(t, err, swapcall.ErrInsufficientGas)
}
