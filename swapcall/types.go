// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package swapcall implements the swap-and-call precompile: it exchanges an
// asset supplied by the caller for an exact amount of a target asset through
// an external venue, grants a target contract a spending right scoped to that
// amount, invokes the target, verifies the amount was consumed exactly and
// returns what is left to the caller. Every operation is atomic.
package swapcall

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/vm"
)

// Gas costs charged by the precompile itself. External calls are paid from
// whatever remains.
const (
	GasSwapAndCall uint64 = 60_000 // Base cost of one operation
	GasPriceQuery  uint64 = 5_000  // Dynamic price resolution
	GasRecover     uint64 = 20_000 // Administrative pass-through call
	GasAdminWrite  uint64 = 5_000  // Writing admin state
	GasView        uint64 = 200    // Reading configuration

	// GasPlainTransfer is the execution cost of one plain native transfer.
	// Native leftovers worth less than this at the current gas price stay
	// on the orchestrator.
	GasPlainTransfer uint64 = 21_000
)

// Currency identifies either the native coin or an ERC20 token.
// Address(0) represents native LUX
type Currency struct {
	Address common.Address
}

// NativeCurrency represents the native coin
var NativeCurrency = Currency{Address: common.Address{}}

// TokenCurrency returns the currency handle for an ERC20 token contract
func TokenCurrency(addr common.Address) Currency {
	return Currency{Address: addr}
}

// IsNative returns true if this currency is the native coin
func (c Currency) IsNative() bool {
	return c.Address == common.Address{}
}

func (c Currency) String() string {
	if c.IsNative() {
		return "native"
	}
	return c.Address.Hex()
}

// Venue is a liquidity venue bound to one token. It is resolved from the
// venue registry for every operation and never cached.
type Venue struct {
	Asset   Currency
	Address common.Address
}

// Route is the asset direction of an operation.
type Route uint8

const (
	RouteNativeToToken Route = iota + 1
	RouteTokenToToken
	RouteTokenToNative
)

func (r Route) String() string {
	switch r {
	case RouteNativeToToken:
		return "native->token"
	case RouteTokenToToken:
		return "token->token"
	case RouteTokenToNative:
		return "token->native"
	default:
		return "unknown"
	}
}

// Operation is one atomic exchange-grant-invoke-verify-refund request.
type Operation struct {
	Initiator      common.Address
	SourceAsset    Currency
	SourceAmountIn *uint256.Int // exact pull for tokens; ignored for native
	TargetAsset    Currency
	TargetAmount   *uint256.Int // nil when PriceQuery is set
	TargetContract common.Address
	CallPayload    []byte
	AttachedValue  *uint256.Int // native value sent with the call

	// PriceQuery, when non-nil, is static-called on TargetContract and the
	// returned word becomes TargetAmount.
	PriceQuery []byte
}

// Route derives the asset direction of the operation.
func (op *Operation) Route() (Route, error) {
	switch {
	case op.SourceAsset.IsNative() && !op.TargetAsset.IsNative():
		return RouteNativeToToken, nil
	case !op.SourceAsset.IsNative() && !op.TargetAsset.IsNative():
		return RouteTokenToToken, nil
	case !op.SourceAsset.IsNative() && op.TargetAsset.IsNative():
		return RouteTokenToNative, nil
	default:
		return 0, ErrUnsupportedRoute
	}
}

// Dynamic returns true if the target amount is resolved from the target.
func (op *Operation) Dynamic() bool {
	return op.PriceQuery != nil
}

// AmountIn is the amount the initiator funded the operation with.
func (op *Operation) AmountIn() *uint256.Int {
	if op.SourceAsset.IsNative() {
		return amountOrZero(op.AttachedValue)
	}
	return amountOrZero(op.SourceAmountIn)
}

// RefundRecord describes what was returned to the initiator, or left behind
// as shared residue when Donated is set.
type RefundRecord struct {
	Asset   Currency
	Amount  *uint256.Int
	Donated bool
}

// SwapAndCallEvent is the record emitted once per completed operation.
type SwapAndCallEvent struct {
	Initiator      common.Address
	FromAsset      Currency
	ToAsset        Currency
	TargetContract common.Address
	AmountIn       *uint256.Int
	AmountRefunded *uint256.Int
}

// Receipt is the outcome of a completed operation.
type Receipt struct {
	Route        Route
	TargetAmount *uint256.Int
	Consumed     *uint256.Int // source asset spent by the venue
	Refund       RefundRecord
	Event        SwapAndCallEvent
}

// ConsumptionCheck selects how the orchestrator proves the target took
// exactly what it was given.
type ConsumptionCheck uint8

const (
	// CheckAllowance requires the outstanding allowance to the target to be
	// zero after the call.
	CheckAllowance ConsumptionCheck = iota
	// CheckBalance requires the orchestrator's balance of the target asset to
	// be back at its pre-operation level. Stray transfers to the orchestrator
	// during the call make it fail.
	CheckBalance
)

func (c ConsumptionCheck) String() string {
	switch c {
	case CheckAllowance:
		return "allowance"
	case CheckBalance:
		return "balance"
	default:
		return "unknown"
	}
}

// ParseConsumptionCheck parses the config spelling of a check mode.
// The empty string selects CheckAllowance.
func ParseConsumptionCheck(s string) (ConsumptionCheck, error) {
	switch s {
	case "", "allowance":
		return CheckAllowance, nil
	case "balance":
		return CheckBalance, nil
	default:
		return 0, fmt.Errorf("%w: unknown consumption check %q", ErrConfiguration, s)
	}
}

// Errors
var (
	ErrConfiguration             = errors.New("invalid venue registry configuration")
	ErrVenueNotFound             = errors.New("no venue registered for asset")
	ErrUnderfundedSwap           = errors.New("exact-output swap could not be completed")
	ErrTargetConsumptionMismatch = errors.New("target did not consume exactly the granted amount")
	ErrReentrancy                = errors.New("reentrancy detected")
	ErrOpaqueCallReverted        = errors.New("target call reverted")

	ErrUnsupportedRoute     = errors.New("unsupported asset route")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPriceResponse = errors.New("invalid price response")
	ErrTokenCallFailed      = errors.New("token call failed")
	ErrUnauthorized         = errors.New("unauthorized: caller is not admin")
	ErrInvalidAddress       = errors.New("invalid address: cannot be zero")
	ErrWriteProtection      = errors.New("cannot write in read-only mode")
	ErrInsufficientGas      = errors.New("insufficient gas")
	ErrInvalidInput         = errors.New("invalid input")
)

// CallRevertError carries the revert data of a failed external call verbatim.
// It matches ErrOpaqueCallReverted and the wrapped platform error.
type CallRevertError struct {
	Target common.Address
	Data   []byte
	Err    error
}

func (e *CallRevertError) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("%s: %s: %v", ErrOpaqueCallReverted, e.Target.Hex(), e.Err)
	}
	return fmt.Sprintf("%s: %s: %v (data 0x%x)", ErrOpaqueCallReverted, e.Target.Hex(), e.Err, e.Data)
}

func (e *CallRevertError) Unwrap() []error {
	return []error{ErrOpaqueCallReverted, e.Err}
}

// Reverted returns true if err is a revert raised by the callee, as opposed
// to a failure of the call itself (out of gas, missing account).
func (e *CallRevertError) Reverted() bool {
	return errors.Is(e.Err, vm.ErrExecutionReverted)
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return v.Clone()
}
