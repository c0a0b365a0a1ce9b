// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// SwapEngine executes exact-output trades against a venue. Every method
// checks that exactly targetAmount landed on the orchestrator and reports
// how much of the source asset the venue consumed.
type SwapEngine struct{}

// SwapNativeForExactTarget buys targetAmount of the venue's token with at most
// available native. The venue pushes unspent native back during the call.
func (SwapEngine) SwapNativeForExactTarget(
	f *Frame,
	venue Venue,
	targetAmount *uint256.Int,
	available *uint256.Int,
) (*uint256.Int, error) {
	nativeBefore := f.NativeBalance()
	if nativeBefore.Lt(available) {
		return nil, fmt.Errorf("%w: %s native available, %s held", ErrUnderfundedSwap, available, nativeBefore)
	}
	landedBefore, err := tokenBalance(f, venue.Asset, f.self)
	if err != nil {
		return nil, err
	}

	input, err := VenueABI.Pack("ethToTokenSwapOutput", targetAmount.ToBig(), f.Deadline().ToBig())
	if err != nil {
		return nil, err
	}
	if _, err := f.Call(venue.Address, input, available); err != nil {
		return nil, fmt.Errorf("%w: ethToTokenSwapOutput on %s: %w", ErrUnderfundedSwap, venue.Address.Hex(), err)
	}

	if err := checkLanded(f, venue.Asset, landedBefore, targetAmount); err != nil {
		return nil, err
	}
	nativeAfter := f.NativeBalance()
	if nativeAfter.Gt(nativeBefore) {
		return nil, fmt.Errorf("%w: venue returned more native than it received", ErrUnderfundedSwap)
	}
	return new(uint256.Int).Sub(nativeBefore, nativeAfter), nil
}

// SwapExactSourceForExactTarget pulls sourceAmountIn of sourceAsset from the
// initiator and buys targetAmount of targetAsset through the source venue.
// The venue's allowance is cleared afterwards.
func (SwapEngine) SwapExactSourceForExactTarget(
	f *Frame,
	venue Venue,
	initiator common.Address,
	sourceAsset Currency,
	sourceAmountIn *uint256.Int,
	targetAsset Currency,
	targetAmount *uint256.Int,
) (*uint256.Int, error) {
	input, err := VenueABI.Pack(
		"tokenToTokenSwapOutput",
		targetAmount.ToBig(),
		sourceAmountIn.ToBig(),
		maxUint256.ToBig(),
		f.Deadline().ToBig(),
		targetAsset.Address,
	)
	if err != nil {
		return nil, err
	}
	return swapFromToken(f, venue, initiator, sourceAsset, sourceAmountIn, targetAsset, targetAmount, "tokenToTokenSwapOutput", input)
}

// SwapExactSourceForExactNative pulls sourceAmountIn of sourceAsset from the
// initiator and buys targetAmount of native through the source venue.
func (SwapEngine) SwapExactSourceForExactNative(
	f *Frame,
	venue Venue,
	initiator common.Address,
	sourceAsset Currency,
	sourceAmountIn *uint256.Int,
	targetAmount *uint256.Int,
) (*uint256.Int, error) {
	input, err := VenueABI.Pack(
		"tokenToEthSwapOutput",
		targetAmount.ToBig(),
		sourceAmountIn.ToBig(),
		f.Deadline().ToBig(),
	)
	if err != nil {
		return nil, err
	}
	return swapFromToken(f, venue, initiator, sourceAsset, sourceAmountIn, NativeCurrency, targetAmount, "tokenToEthSwapOutput", input)
}

func swapFromToken(
	f *Frame,
	venue Venue,
	initiator common.Address,
	sourceAsset Currency,
	sourceAmountIn *uint256.Int,
	targetAsset Currency,
	targetAmount *uint256.Int,
	method string,
	input []byte,
) (*uint256.Int, error) {
	sourceBefore, err := tokenBalance(f, sourceAsset, f.self)
	if err != nil {
		return nil, err
	}
	landedBefore, err := tokenBalance(f, targetAsset, f.self)
	if err != nil {
		return nil, err
	}

	if err := tokenTransferFrom(f, sourceAsset, initiator, f.self, sourceAmountIn); err != nil {
		return nil, fmt.Errorf("%w: pull %s of %s from %s: %w", ErrUnderfundedSwap, sourceAmountIn, sourceAsset, initiator.Hex(), err)
	}
	if err := tokenApprove(f, sourceAsset, venue.Address, sourceAmountIn); err != nil {
		return nil, err
	}
	if _, err := f.Call(venue.Address, input, nil); err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %w", ErrUnderfundedSwap, method, venue.Address.Hex(), err)
	}
	if err := tokenApprove(f, sourceAsset, venue.Address, uint256.NewInt(0)); err != nil {
		return nil, err
	}

	if err := checkLanded(f, targetAsset, landedBefore, targetAmount); err != nil {
		return nil, err
	}
	sourceAfter, err := tokenBalance(f, sourceAsset, f.self)
	if err != nil {
		return nil, err
	}
	// sourceBefore + sourceAmountIn - sourceAfter
	held := new(uint256.Int).Add(sourceBefore, sourceAmountIn)
	if held.Lt(sourceAfter) {
		return nil, fmt.Errorf("%w: source balance grew during swap", ErrUnderfundedSwap)
	}
	return held.Sub(held, sourceAfter), nil
}

// checkLanded requires the orchestrator's balance of asset to have grown by
// exactly want since before.
func checkLanded(f *Frame, asset Currency, before, want *uint256.Int) error {
	after, err := tokenBalance(f, asset, f.self)
	if err != nil {
		return err
	}
	if after.Lt(before) {
		return fmt.Errorf("%w: %s balance fell during swap", ErrUnderfundedSwap, asset)
	}
	got := new(uint256.Int).Sub(after, before)
	if !got.Eq(want) {
		return fmt.Errorf("%w: received %s of %s, want %s", ErrUnderfundedSwap, got, asset, want)
	}
	return nil
}
