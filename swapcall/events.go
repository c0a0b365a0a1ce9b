// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
)

// SwapAndCallTopic is the signature topic of the SwapAndCall event.
var SwapAndCallTopic = SwapCallABI.Events["SwapAndCall"].ID

var errNotSwapAndCall = errors.New("log is not a SwapAndCall event")

// emitSwapAndCall appends the completion record of an operation to the state.
func emitSwapAndCall(f *Frame, ev SwapAndCallEvent) error {
	topics, data, err := SwapCallABI.PackEvent(
		"SwapAndCall",
		ev.Initiator,
		ev.FromAsset.Address,
		ev.ToAsset.Address,
		ev.TargetContract,
		bigOrZero(ev.AmountIn),
		bigOrZero(ev.AmountRefunded),
	)
	if err != nil {
		return err
	}
	var number uint64
	if n := f.env.GetBlockContext().Number(); n != nil {
		number = n.Uint64()
	}
	f.state.AddLog(&ethtypes.Log{
		Address:     f.self,
		Topics:      topics,
		Data:        data,
		BlockNumber: number,
		TxHash:      f.state.TxHash(),
	})
	return nil
}

// ParseSwapAndCall decodes a SwapAndCall log.
func ParseSwapAndCall(lg *ethtypes.Log) (SwapAndCallEvent, error) {
	if len(lg.Topics) != 4 || lg.Topics[0] != SwapAndCallTopic {
		return SwapAndCallEvent{}, errNotSwapAndCall
	}
	values, err := SwapCallABI.Unpack("SwapAndCall", lg.Data)
	if err != nil {
		return SwapAndCallEvent{}, err
	}
	if len(values) != 3 {
		return SwapAndCallEvent{}, fmt.Errorf("%w: %d data fields", errNotSwapAndCall, len(values))
	}
	target, ok1 := values[0].(common.Address)
	amountIn, ok2 := values[1].(*big.Int)
	refunded, ok3 := values[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return SwapAndCallEvent{}, errNotSwapAndCall
	}
	return SwapAndCallEvent{
		Initiator:      common.BytesToAddress(lg.Topics[1].Bytes()),
		FromAsset:      TokenCurrency(common.BytesToAddress(lg.Topics[2].Bytes())),
		ToAsset:        TokenCurrency(common.BytesToAddress(lg.Topics[3].Bytes())),
		TargetContract: target,
		AmountIn:       uint256.MustFromBig(amountIn),
		AmountRefunded: uint256.MustFromBig(refunded),
	}, nil
}
