// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// PriceResolver asks the target how much of the target asset it will take.
type PriceResolver struct{}

// ResolveDynamicPrice static-calls target with query and reads the first
// returned word as the target amount. The call runs read-only.
func (PriceResolver) ResolveDynamicPrice(f *Frame, target common.Address, query []byte) (*uint256.Int, error) {
	ret, err := f.StaticCall(target, query)
	if err != nil {
		return nil, &CallRevertError{Target: target, Data: common.CopyBytes(ret), Err: err}
	}
	amount, ok := decodeWord(ret)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %d bytes", ErrInvalidPriceResponse, target.Hex(), len(ret))
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: %s quoted zero", ErrInvalidPriceResponse, target.Hex())
	}
	return amount, nil
}
