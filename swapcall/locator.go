// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// ExchangeLocator resolves the venue bound to an asset through the venue
// registry. Nothing is cached; every operation resolves afresh.
type ExchangeLocator struct {
	Registry common.Address
}

// Resolve returns the venue for asset or ErrVenueNotFound.
func (l ExchangeLocator) Resolve(f *Frame, asset Currency) (Venue, error) {
	if asset.IsNative() {
		return Venue{}, fmt.Errorf("%w: native currency has no venue", ErrVenueNotFound)
	}
	if l.Registry == (common.Address{}) {
		return Venue{}, ErrConfiguration
	}
	input, err := VenueRegistryABI.Pack("getExchange", asset.Address)
	if err != nil {
		return Venue{}, err
	}
	ret, err := f.StaticCall(l.Registry, input)
	if err != nil {
		return Venue{}, fmt.Errorf("%w: registry %s: %w", ErrConfiguration, l.Registry.Hex(), err)
	}
	if len(ret) < 32 {
		return Venue{}, fmt.Errorf("%w: registry %s returned %d bytes", ErrConfiguration, l.Registry.Hex(), len(ret))
	}
	addr := common.BytesToAddress(ret[12:32])
	if addr == (common.Address{}) {
		return Venue{}, fmt.Errorf("%w: %s", ErrVenueNotFound, asset)
	}
	return Venue{Asset: asset, Address: addr}, nil
}
