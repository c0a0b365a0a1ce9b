// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/luxfi/geth/common"
)

// AddressRange represents a continuous range of addresses
type AddressRange struct {
	Start common.Address
	End   common.Address
}

// Contains returns true iff [addr] is contained within the (inclusive)
// range of addresses defined by [a].
func (a *AddressRange) Contains(addr common.Address) bool {
	addrBytes := addr.Bytes()
	return bytes.Compare(addrBytes, a.Start[:]) >= 0 && bytes.Compare(addrBytes, a.End[:]) <= 0
}

// BlackholeAddr is the address where assets are burned
var BlackholeAddr = common.Address{
	1, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

var (
	// registeredModules is a list of Module to preserve order
	// for deterministic iteration
	registeredModules = make([]Module, 0)

	// Reserved address ranges for stateful precompiles
	//
	// LOW-BYTE RANGES (0x0000...XXXX), address = LP number:
	// 0x9000-0x9FFF: DEX/Markets (LP-9xxx), swap-and-call at 0x9090
	reservedRanges = []AddressRange{
		// LP-9xxx: DEX/Markets (0x0..9000 - 0x0..9FFF)
		{
			Start: common.HexToAddress("0x0000000000000000000000000000000000009000"),
			End:   common.HexToAddress("0x0000000000000000000000000000000000009fff"),
		},
	}
)

// ReservedAddress returns true if [addr] is in a reserved range for custom precompiles
func ReservedAddress(addr common.Address) bool {
	for _, reservedRange := range reservedRanges {
		if reservedRange.Contains(addr) {
			return true
		}
	}

	return false
}

var (
	ErrAddressNotReserved = errors.New("address not in a reserved range")
	ErrNoContract         = errors.New("module has no contract")
	ErrDuplicateModule    = errors.New("already used by a stateful precompile")
)

// RegisterModule registers a stateful precompile module. Config keys and
// addresses must be unique.
func RegisterModule(stm Module) error {
	switch {
	case stm.Address == BlackholeAddr:
		return fmt.Errorf("%w: %s overlaps with blackhole address", ErrAddressNotReserved, stm.Address)
	case !ReservedAddress(stm.Address):
		return fmt.Errorf("%w: %s", ErrAddressNotReserved, stm.Address)
	case stm.Contract == nil:
		return fmt.Errorf("%w: %s", ErrNoContract, stm.ConfigKey)
	}

	for _, registered := range registeredModules {
		if registered.ConfigKey == stm.ConfigKey {
			return fmt.Errorf("name %s %w", stm.ConfigKey, ErrDuplicateModule)
		}
		if registered.Address == stm.Address {
			return fmt.Errorf("address %s %w", stm.Address, ErrDuplicateModule)
		}
	}
	registeredModules = insertSortedByAddress(registeredModules, stm)
	return nil
}

// GetPrecompileModuleByAddress returns the module installed at address.
func GetPrecompileModuleByAddress(address common.Address) (Module, bool) {
	for _, stm := range registeredModules {
		if stm.Address == address {
			return stm, true
		}
	}
	return Module{}, false
}

func GetPrecompileModule(key string) (Module, bool) {
	for _, stm := range registeredModules {
		if stm.ConfigKey == key {
			return stm, true
		}
	}
	return Module{}, false
}

// RegisteredModules returns every module ordered by address.
func RegisteredModules() []Module {
	return registeredModules
}

func insertSortedByAddress(data []Module, stm Module) []Module {
	data = append(data, stm)
	sort.Sort(moduleArray(data))
	return data
}
