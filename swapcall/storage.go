// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/swaprouter/contract"
)

// Storage key prefixes
var (
	configPrefix = []byte("swcf")
)

// Storage slots of the orchestrator's configuration
var (
	registrySlot = makeStorageKey(configPrefix, []byte("registry"))
	adminSlot    = makeStorageKey(configPrefix, []byte("admin"))
	checkSlot    = makeStorageKey(configPrefix, []byte("check"))
)

// makeStorageKey creates a storage key from prefix and identifier
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func getStateAddress(stateDB contract.StateDB, self common.Address, slot common.Hash) common.Address {
	val := stateDB.GetState(self, slot)
	return common.BytesToAddress(val[12:])
}

func setStateAddress(stateDB contract.StateDB, self common.Address, slot common.Hash, addr common.Address) {
	var val common.Hash
	copy(val[12:], addr.Bytes())
	stateDB.SetState(self, slot, val)
}

// ReadVenueRegistry returns the registry configured for the orchestrator at self.
func ReadVenueRegistry(stateDB contract.StateDB, self common.Address) common.Address {
	return getStateAddress(stateDB, self, registrySlot)
}

// ReadAdmin returns the admin of the orchestrator at self.
func ReadAdmin(stateDB contract.StateDB, self common.Address) common.Address {
	return getStateAddress(stateDB, self, adminSlot)
}

// ReadConsumptionCheck returns the consumption check mode configured at self.
func ReadConsumptionCheck(stateDB contract.StateDB, self common.Address) ConsumptionCheck {
	val := stateDB.GetState(self, checkSlot)
	return ConsumptionCheck(val[31])
}

func writeConsumptionCheck(stateDB contract.StateDB, self common.Address, check ConsumptionCheck) {
	var val common.Hash
	val[31] = byte(check)
	stateDB.SetState(self, checkSlot, val)
}
