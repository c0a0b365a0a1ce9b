// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evmsim

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/swaprouter/swapcall"
)

// slot derives a storage key from a prefix and its parts.
func slot(prefix string, parts ...[]byte) common.Hash {
	h := blake3.New()
	h.Write([]byte(prefix))
	for _, p := range parts {
		h.Write(p)
	}
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func readAmount(s *StateDB, addr common.Address, key common.Hash) *uint256.Int {
	v := s.GetState(addr, key)
	return new(uint256.Int).SetBytes(v[:])
}

func writeAmount(s *StateDB, addr common.Address, key common.Hash, v *uint256.Int) {
	s.SetState(addr, key, common.Hash(v.Bytes32()))
}

// decode resolves the method of input and unpacks its arguments.
func decode(contractABI swapcall.ExtendedABI, input []byte) (string, []interface{}, error) {
	if len(input) < 4 {
		return "", nil, Revert("missing selector")
	}
	method, err := contractABI.MethodById(input[:4])
	if err != nil {
		return "", nil, Revert("unknown selector 0x%x", input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return "", nil, Revert("bad arguments to %s: %v", method.Name, err)
	}
	return method.Name, args, nil
}

func argAddress(args []interface{}, i int) common.Address {
	v, _ := args[i].(common.Address)
	return v
}

func argAmount(args []interface{}, i int) *uint256.Int {
	v, ok := args[i].(*big.Int)
	if !ok {
		return uint256.NewInt(0)
	}
	return uint256.MustFromBig(v)
}

func packAmount(contractABI swapcall.ExtendedABI, method string, v *uint256.Int) ([]byte, error) {
	return contractABI.PackOutput(method, v.ToBig())
}

func packBool(contractABI swapcall.ExtendedABI, method string, v bool) ([]byte, error) {
	return contractABI.PackOutput(method, v)
}
