// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"github.com/luxfi/geth/common"
)

// ============================================================================
// PRECOMPILE ADDRESS SCHEME - Aligned with LP Numbering (LP-0099)
// ============================================================================
//
// Precompiles use trailing-significant 20-byte addresses:
//   Format: 0x0000000000000000000000000000000000PCII
//
// The address ends with the 16-bit LP number. Swap-and-call sits in the
// DEX/Markets page (P=9) next to the LX router family.

const (
	// DEX/Markets (LP-9xxx)
	SwapCallAddress = "0x0000000000000000000000000000000000009090" // LP-9090 SwapCall (exchange-then-invoke)
)

// PrecompileInfo contains metadata about a precompile. Gas costs live with
// the precompile itself.
type PrecompileInfo struct {
	Address     string
	Name        string
	Description string
	Chains      []string // chain letters the precompile is enabled on
	LPRange     string   // LP-Pxxx range alignment
}

// AllPrecompiles lists all available precompiles with their metadata
var AllPrecompiles = []PrecompileInfo{
	{SwapCallAddress, "SWAP_CALL", "Exact-output swap then invoke with scoped allowance", []string{"C", "Zoo"}, "LP-9090"},
}

// Lookup returns the metadata of the precompile at addr.
func Lookup(addr common.Address) (PrecompileInfo, bool) {
	for _, p := range AllPrecompiles {
		if common.HexToAddress(p.Address) == addr {
			return p, true
		}
	}
	return PrecompileInfo{}, false
}
