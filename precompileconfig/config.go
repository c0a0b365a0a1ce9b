// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the configuration contract shared by all
// precompiles: a JSON-decodable config keyed by name with an activation upgrade.
package precompileconfig

// Config is the per-precompile configuration read from the chain config.
type Config interface {
	Key() string
	Timestamp() *uint64
	IsDisabled() bool
	Equal(Config) bool
	Verify(ChainConfig) error
}

// ChainConfig is the view of the chain configuration a precompile may consult
// while verifying its own config.
type ChainConfig interface {
	IsDurango(time uint64) bool
}

// Upgrade describes when a precompile activates or is disabled.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the activation timestamp, or nil if none is set.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal returns true iff [other] activates at the same time with the same
// disable flag.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	switch {
	case u.BlockTimestamp == nil && other.BlockTimestamp == nil:
		return true
	case u.BlockTimestamp == nil || other.BlockTimestamp == nil:
		return false
	default:
		return *u.BlockTimestamp == *other.BlockTimestamp
	}
}
