// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import "sync"

// Guard is the single-flight latch of one orchestrator instance. A second
// Acquire while the latch is held fails immediately with ErrReentrancy.
//
// The latch lives in process memory, not in chain state. The registered
// module shares one SwapCallPrecompile, so executions running concurrently
// against separate StateDBs in the same process also reject each other.
type Guard struct {
	// mu protects locked
	mu sync.Mutex

	// locked is set for the duration of one operation
	locked bool
}

// Acquire takes the latch or fails without waiting.
func (g *Guard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return ErrReentrancy
	}
	g.locked = true
	return nil
}

// Release frees the latch. Releasing a free latch is a no-op.
func (g *Guard) Release() {
	g.mu.Lock()
	g.locked = false
	g.mu.Unlock()
}

// Held reports whether an operation is in flight.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}
