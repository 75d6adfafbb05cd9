package coordinator

import "sync"

// TokenCell is the shared slot holding the session's current token pair,
// the Go analogue of same-origin client storage. Every participant of one
// session reads and writes the same cell; the generation counter lets
// callers detect that a rotation happened while their request was in
// flight.
type TokenCell struct {
	mu         sync.RWMutex
	pair       TokenPair
	generation uint64
}

// NewTokenCell seeds a cell with the pair obtained at login. Generation
// starts at zero and increments on every Set.
func NewTokenCell(initial TokenPair) *TokenCell {
	return &TokenCell{pair: initial}
}

// Get returns the current pair and its generation.
func (c *TokenCell) Get() (TokenPair, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pair, c.generation
}

// Set replaces the pair and returns the new generation.
func (c *TokenCell) Set(pair TokenPair) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pair = pair
	c.generation++
	return c.generation
}
