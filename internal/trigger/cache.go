// Package trigger holds the per-tick trigger/execution state machine:
// hard invalidation, expiry, tier progression, close-confirm
// evaluation, status stabilization, execution decision derivation, and
// the display priority scorer.
package trigger

import (
	"time"

	"trade-setup-engine/internal/setups"
)

// DefaultCacheTTL bounds how long runtime state outlives its setup
const DefaultCacheTTL = 30 * time.Minute

// setupRuntime is the cross-tick state for one setup id
type setupRuntime struct {
	lastStatus    setups.Status
	statusBarTime int64 // status-timeframe bar that last allowed a FORMING/READY flip

	tier      setups.Tier
	confirmed bool
	checklist []setups.ChecklistItem

	baselineSet       bool
	baselineCloseTime int64 // confirmed close observed when READY was first seen

	firstSeen           time.Time
	lastSeen            time.Time
	lastChecklistChange time.Time
}

// RuntimeCache owns all trigger-machine state across ticks. It is
// explicit, passed in by the caller, keyed by stable setup id, bound to
// one symbol at a time, and TTL-pruned. There is no ambient state
// anywhere else in the machine.
type RuntimeCache struct {
	symbol  string
	ttl     time.Duration
	entries map[string]*setupRuntime
}

// NewRuntimeCache creates an empty cache; ttl <= 0 uses the default
func NewRuntimeCache(ttl time.Duration) *RuntimeCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RuntimeCache{ttl: ttl, entries: make(map[string]*setupRuntime)}
}

// Bind selects the active symbol, clearing all state when it changes
func (c *RuntimeCache) Bind(symbol string) {
	if c.symbol != symbol {
		c.symbol = symbol
		c.entries = make(map[string]*setupRuntime)
	}
}

// Reset drops all state unconditionally
func (c *RuntimeCache) Reset() {
	c.entries = make(map[string]*setupRuntime)
}

// Len returns the number of tracked setups
func (c *RuntimeCache) Len() int {
	return len(c.entries)
}

// get returns the runtime entry for a setup, creating it on first sight
func (c *RuntimeCache) get(id string, now time.Time) *setupRuntime {
	rt, ok := c.entries[id]
	if !ok {
		rt = &setupRuntime{
			firstSeen:           now,
			lastChecklistChange: now,
		}
		c.entries[id] = rt
	}
	rt.lastSeen = now
	return rt
}

// Prune drops entries not seen within the TTL
func (c *RuntimeCache) Prune(now time.Time) {
	for id, rt := range c.entries {
		if now.Sub(rt.lastSeen) > c.ttl {
			delete(c.entries, id)
		}
	}
}
