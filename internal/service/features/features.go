// Package features holds the process-wide feature switchboard. It is an
// explicit component injected into the orchestrator and the admin handler,
// not a package-level global.
package features

import (
	"sync"

	"github.com/pocketkart/pocketbot/internal/core"
)

type Switchboard struct {
	mu    sync.RWMutex
	flags core.FeatureFlags
}

func NewSwitchboard() *Switchboard {
	return &Switchboard{flags: core.DefaultFeatureFlags()}
}

// Flags returns the current snapshot.
func (s *Switchboard) Flags() core.FeatureFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// Update applies the patch per key and returns the new snapshot.
func (s *Switchboard) Update(patch core.FlagPatch) core.FeatureFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = patch.Apply(s.flags)
	return s.flags
}
