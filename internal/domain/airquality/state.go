package airquality

import (
	"sync"
	"sync/atomic"
)

// State owns the current reading and the session health profile. Readers
// never observe a partially replaced reading.
type State struct {
	mu       sync.RWMutex
	reading  Reading
	profile  HealthProfile
	updating atomic.Bool
}

// NewState seeds the container.
func NewState(initial Reading, profile HealthProfile) *State {
	return &State{reading: initial, profile: profile}
}

// Snapshot returns the reading, the profile and whether an update is pending.
func (s *State) Snapshot() (Reading, HealthProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reading, s.profile, s.updating.Load()
}

// Profile returns the immutable session profile.
func (s *State) Profile() HealthProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *State) beginUpdate() bool {
	return s.updating.CompareAndSwap(false, true)
}

func (s *State) endUpdate() {
	s.updating.Store(false)
}

func (s *State) replace(reading Reading) {
	s.mu.Lock()
	s.reading = reading
	s.mu.Unlock()
}
