package yoke

import "sync"

// Snapshot holds the latest polled State. It is written by the polling
// goroutine and read from anywhere.
type Snapshot struct {
	mu    sync.RWMutex
	state State
}

// Store replaces the held state.
func (s *Snapshot) Store(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Load returns a copy of the held state.
func (s *Snapshot) Load() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
