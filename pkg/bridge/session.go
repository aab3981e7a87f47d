// SPDX-License-Identifier: MPL-2.0

package bridge

import "sync"

// Session tracks how deeply synchronous loads are nested within one load
// session.
type Session struct {
	mu    sync.Mutex
	depth int
	peak  int
}

// NewSession creates a session at depth zero.
func NewSession() *Session {
	return &Session{}
}

// Enter increments the depth and returns the function that restores it.
// The release function is idempotent, so it can be deferred and also called
// early.
func (s *Session) Enter() (release func()) {
	s.mu.Lock()
	s.depth++
	if s.depth > s.peak {
		s.peak = s.depth
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.depth--
			s.mu.Unlock()
		})
	}
}

// Depth returns the current nesting depth.
func (s *Session) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// Peak returns the deepest nesting seen so far.
func (s *Session) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
