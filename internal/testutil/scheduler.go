package testutil

import (
	"sync"
	"time"
)

// ManualScheduler records the installed sweep callback and fires it only when
// the test says so.
type ManualScheduler struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	installs int
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Install(interval time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	s.fn = fn
	s.installs++
	return nil
}

func (s *ManualScheduler) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = nil
	return nil
}

// Fire invokes the installed callback, if any.
func (s *ManualScheduler) Fire() {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Interval returns the interval from the most recent Install.
func (s *ManualScheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Installs returns how many times Install has been called.
func (s *ManualScheduler) Installs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installs
}
