package reorder

import (
	"context"
	"sync"
)

// SubmitFunc ships one reorder to the server. It receives the list version
// the caller last observed and returns the version the server assigned.
type SubmitFunc func(ctx context.Context, version int64) (int64, error)

// Sequencer serializes reorder submissions per list so that two rapid moves
// cannot race each other on the wire, and tracks the list version token the
// server uses to reject stale reorders.
type Sequencer struct {
	mu       sync.Mutex
	locks    map[string]chan struct{}
	versions map[string]int64
}

// NewSequencer creates an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{
		locks:    make(map[string]chan struct{}),
		versions: make(map[string]int64),
	}
}

func (s *Sequencer) lockFor(list string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[list]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[list] = l
	}
	return l
}

// Submit runs fn while holding the list's lock. Waiting for the lock honours
// ctx. On success the returned version becomes the list's current version.
func (s *Sequencer) Submit(ctx context.Context, list string, fn SubmitFunc) error {
	l := s.lockFor(list)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l }()

	next, err := fn(ctx, s.Version(list))
	if err != nil {
		return err
	}
	s.SetVersion(list, next)
	return nil
}

// Version returns the last version observed for list (0 if unknown).
func (s *Sequencer) Version(list string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[list]
}

// SetVersion records a version observed from a fetch. Older versions never
// replace newer ones.
func (s *Sequencer) SetVersion(list string, v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.versions[list] {
		s.versions[list] = v
	}
}

// ResetVersion forces the list version, used after a conflict-triggered resync.
func (s *Sequencer) ResetVersion(list string, v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[list] = v
}
