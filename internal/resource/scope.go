// Package resource tracks run-scoped resources that must be released exactly
// once when their run ends, is superseded, or is abandoned.
package resource

import (
	"errors"
	"fmt"
	"sync"
)

// ErrScopeReleased is returned when registering on a scope that has already
// been released. The resource is released immediately in that case.
var ErrScopeReleased = errors.New("resource scope already released")

// ReleaseFunc frees a single resource.
type ReleaseFunc func() error

type entry struct {
	name    string
	release ReleaseFunc
}

// Scope owns every resource created on behalf of one pipeline run.
// Resources are released in reverse registration order.
type Scope struct {
	mu       sync.Mutex
	entries  []entry
	released bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Register adds a resource to the scope. Late registrations against a
// released scope are released on the spot so nothing leaks.
func (s *Scope) Register(name string, release ReleaseFunc) error {
	if release == nil {
		return nil
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		if err := release(); err != nil {
			return errors.Join(ErrScopeReleased, fmt.Errorf("release %s: %w", name, err))
		}
		return ErrScopeReleased
	}
	s.entries = append(s.entries, entry{name: name, release: release})
	s.mu.Unlock()
	return nil
}

// Release frees every registered resource. Calls after the first are no-ops.
func (s *Scope) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		if err := entries[i].release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", entries[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// Released reports whether Release has run.
func (s *Scope) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Len returns the number of resources still held.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
