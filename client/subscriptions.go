// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// subscriptionSet tracks the destinations a duplex client is currently
// subscribed to. The read loop consults it on every MESSAGE frame as a
// defensive filter against stale or duplicate server state; it is not a
// protocol requirement. Entries may be glob patterns ("/queue/*"),
// matched with '/' as the separator so a star never crosses a path
// segment.
//
// Mutated by caller goroutines, read by the read loop; the lock covers
// only map access, nothing blocking runs under it.
type subscriptionSet struct {
	mu      sync.RWMutex
	entries map[string]glob.Glob
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{
		entries: make(map[string]glob.Glob),
	}
}

// Add registers a destination or pattern. A pattern that fails to
// compile is kept as a literal destination.
func (s *subscriptionSet) Add(destination string) {
	var g glob.Glob
	if strings.ContainsAny(destination, "*?[{") {
		if compiled, err := glob.Compile(destination, '/'); err == nil {
			g = compiled
		}
	}

	s.mu.Lock()
	s.entries[destination] = g
	s.mu.Unlock()
}

// Remove drops a destination or pattern from the set.
func (s *subscriptionSet) Remove(destination string) {
	s.mu.Lock()
	delete(s.entries, destination)
	s.mu.Unlock()
}

// Matches reports whether the given concrete destination is covered by
// any subscribed entry, literally or by glob.
func (s *subscriptionSet) Matches(destination string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entries[destination]; ok {
		return true
	}
	for _, g := range s.entries {
		if g != nil && g.Match(destination) {
			return true
		}
	}
	return false
}

// Snapshot returns the current entries. Disconnect iterates over a
// snapshot because unsubscribing mutates the set underneath.
func (s *subscriptionSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	destinations := make([]string, 0, len(s.entries))
	for destination := range s.entries {
		destinations = append(destinations, destination)
	}
	return destinations
}

// Len returns the number of subscribed entries.
func (s *subscriptionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
