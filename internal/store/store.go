// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package store holds the contact collection shown on the map.
package store

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wneessen/friendsmap/internal/contact"
	"github.com/wneessen/friendsmap/internal/viewport"
)

// Snapshot is a consistent copy of the collection. It is never modified by the store.
type Snapshot struct {
	Generation  uint64            `json:"generation"`
	RefreshedAt time.Time         `json:"refreshed_at"`
	Contacts    []contact.Contact `json:"contacts"`
	Dropped     []contact.Dropped `json:"dropped"`
}

// View is the filtered collection together with the viewport that frames it.
type View struct {
	Total       int               `json:"total"`
	Shown       int               `json:"shown"`
	Contacts    []contact.Contact `json:"contacts"`
	Dropped     []contact.Dropped `json:"dropped"`
	Viewport    viewport.Viewport `json:"viewport"`
	RefreshedAt time.Time         `json:"refreshed_at"`
}

// Store keeps the result of the latest normalization batch and the contacts added locally.
// Batches are tagged with a generation handed out by Begin. A batch result is only installed
// if no newer batch was applied before, so a slow batch never overwrites a faster later one.
type Store struct {
	calc   *viewport.Calculator
	issued atomic.Uint64

	mu          sync.RWMutex
	applied     uint64
	refreshedAt time.Time
	feed        []contact.Contact
	dropped     []contact.Dropped
	local       []contact.Contact
}

func New(calc *viewport.Calculator) *Store {
	return &Store{calc: calc}
}

// Begin returns the generation tag for a new batch.
func (s *Store) Begin() uint64 {
	return s.issued.Add(1)
}

// Apply installs the result of the batch tagged gen. It returns false and leaves the store
// untouched if a batch with the same or a newer generation was applied already.
func (s *Store) Apply(gen uint64, result contact.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.applied {
		return false
	}
	s.applied = gen
	s.refreshedAt = time.Now()
	s.feed = slices.Clone(result.Contacts)
	s.dropped = slices.Clone(result.Dropped)
	return true
}

// Add stores a locally created contact. A local contact with the same identity is replaced.
// Local contacts survive later batches.
func (s *Store) Add(c contact.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := c.Key()
	for i := range s.local {
		if s.local[i].Key() == key {
			s.local[i] = c
			return
		}
	}
	s.local = append(s.local, c)
}

// Snapshot returns the feed contacts followed by the local contacts that are not part of the
// feed yet.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contacts := make([]contact.Contact, 0, len(s.feed)+len(s.local))
	contacts = append(contacts, s.feed...)
	seen := make(map[string]struct{}, len(s.feed))
	for _, c := range s.feed {
		seen[c.Key()] = struct{}{}
	}
	for _, c := range s.local {
		if _, ok := seen[c.Key()]; !ok {
			contacts = append(contacts, c)
		}
	}

	return Snapshot{
		Generation:  s.applied,
		RefreshedAt: s.refreshedAt,
		Contacts:    contacts,
		Dropped:     append([]contact.Dropped{}, s.dropped...),
	}
}

// View runs the display pipeline on a snapshot: filter by query, then frame the matches.
func (s *Store) View(query string) View {
	snap := s.Snapshot()
	matches := contact.Filter(snap.Contacts, query)
	return View{
		Total:       len(snap.Contacts),
		Shown:       len(matches),
		Contacts:    matches,
		Dropped:     snap.Dropped,
		Viewport:    s.calc.Compute(matches),
		RefreshedAt: snap.RefreshedAt,
	}
}
