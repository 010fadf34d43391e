// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package contact

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/logger"
)

type stubResolver struct {
	mu      sync.Mutex
	known   map[string]geo.Coordinate
	calls   []string
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func (s *stubResolver) Resolve(_ context.Context, address string) (geo.Coordinate, bool) {
	current := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		peak := s.peak.Load()
		if current <= peak || s.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, address)
	coords, ok := s.known[address]
	return coords, ok
}

func TestNormalizer_Normalize(t *testing.T) {
	t.Run("records with coordinates never reach the resolver", func(t *testing.T) {
		resolver := &stubResolver{}
		result := testNormalizer(resolver, 0).Normalize(t.Context(), []RawRecord{
			{Name: "Bo", Address: "12 Main St", Lat: "12.34", Lng: "56.78"},
		})
		if len(resolver.calls) != 0 {
			t.Errorf("expected no lookups, got %v", resolver.calls)
		}
		if len(result.Contacts) != 1 {
			t.Fatalf("expected 1 contact, got %d", len(result.Contacts))
		}
		if result.Contacts[0].Lat != 12.34 || result.Contacts[0].Lng != 56.78 {
			t.Errorf("expected coordinates to be unchanged, got %s", result.Contacts[0].Coordinate())
		}
	})
	t.Run("an unresolvable address is dropped and reported", func(t *testing.T) {
		resolver := &stubResolver{}
		result := testNormalizer(resolver, 0).Normalize(t.Context(), []RawRecord{
			{Name: "Ann", Address: "Atlantis"},
		})
		if len(result.Contacts) != 0 {
			t.Errorf("expected no contacts, got %d", len(result.Contacts))
		}
		if len(result.Dropped) != 1 || result.Dropped[0].Reason != ReasonAddressNotFound {
			t.Errorf("expected 1 dropped record with reason %q, got %+v", ReasonAddressNotFound, result.Dropped)
		}
	})
	t.Run("raw rows are resolved and kept in input order", func(t *testing.T) {
		resolver := &stubResolver{known: map[string]geo.Coordinate{"Paris": {Lat: 48.85, Lon: 2.35}}}
		result := testNormalizer(resolver, 0).Normalize(t.Context(), []RawRecord{
			{Name: "Ann", Address: "Paris", Lat: "", Lng: ""},
			{Name: "Bo", Address: "12 Main St", Lat: "10.0", Lng: "20.0"},
		})
		if len(result.Contacts) != 2 {
			t.Fatalf("expected 2 contacts, got %d", len(result.Contacts))
		}
		ann, bo := result.Contacts[0], result.Contacts[1]
		if ann.Name != "Ann" || ann.Lat != 48.85 || ann.Lng != 2.35 {
			t.Errorf("unexpected first contact: %+v", ann)
		}
		if bo.Name != "Bo" || bo.Lat != 10 || bo.Lng != 20 {
			t.Errorf("unexpected second contact: %+v", bo)
		}
		if !ann.Displayable() || !bo.Displayable() {
			t.Error("expected both contacts to be displayable")
		}
		if len(resolver.calls) != 1 || resolver.calls[0] != "Paris" {
			t.Errorf("expected a single lookup for Paris, got %v", resolver.calls)
		}
	})
	t.Run("sentinel, polar and invalid coordinates fall back to the address", func(t *testing.T) {
		resolver := &stubResolver{known: map[string]geo.Coordinate{"Paris": {Lat: 48.85, Lon: 2.35}}}
		result := testNormalizer(resolver, 0).Normalize(t.Context(), []RawRecord{
			{Name: "A", Address: "Paris", Lat: "0", Lng: "0"},
			{Name: "B", Address: "Paris", Lat: "north", Lng: "east"},
			{Name: "C", Address: "Paris", Lat: "123", Lng: "10"},
			{Name: "D", Address: "Paris", Lat: "90", Lng: "10"},
		})
		if len(result.Contacts) != 4 {
			t.Fatalf("expected 4 contacts, got %d (dropped: %+v)", len(result.Contacts), result.Dropped)
		}
		for _, c := range result.Contacts {
			if c.Lat != 48.85 || c.Lng != 2.35 {
				t.Errorf("expected %s to be placed in Paris, got %s", c.Name, c.Coordinate())
			}
		}
	})
	t.Run("records without address report the cause", func(t *testing.T) {
		result := testNormalizer(&stubResolver{}, 0).Normalize(t.Context(), []RawRecord{
			{Name: "A"},
			{Name: "B", Lat: "abc", Lng: "1"},
		})
		if len(result.Dropped) != 2 {
			t.Fatalf("expected 2 dropped records, got %d", len(result.Dropped))
		}
		if result.Dropped[0].Reason != ReasonNoAddress {
			t.Errorf("expected reason %q, got %q", ReasonNoAddress, result.Dropped[0].Reason)
		}
		if result.Dropped[1].Reason != ReasonInvalidCoordinates {
			t.Errorf("expected reason %q, got %q", ReasonInvalidCoordinates, result.Dropped[1].Reason)
		}
	})
	t.Run("later duplicates are dropped", func(t *testing.T) {
		result := testNormalizer(&stubResolver{}, 0).Normalize(t.Context(), []RawRecord{
			{Name: "Ann", Address: "Paris", Lat: "48.85", Lng: "2.35", Phone: "1"},
			{Name: "ann", Address: " PARIS ", Lat: "48.86", Lng: "2.36", Phone: "2"},
		})
		if len(result.Contacts) != 1 || result.Contacts[0].Phone != "1" {
			t.Errorf("expected the first record to win, got %+v", result.Contacts)
		}
		if len(result.Dropped) != 1 || result.Dropped[0].Reason != ReasonDuplicate {
			t.Errorf("expected a duplicate to be reported, got %+v", result.Dropped)
		}
	})
	t.Run("optional fields are trimmed and the status parsed", func(t *testing.T) {
		result := testNormalizer(&stubResolver{}, 0).Normalize(t.Context(), []RawRecord{
			{ID: "7", Name: " Ann ", Address: "Paris", Profession: " Baker ", Status: "Online", Lat: "1", Lng: "1"},
		})
		c := result.Contacts[0]
		if c.ID != "7" || c.Name != "Ann" || c.Profession != "Baker" || c.Status != StatusOnline {
			t.Errorf("unexpected contact: %+v", c)
		}
	})
	t.Run("dropped records are logged", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		normalizer := NewNormalizer(&stubResolver{}, logger.NewLogger(slog.LevelDebug, buf), 0)
		normalizer.Normalize(t.Context(), []RawRecord{{Name: "Ann", Address: "Atlantis", Line: 3}})
		if !strings.Contains(buf.String(), "contact dropped from map") || !strings.Contains(buf.String(), "line=3") {
			t.Errorf("expected a warning for the dropped record, got %q", buf.String())
		}
	})
	t.Run("an empty batch yields an empty result", func(t *testing.T) {
		result := testNormalizer(&stubResolver{}, 0).Normalize(t.Context(), nil)
		if len(result.Contacts) != 0 || len(result.Dropped) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})
}

func TestNormalizer_Normalize_concurrency(t *testing.T) {
	records := make([]RawRecord, 20)
	known := make(map[string]geo.Coordinate)
	for i := range records {
		address := "address " + string(rune('a'+i))
		records[i] = RawRecord{Name: address, Address: address}
		known[address] = geo.Coordinate{Lat: float64(i + 1), Lon: float64(i + 1)}
	}

	t.Run("lookups of a batch run concurrently", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			resolver := &stubResolver{known: known, delay: time.Second}
			start := time.Now()
			result := testNormalizer(resolver, 0).Normalize(t.Context(), records)
			if elapsed := time.Since(start); elapsed != time.Second {
				t.Errorf("expected batch to take as long as the slowest lookup, took %s", elapsed)
			}
			if len(result.Contacts) != len(records) {
				t.Errorf("expected %d contacts, got %d", len(records), len(result.Contacts))
			}
			for i, c := range result.Contacts {
				if c.Name != records[i].Name {
					t.Errorf("expected contact %d to be %q, got %q", i, records[i].Name, c.Name)
				}
			}
		})
	})
	t.Run("the concurrency limit is respected", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			resolver := &stubResolver{known: known, delay: time.Second}
			start := time.Now()
			testNormalizer(resolver, 5).Normalize(t.Context(), records)
			if peak := resolver.peak.Load(); peak != 5 {
				t.Errorf("expected at most 5 concurrent lookups, got %d", peak)
			}
			if elapsed := time.Since(start); elapsed != 4*time.Second {
				t.Errorf("expected batch to take 4s, took %s", elapsed)
			}
		})
	})
}

func testNormalizer(resolver Resolver, limit int) *Normalizer {
	return NewNormalizer(resolver, logger.NewLogger(slog.LevelError, bytes.NewBuffer(nil)), limit)
}
