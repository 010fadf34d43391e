// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package contact

import (
	"strings"
	"testing"
)

var testContacts = []Contact{
	{Name: "Ann", Address: "Paris", Lat: 48.85, Lng: 2.35},
	{Name: "Bo", Address: "12 Main St", Lat: 10, Lng: 20},
	{Name: "Carla", Address: "Anchorage", Lat: 61.2, Lng: -149.9},
	{Name: "Dmitri", Address: "Москва", Lat: 55.75, Lng: 37.62},
}

func TestFilter(t *testing.T) {
	t.Run("an empty query returns the input in order", func(t *testing.T) {
		for _, query := range []string{"", "   "} {
			got := Filter(testContacts, query)
			if len(got) != len(testContacts) {
				t.Fatalf("expected %d contacts, got %d", len(testContacts), len(got))
			}
			for i := range got {
				if got[i] != testContacts[i] {
					t.Errorf("expected contact %d to be %q, got %q", i, testContacts[i].Name, got[i].Name)
				}
			}
		}
	})
	t.Run("a query matches names", func(t *testing.T) {
		got := Filter(testContacts[:2], "an")
		if len(got) != 1 || got[0].Name != "Ann" {
			t.Errorf("expected only Ann, got %+v", got)
		}
	})
	t.Run("a query matches name or address and keeps the order", func(t *testing.T) {
		got := Filter(testContacts, "AN")
		if len(got) != 2 || got[0].Name != "Ann" || got[1].Name != "Carla" {
			t.Errorf("expected Ann and Carla, got %+v", got)
		}
	})
	t.Run("the query is trimmed", func(t *testing.T) {
		got := Filter(testContacts, "  main ")
		if len(got) != 1 || got[0].Name != "Bo" {
			t.Errorf("expected only Bo, got %+v", got)
		}
	})
	t.Run("non-ASCII text is matched case-insensitively", func(t *testing.T) {
		got := Filter(testContacts, "МОСК")
		if len(got) != 1 || got[0].Name != "Dmitri" {
			t.Errorf("expected only Dmitri, got %+v", got)
		}
	})
	t.Run("no match yields an empty result", func(t *testing.T) {
		if got := Filter(testContacts, "zzz"); len(got) != 0 {
			t.Errorf("expected no contacts, got %+v", got)
		}
	})
	t.Run("every match contains the query", func(t *testing.T) {
		for _, query := range []string{"a", "An", "st", "9", "Par"} {
			q := strings.ToLower(query)
			for _, c := range Filter(testContacts, query) {
				if !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Address), q) {
					t.Errorf("contact %q does not contain %q", c.Name, query)
				}
			}
		}
	})
}
