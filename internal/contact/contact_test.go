// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package contact

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"online", StatusOnline},
		{" Busy ", StatusBusy},
		{"AWAY", StatusAway},
		{"offline", StatusOffline},
		{"sleeping", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tc := range tests {
		t.Run("parsing "+tc.in, func(t *testing.T) {
			if got := ParseStatus(tc.in); got != tc.want {
				t.Errorf("expected status %q, got %q", tc.want, got)
			}
		})
	}
}

func TestContact_Displayable(t *testing.T) {
	t.Run("a contact at a real location is displayable", func(t *testing.T) {
		if !(Contact{Lat: 48.85, Lng: 2.35}).Displayable() {
			t.Error("expected contact to be displayable")
		}
	})
	t.Run("a contact at the sentinel is not displayable", func(t *testing.T) {
		if (Contact{}).Displayable() {
			t.Error("expected contact not to be displayable")
		}
	})
}

func TestIdentityKey(t *testing.T) {
	t.Run("case and whitespace variants share a key", func(t *testing.T) {
		a := Contact{Name: "Ann", Address: "Paris,  France"}
		b := Contact{Name: " ANN ", Address: "paris, france"}
		if a.Key() != b.Key() {
			t.Errorf("expected %q and %q to be equal", a.Key(), b.Key())
		}
	})
	t.Run("name and address cannot bleed into each other", func(t *testing.T) {
		if IdentityKey("a b", "c") == IdentityKey("a", "b c") {
			t.Error("expected keys to differ")
		}
	})
}

func TestRawRecord_Coordinate(t *testing.T) {
	t.Run("textual coordinates are coerced", func(t *testing.T) {
		coords := RawRecord{Lat: " 12.34 ", Lng: "56.78"}.Coordinate()
		if coords.Lat != 12.34 || coords.Lon != 56.78 {
			t.Errorf("unexpected coordinates: %s", coords)
		}
	})
	t.Run("blank coordinates are not valid", func(t *testing.T) {
		if (RawRecord{}).Coordinate().Valid() {
			t.Error("expected blank coordinates to be invalid")
		}
	})
}

func TestNewID(t *testing.T) {
	t.Run("identifiers are ULIDs carrying the creation time", func(t *testing.T) {
		now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
		id, err := ulid.Parse(NewID(now))
		if err != nil {
			t.Fatal(err)
		}
		if !ulid.Time(id.Time()).Equal(now) {
			t.Errorf("expected timestamp %s, got %s", now, ulid.Time(id.Time()))
		}
	})
	t.Run("later identifiers sort after earlier ones", func(t *testing.T) {
		now := time.Now()
		first, second := NewID(now), NewID(now.Add(time.Millisecond))
		if first >= second {
			t.Errorf("expected %q to sort before %q", first, second)
		}
	})
}
