// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package contact turns raw friend records into positioned contacts and filters them.
package contact

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/cases"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/geocode"
)

type Status string

const (
	StatusUnknown Status = ""
	StatusOnline  Status = "online"
	StatusBusy    Status = "busy"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// ParseStatus maps val case-insensitively to a Status. Unknown values yield StatusUnknown.
func ParseStatus(val string) Status {
	switch status := Status(strings.ToLower(strings.TrimSpace(val))); status {
	case StatusOnline, StatusBusy, StatusAway, StatusOffline:
		return status
	default:
		return StatusUnknown
	}
}

// Contact is a friend record with a resolved position. All fields but Name, Address and the
// coordinates are optional.
type Contact struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	Origin     string  `json:"from,omitempty"`
	Address    string  `json:"address"`
	Profession string  `json:"profession,omitempty"`
	Office     string  `json:"office,omitempty"`
	Birthday   string  `json:"birthday,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Email      string  `json:"email,omitempty"`
	Status     Status  `json:"status,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

func (c Contact) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: c.Lat, Lon: c.Lng}
}

// Displayable reports whether the contact can be shown on the map.
func (c Contact) Displayable() bool {
	return c.Coordinate().Displayable()
}

// Key returns the session identity of the contact: its case-folded name and normalized address.
func (c Contact) Key() string {
	return IdentityKey(c.Name, c.Address)
}

// IdentityKey builds the deduplication key for a name and address pair.
func IdentityKey(name, address string) string {
	return cases.Fold().String(strings.TrimSpace(name)) + "\x00" + geocode.NormalizeAddress(address)
}

// RawRecord is a contact as it arrives from the spreadsheet feed or a form submission. The
// coordinates are kept as text and may be blank or garbage.
type RawRecord struct {
	Line       int    `json:"line,omitempty"`
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Origin     string `json:"from,omitempty"`
	Address    string `json:"address"`
	Profession string `json:"profession,omitempty"`
	Office     string `json:"office,omitempty"`
	Birthday   string `json:"birthday,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Status     string `json:"status,omitempty"`
	Lat        string `json:"lat,omitempty"`
	Lng        string `json:"lng,omitempty"`
}

// Coordinate coerces the textual coordinates. Missing or malformed values become NaN.
func (r RawRecord) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: geo.ParseDegrees(r.Lat), Lon: geo.ParseDegrees(r.Lng)}
}

func (r RawRecord) hasCoordinates() bool {
	return strings.TrimSpace(r.Lat) != "" || strings.TrimSpace(r.Lng) != ""
}

func (r RawRecord) toContact(coords geo.Coordinate) Contact {
	return Contact{
		ID:         strings.TrimSpace(r.ID),
		Name:       strings.TrimSpace(r.Name),
		Origin:     strings.TrimSpace(r.Origin),
		Address:    strings.TrimSpace(r.Address),
		Profession: strings.TrimSpace(r.Profession),
		Office:     strings.TrimSpace(r.Office),
		Birthday:   strings.TrimSpace(r.Birthday),
		Phone:      strings.TrimSpace(r.Phone),
		Email:      strings.TrimSpace(r.Email),
		Status:     ParseStatus(r.Status),
		Lat:        coords.Lat,
		Lng:        coords.Lon,
	}
}

// NewID returns a new time-ordered contact identifier.
func NewID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
