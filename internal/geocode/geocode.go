// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geocode resolves free-text addresses to coordinates and back using external
// geocoding services.
package geocode

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"

	"github.com/wneessen/friendsmap/internal/geo"
)

// ErrNotFound is returned by a Geocoder when the service knows no match for the query.
var ErrNotFound = errors.New("no match found")

type Address struct {
	Coordinate  geo.Coordinate
	DisplayName string
	Country     string
	State       string
	Postcode    string
	City        string
	Suburb      string
	Street      string
	HouseNumber string
}

// Geocoder resolves a free-text address into a coordinate.
type Geocoder interface {
	Name() string
	Search(ctx context.Context, address string) (geo.Coordinate, error)
}

// ReverseGeocoder resolves a coordinate into an address.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, coords geo.Coordinate) (Address, error)
}

// NormalizeAddress trims, collapses inner whitespace and case-folds an address so that
// spelling variants of the same address share one cache key.
func NormalizeAddress(address string) string {
	return cases.Fold().String(strings.Join(strings.Fields(address), " "))
}
