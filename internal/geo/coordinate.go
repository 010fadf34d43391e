// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

// Unresolved is the sentinel coordinate for "no location could be resolved". A real location at
// the intersection of the equator and the prime meridian is indistinguishable from it.
var Unresolved = Coordinate{}

// Coordinate represents a geographic coordinate in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// Valid checks if the coordinate is finite and inside the EPSG:4326 value range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= MinLat && c.Lat <= MaxLat && c.Lon >= MinLon && c.Lon <= MaxLon
}

// IsUnresolved reports whether the coordinate equals the unresolved sentinel pair.
func (c Coordinate) IsUnresolved() bool {
	return c.Lat == Unresolved.Lat && c.Lon == Unresolved.Lon
}

// Displayable reports whether the coordinate can be placed on a map. Points on a pole or on the
// 180th meridian are not displayable, a viewport clamped to the valid range could not strictly
// contain them.
func (c Coordinate) Displayable() bool {
	if !c.Valid() || c.IsUnresolved() {
		return false
	}
	return c.Lat > MinLat && c.Lat < MaxLat && c.Lon > MinLon && c.Lon < MaxLon
}

// String returns the coordinate as "lat,lon" with six decimals.
func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lon)
}

// ParseDegrees converts a decimal degree string into a float64. Blank input and anything that
// is not a number yields NaN, which never passes Valid.
func ParseDegrees(val string) float64 {
	val = strings.TrimSpace(val)
	if val == "" {
		return math.NaN()
	}
	deg, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return math.NaN()
	}
	return deg
}
