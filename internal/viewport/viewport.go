// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package viewport computes the map region that frames a set of contacts.
package viewport

import (
	"math"

	"github.com/wneessen/friendsmap/internal/contact"
	"github.com/wneessen/friendsmap/internal/geo"
)

const (
	// MaxZoom is the deepest zoom level of the common slippy map tile schemes.
	MaxZoom = 20

	DefaultFallbackLat   = 21.0
	DefaultFallbackLon   = 78.0
	DefaultFallbackZoom  = 5
	DefaultPaddingRatio  = 0.1
	DefaultMinExtent     = 0.01
	DefaultPaddingPixels = 50
)

// Bounds is a rectangle in decimal degrees.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Contains reports whether coords lies strictly inside the bounds.
func (b Bounds) Contains(coords geo.Coordinate) bool {
	return coords.Lat > b.South && coords.Lat < b.North && coords.Lon > b.West && coords.Lon < b.East
}

// Area returns the size of the bounds in square degrees.
func (b Bounds) Area() float64 {
	return (b.North - b.South) * (b.East - b.West)
}

func (b Bounds) Center() geo.Coordinate {
	return geo.Coordinate{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

// Viewport frames the map. A fallback viewport has no bounds, the renderer centers the map and
// applies the zoom. Otherwise the renderer fits Bounds with PaddingPixels of inner padding, Center
// and Zoom are an approximation for renderers that cannot fit bounds.
type Viewport struct {
	Fallback      bool           `json:"fallback"`
	Center        geo.Coordinate `json:"center"`
	Zoom          int            `json:"zoom"`
	Bounds        *Bounds        `json:"bounds,omitempty"`
	PaddingPixels int            `json:"padding_pixels"`
}

type Options struct {
	FallbackCenter geo.Coordinate
	FallbackZoom   int
	PaddingRatio   float64
	MinExtent      float64
	PaddingPixels  int
}

func DefaultOptions() Options {
	return Options{
		FallbackCenter: geo.Coordinate{Lat: DefaultFallbackLat, Lon: DefaultFallbackLon},
		FallbackZoom:   DefaultFallbackZoom,
		PaddingRatio:   DefaultPaddingRatio,
		MinExtent:      DefaultMinExtent,
		PaddingPixels:  DefaultPaddingPixels,
	}
}

type Calculator struct {
	opts Options
}

// New returns a Calculator. A non-positive MinExtent is replaced by DefaultMinExtent.
func New(opts Options) *Calculator {
	if opts.MinExtent <= 0 {
		opts.MinExtent = DefaultMinExtent
	}
	if opts.PaddingRatio < 0 {
		opts.PaddingRatio = 0
	}
	return &Calculator{opts: opts}
}

// Compute returns the viewport for contacts. Contacts without a displayable coordinate are
// ignored. Without any displayable contact the fallback viewport is returned.
func (c *Calculator) Compute(contacts []contact.Contact) Viewport {
	bounds, ok := boundingBox(contacts)
	if !ok {
		return c.Fallback()
	}

	padLat := math.Max((bounds.North-bounds.South)*c.opts.PaddingRatio, c.opts.MinExtent)
	padLon := math.Max((bounds.East-bounds.West)*c.opts.PaddingRatio, c.opts.MinExtent)
	bounds = Bounds{
		South: math.Max(bounds.South-padLat, geo.MinLat),
		West:  math.Max(bounds.West-padLon, geo.MinLon),
		North: math.Min(bounds.North+padLat, geo.MaxLat),
		East:  math.Min(bounds.East+padLon, geo.MaxLon),
	}

	return Viewport{
		Center:        bounds.Center(),
		Zoom:          zoomFor(bounds),
		Bounds:        &bounds,
		PaddingPixels: c.opts.PaddingPixels,
	}
}

func (c *Calculator) Fallback() Viewport {
	return Viewport{
		Fallback:      true,
		Center:        c.opts.FallbackCenter,
		Zoom:          c.opts.FallbackZoom,
		PaddingPixels: c.opts.PaddingPixels,
	}
}

func boundingBox(contacts []contact.Contact) (Bounds, bool) {
	bounds := Bounds{South: math.Inf(1), West: math.Inf(1), North: math.Inf(-1), East: math.Inf(-1)}
	found := false
	for _, ct := range contacts {
		coords := ct.Coordinate()
		if !coords.Displayable() {
			continue
		}
		found = true
		bounds.South = math.Min(bounds.South, coords.Lat)
		bounds.North = math.Max(bounds.North, coords.Lat)
		bounds.West = math.Min(bounds.West, coords.Lon)
		bounds.East = math.Max(bounds.East, coords.Lon)
	}
	return bounds, found
}

// zoomFor estimates the web mercator zoom level at which bounds fit a 256px tile, ignoring the
// latitude distortion.
func zoomFor(bounds Bounds) int {
	span := math.Max(bounds.East-bounds.West, (bounds.North-bounds.South)*2)
	if span <= 0 {
		return MaxZoom
	}
	zoom := int(math.Floor(math.Log2(360 / span)))
	return max(0, min(zoom, MaxZoom))
}
