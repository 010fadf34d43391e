// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper contains helpers shared by the package tests.
package testhelper

import (
	"math"
	"net/http"
	"os"
	"testing"

	"github.com/wneessen/friendsmap/internal/geo"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371000.0

// TestOnlineAPIURL is a slow endpoint used to provoke client side timeouts.
const TestOnlineAPIURL = "https://httpbin.org/delay/5"

// MockRoundTripper replaces the transport of an HTTP client with a function.
type MockRoundTripper struct {
	Fn func(*http.Request) (*http.Response, error)
}

// RoundTrip implements http.RoundTripper.
func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// PerformIntegrationTests skips the calling test unless live network tests are enabled.
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if val := os.Getenv("PERFORM_INTEGRATION_TESTS"); val != "true" {
		t.Skip("skipping integration tests")
	}
}

// Distance returns the great-circle distance between a and b in meters using the Haversine formula.
func Distance(a, b geo.Coordinate) float64 {
	dLat := (a.Lat - b.Lat) * math.Pi / 180
	dLon := (a.Lon - b.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}
