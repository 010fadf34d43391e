// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nominatim

import (
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"os"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/geocode"
	"github.com/wneessen/friendsmap/internal/http"
	"github.com/wneessen/friendsmap/internal/logger"
	"github.com/wneessen/friendsmap/internal/testhelper"
)

const (
	searchFile          = "../../../../testdata/nominatim_search_berlin.json"
	searchFileEmpty     = "../../../../testdata/nominatim_search_empty.json"
	searchFileBrokenLat = "../../../../testdata/nominatim_search_brokenlat.json"
	searchFileBrokenLon = "../../../../testdata/nominatim_search_brokenlon.json"

	cityExpected = "Quartier 205, 67, Friedrichstraße, Friedrichstadt, Mitte, Berlin, 10117, Deutschland"
	cityFile     = "../../../../testdata/nominatim_reverse_berlin.json"
	seaFile      = "../../../../testdata/nominatim_reverse_sea.json"

	villageExpected = "Marshfield"
	villageFile     = "../../../../testdata/nominatim_reverse_marshfield.json"

	townExpected = "Otley"
	townFile     = "../../../../testdata/nominatim_reverse_otley.json"
)

var (
	cityCoords    = geo.Coordinate{Lat: 52.5129, Lon: 13.3910}
	villageCoords = geo.Coordinate{Lat: 51.46292, Lon: -2.31850}
	townCoords    = geo.Coordinate{Lat: 53.90712, Lon: -1.69404}
)

func TestNew(t *testing.T) {
	t.Run("creating a new provider succeeds", func(t *testing.T) {
		coder := testCoder(t)
		if coder == nil {
			t.Fatal("expected a non-nil geocoder")
		}
	})
	t.Run("provider name is correct", func(t *testing.T) {
		coder := testCoder(t)
		if coder.Name() != name {
			t.Errorf("expected provider name to be %q, got %q", name, coder.Name())
		}
	})
}

func TestNominatim_Search(t *testing.T) {
	t.Run("searching an address succeeds", func(t *testing.T) {
		var query string
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			query = req.URL.RawQuery
			return fileResponse(t, 200, searchFile), nil
		})
		coords, err := coder.Search(t.Context(), "Berlin")
		if err != nil {
			t.Fatal(err)
		}
		if coords.Lat != 52.5173885 || coords.Lon != 13.3951309 {
			t.Errorf("expected coordinates of Berlin, got %s", coords)
		}
		for _, want := range []string{"limit=1", "format=jsonv2", "q=Berlin", "accept-language=en"} {
			if !strings.Contains(query, want) {
				t.Errorf("expected query %q to contain %q", query, want)
			}
		}
	})
	t.Run("an empty result is reported as not found", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, searchFileEmpty), nil
		})
		_, err := coder.Search(t.Context(), "Atlantis")
		if !errors.Is(err, geocode.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
	t.Run("a non-2xx status is reported as not found", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return &stdhttp.Response{
				StatusCode: 429,
				Body:       io.NopCloser(strings.NewReader("<html>Too many requests</html>")),
				Header:     make(stdhttp.Header),
			}, nil
		})
		_, err := coder.Search(t.Context(), "Berlin")
		if !errors.Is(err, geocode.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
	t.Run("a transport error is returned", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		})
		_, err := coder.Search(t.Context(), "Berlin")
		if err == nil {
			t.Fatal("expected API request to fail")
		}
		if errors.Is(err, geocode.ErrNotFound) {
			t.Error("expected transport error not to be reported as not found")
		}
	})
	t.Run("an unparsable latitude fails", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, searchFileBrokenLat), nil
		})
		_, err := coder.Search(t.Context(), "Berlin")
		if err == nil || !strings.Contains(err.Error(), "failed to parse latitude") {
			t.Errorf("expected error to contain 'failed to parse latitude', got %v", err)
		}
	})
	t.Run("an unparsable longitude fails", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, searchFileBrokenLon), nil
		})
		_, err := coder.Search(t.Context(), "Berlin")
		if err == nil || !strings.Contains(err.Error(), "failed to parse longitude") {
			t.Errorf("expected error to contain 'failed to parse longitude', got %v", err)
		}
	})
}

func TestNominatim_Reverse(t *testing.T) {
	t.Run("reverse geocoding succeeds", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, cityFile), nil
		})
		addr, err := coder.(geocode.ReverseGeocoder).Reverse(t.Context(), cityCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.EqualFold(addr.DisplayName, cityExpected) {
			t.Errorf("expected address to be %q, got %q", cityExpected, addr.DisplayName)
		}
		if addr.Street != "Friedrichstraße" || addr.HouseNumber != "67" {
			t.Errorf("expected street to be Friedrichstraße 67, got %s %s", addr.Street, addr.HouseNumber)
		}
		if !addr.Coordinate.Displayable() {
			t.Errorf("expected displayable coordinates, got %s", addr.Coordinate)
		}
	})
	t.Run("reverse geocoding with town set should return the correct city", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, townFile), nil
		})
		addr, err := coder.(geocode.ReverseGeocoder).Reverse(t.Context(), townCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.EqualFold(addr.City, townExpected) {
			t.Errorf("expected city to be %q, got %q", townExpected, addr.City)
		}
	})
	t.Run("reverse geocoding with village set should return the correct city", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, villageFile), nil
		})
		addr, err := coder.(geocode.ReverseGeocoder).Reverse(t.Context(), villageCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.EqualFold(addr.City, villageExpected) {
			t.Errorf("expected city to be %q, got %q", villageExpected, addr.City)
		}
	})
	t.Run("an unknown location is reported as not found", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, seaFile), nil
		})
		_, err := coder.(geocode.ReverseGeocoder).Reverse(t.Context(), geo.Coordinate{Lat: 30, Lon: -40})
		if !errors.Is(err, geocode.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
	t.Run("reverse geocoding fails", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		})
		_, err := coder.(geocode.ReverseGeocoder).Reverse(t.Context(), cityCoords)
		if err == nil {
			t.Fatal("expected API request to fail")
		}
	})
}

func TestNominatim_Search_integration(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	t.Run("searching a well-known address succeeds", func(t *testing.T) {
		coder := testCoder(t)
		coords, err := coder.Search(t.Context(), "Friedrichstraße 67, 10117 Berlin")
		if err != nil {
			t.Fatal(err)
		}
		if testhelper.Distance(coords, cityCoords) > 1000 {
			t.Errorf("expected coordinates close to %s, got %s", cityCoords, coords)
		}
	})
}

func fileResponse(t *testing.T, code int, file string) *stdhttp.Response {
	t.Helper()
	data, err := os.Open(file)
	if err != nil {
		t.Fatalf("failed to open JSON response file: %s", err)
	}
	return &stdhttp.Response{
		StatusCode: code,
		Body:       data,
		Header:     make(stdhttp.Header),
	}
}

func testCoder(_ *testing.T) geocode.Geocoder {
	testHttpClient := http.New(logger.New(slog.LevelDebug))
	return New(testHttpClient, language.English)
}

func testCoderWithRoundtripFunc(_ *testing.T, fn func(req *stdhttp.Request) (*stdhttp.Response, error)) geocode.Geocoder {
	testHttpClient := http.New(logger.New(slog.LevelDebug))
	testHttpClient.Transport = testhelper.MockRoundTripper{Fn: fn}
	return New(testHttpClient, language.English)
}
