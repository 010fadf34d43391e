// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

import (
	"bytes"
	"encoding/json"
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
	cityExpected = "Quartier 205, Friedrichstraße 67, 10117 Berlin, Germany"
	cityFile     = "../../../../testdata/opencage_berlin.json"
	emptyFile    = "../../../../testdata/opencage_empty.json"

	townExpected = "Otley"
	townFile     = "../../../../testdata/opencage_otley.json"
)

var (
	cityCoords = geo.Coordinate{Lat: 52.5129, Lon: 13.3910}
	townCoords = geo.Coordinate{Lat: 53.90712, Lon: -1.69404}
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

func TestOpenCage_Search(t *testing.T) {
	t.Run("searching an address succeeds", func(t *testing.T) {
		var query string
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			query = req.URL.RawQuery
			return fileResponse(t, 200, cityFile), nil
		})
		coords, err := coder.Search(t.Context(), "Friedrichstraße 67, Berlin")
		if err != nil {
			t.Fatal(err)
		}
		if coords.Lat != 52.5128711 || coords.Lon != 13.3909874 {
			t.Errorf("unexpected coordinates: %s", coords)
		}
		for _, want := range []string{"key=test-key", "limit=1", "no_annotations=1"} {
			if !strings.Contains(query, want) {
				t.Errorf("expected query %q to contain %q", query, want)
			}
		}
	})
	t.Run("an empty result is reported as not found", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, emptyFile), nil
		})
		_, err := coder.Search(t.Context(), "Atlantis")
		if !errors.Is(err, geocode.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
	t.Run("an invalid API key is reported as not found", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return jsonResponse(t, 401, Response{Status: Status{Code: 401, Message: "invalid API key"}}), nil
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
		if _, err := coder.Search(t.Context(), "Berlin"); err == nil {
			t.Fatal("expected API request to fail")
		}
	})
}

func TestOpenCage_Reverse(t *testing.T) {
	t.Run("reverse geocoding succeeds", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, cityFile), nil
		})
		addr, err := coder.Reverse(t.Context(), cityCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.EqualFold(addr.DisplayName, cityExpected) {
			t.Errorf("expected address to be %q, got %q", cityExpected, addr.DisplayName)
		}
		if addr.City != "Berlin" {
			t.Errorf("expected city to be Berlin, got %q", addr.City)
		}
	})
	t.Run("reverse geocoding with town set should return the correct city", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return fileResponse(t, 200, townFile), nil
		})
		addr, err := coder.Reverse(t.Context(), townCoords)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.EqualFold(addr.City, townExpected) {
			t.Errorf("expected city to be %q, got %q", townExpected, addr.City)
		}
	})
	t.Run("API responding with more than one result should fail", func(t *testing.T) {
		coder := testCoderWithRoundtripFunc(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return jsonResponse(t, 200, Response{TotalResults: 2}), nil
		})
		_, err := coder.Reverse(t.Context(), cityCoords)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		wantErr := "unambigous amount of results returned for coordinates"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
}

func TestOpenCage_integration(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	apikey := os.Getenv("OPENCAGE_API_KEY")
	if apikey == "" {
		t.Skip("OPENCAGE_API_KEY not set")
	}
	t.Run("searching a well-known address succeeds", func(t *testing.T) {
		coder := New(http.New(logger.New(slog.LevelDebug)), language.English, apikey)
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
	return &stdhttp.Response{StatusCode: code, Body: data, Header: make(stdhttp.Header)}
}

func jsonResponse(t *testing.T, code int, response Response) *stdhttp.Response {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := json.NewEncoder(buf).Encode(response); err != nil {
		t.Fatalf("failed to encode response: %s", err)
	}
	return &stdhttp.Response{StatusCode: code, Body: io.NopCloser(buf), Header: make(stdhttp.Header)}
}

func testCoder(_ *testing.T) *OpenCage {
	return New(http.New(logger.New(slog.LevelDebug)), language.English, "test-key")
}

func testCoderWithRoundtripFunc(_ *testing.T, fn func(req *stdhttp.Request) (*stdhttp.Response, error)) *OpenCage {
	testHttpClient := http.New(logger.New(slog.LevelDebug))
	testHttpClient.Transport = testhelper.MockRoundTripper{Fn: fn}
	return New(testHttpClient, language.English, "test-key")
}
