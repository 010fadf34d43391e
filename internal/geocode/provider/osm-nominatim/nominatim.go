// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/geocode"
	"github.com/wneessen/friendsmap/internal/http"
)

const (
	APISearchEndpoint  = "https://nominatim.openstreetmap.org/search"
	APIReverseEndpoint = "https://nominatim.openstreetmap.org/reverse"
	APITimeout         = time.Second * 10
	name               = "osm-nominatim"
)

type Nominatim struct {
	http *http.Client
	lang language.Tag
}

type ReverseResult struct {
	APILat      string  `json:"lat"`
	APILon      string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Error       string  `json:"error"`
	Address     Address `json:"address"`
}

type SearchResult struct {
	APILat      string `json:"lat"`
	APILon      string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type Address struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
}

func New(client *http.Client, lang language.Tag) *Nominatim {
	return &Nominatim{
		lang: lang,
		http: client,
	}
}

func (n *Nominatim) Name() string {
	return name
}

// Search asks the Nominatim free-text search for the best match of address.
func (n *Nominatim) Search(ctx context.Context, address string) (geo.Coordinate, error) {
	var result []SearchResult

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("q", address)
	query.Set("limit", "1")
	query.Set("accept-language", n.lang.String())

	code, err := n.http.GetWithTimeout(ctx, APISearchEndpoint, &result, query, nil, APITimeout)
	if code != 0 && (code < 200 || code > 299) {
		return geo.Unresolved, fmt.Errorf("%w: Nominatim API returned status %d", geocode.ErrNotFound, code)
	}
	if err != nil {
		return geo.Unresolved, fmt.Errorf("failed to fetch address details from Nominatim API: %w", err)
	}
	if len(result) < 1 {
		return geo.Unresolved, fmt.Errorf("%w: %q", geocode.ErrNotFound, address)
	}

	return parseCoordinate(result[0].APILat, result[0].APILon)
}

func (n *Nominatim) Reverse(ctx context.Context, coords geo.Coordinate) (geocode.Address, error) {
	var result ReverseResult

	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", fmt.Sprintf("%f", coords.Lat))
	query.Set("lon", fmt.Sprintf("%f", coords.Lon))
	query.Set("accept-language", n.lang.String())

	code, err := n.http.GetWithTimeout(ctx, APIReverseEndpoint, &result, query, nil, APITimeout)
	if code != 0 && (code < 200 || code > 299) {
		return geocode.Address{}, fmt.Errorf("%w: Nominatim API returned status %d", geocode.ErrNotFound, code)
	}
	if err != nil {
		return geocode.Address{}, fmt.Errorf("failed to fetch reverse address details from Nominatim API: %w", err)
	}
	// Nominatim answers unknown locations (i.e. open sea) with 200 and an error message
	if result.Error != "" {
		return geocode.Address{}, fmt.Errorf("%w: %s", geocode.ErrNotFound, result.Error)
	}

	address := geocode.Address{
		DisplayName: result.DisplayName,
		Country:     result.Address.Country,
		State:       result.Address.State,
		Postcode:    result.Address.Postcode,
		City:        result.Address.City,
		Suburb:      result.Address.Suburb,
		Street:      result.Address.Road,
		HouseNumber: result.Address.HouseNumber,
	}
	if result.Address.City == "" && result.Address.Town != "" {
		address.City = result.Address.Town
	}
	if result.Address.City == "" && result.Address.Town == "" && result.Address.Village != "" {
		address.City = result.Address.Village
	}
	address.Coordinate, err = parseCoordinate(result.APILat, result.APILon)
	if err != nil {
		return geocode.Address{}, err
	}

	return address, nil
}

func parseCoordinate(lat, lon string) (geo.Coordinate, error) {
	var coords geo.Coordinate
	var err error
	coords.Lat, err = strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Unresolved, fmt.Errorf("failed to parse latitude from Nominatim API response: %w", err)
	}
	coords.Lon, err = strconv.ParseFloat(lon, 64)
	if err != nil {
		return geo.Unresolved, fmt.Errorf("failed to parse longitude from Nominatim API response: %w", err)
	}
	return coords, nil
}
