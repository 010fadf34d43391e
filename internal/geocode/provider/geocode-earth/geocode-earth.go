// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocodeearth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/geocode"
	"github.com/wneessen/friendsmap/internal/http"
)

const (
	APIReverseEndpoint = "https://api.geocode.earth/v1/reverse"
	APISearchEndpoint  = "https://api.geocode.earth/v1/search"
	APITimeout         = time.Second * 10
	name               = "geocode-earth"
)

type GeocodeEarth struct {
	apikey string
	http   *http.Client
	lang   language.Tag
}

type Response struct {
	Features []Feature `json:"features"`
	Type     string    `json:"type"`
}

type Feature struct {
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
	Type       string     `json:"type"`
}

// Geometry is a GeoJSON point. Coordinates are ordered longitude, latitude.
type Geometry struct {
	Coordinates []float64 `json:"coordinates"`
	Type        string    `json:"type"`
}

type Properties struct {
	DisplayName  string `json:"label"`
	City         string `json:"locality"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
	HouseNumber  string `json:"housenumber"`
	Neighborhood string `json:"neighbourhood"`
	Postcode     string `json:"postalcode"`
	Road         string `json:"street"`
	State        string `json:"region"`
}

func New(client *http.Client, lang language.Tag, apikey string) *GeocodeEarth {
	return &GeocodeEarth{
		apikey: apikey,
		lang:   lang,
		http:   client,
	}
}

func (g *GeocodeEarth) Name() string {
	return name
}

func (g *GeocodeEarth) Reverse(ctx context.Context, coords geo.Coordinate) (geocode.Address, error) {
	query := url.Values{}
	query.Set("api_key", g.apikey)
	query.Set("point.lat", fmt.Sprintf("%f", coords.Lat))
	query.Set("point.lon", fmt.Sprintf("%f", coords.Lon))
	query.Set("size", "1")
	query.Set("lang", g.lang.String())

	response, err := g.get(ctx, APIReverseEndpoint, query)
	if err != nil {
		return geocode.Address{}, err
	}
	if len(response.Features) < 1 {
		return geocode.Address{}, fmt.Errorf("%w: no address found for coordinates %s", geocode.ErrNotFound, coords)
	}

	result := response.Features[0].Properties
	address := geocode.Address{
		Coordinate:  coords,
		DisplayName: result.DisplayName,
		Country:     result.Country,
		State:       result.State,
		Postcode:    result.Postcode,
		City:        result.City,
		Suburb:      result.Neighborhood,
		Street:      result.Road,
		HouseNumber: result.HouseNumber,
	}

	return address, nil
}

func (g *GeocodeEarth) Search(ctx context.Context, address string) (geo.Coordinate, error) {
	query := url.Values{}
	query.Set("api_key", g.apikey)
	query.Set("text", address)
	query.Set("size", "1")
	query.Set("lang", g.lang.String())

	response, err := g.get(ctx, APISearchEndpoint, query)
	if err != nil {
		return geo.Unresolved, err
	}
	if len(response.Features) < 1 {
		return geo.Unresolved, fmt.Errorf("%w: no coordinates found for address %q", geocode.ErrNotFound, address)
	}
	point := response.Features[0].Geometry.Coordinates
	if len(point) != 2 {
		return geo.Unresolved, fmt.Errorf("unexpected %d coordinates in response, expected 2", len(point))
	}

	return geo.Coordinate{Lat: point[1], Lon: point[0]}, nil
}

func (g *GeocodeEarth) get(ctx context.Context, endpoint string, query url.Values) (Response, error) {
	var response Response
	code, err := g.http.GetWithTimeout(ctx, endpoint, &response, query, nil, APITimeout)
	if code != 0 && code != 200 {
		return response, fmt.Errorf("%w: received non-positive response code from geocode.earth API: %d",
			geocode.ErrNotFound, code)
	}
	if err != nil {
		return response, fmt.Errorf("failed to retrieve address details from geocode.earth API: %w", err)
	}
	return response, nil
}
