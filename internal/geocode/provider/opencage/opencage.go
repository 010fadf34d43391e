// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package opencage

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
	APIEndpoint = "https://api.opencagedata.com/geocode/v1/json"
	APITimeout  = time.Second * 10
	name        = "opencage"
)

type OpenCage struct {
	apikey string
	http   *http.Client
	lang   language.Tag
}

type Response struct {
	Results      []Result `json:"results"`
	Status       Status   `json:"status"`
	TotalResults int      `json:"total_results"`
}

type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Result struct {
	Components  Components `json:"components"`
	DisplayName string     `json:"formatted"`
	Geometry    Geometry   `json:"geometry"`
}

type Components struct {
	NomalizedCity string `json:"_normalized_city"`
	City          string `json:"city"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
	HouseNumber   string `json:"house_number"`
	Postcode      string `json:"postcode"`
	Road          string `json:"road"`
	State         string `json:"state"`
	Suburb        string `json:"suburb"`
	Town          string `json:"town"`
	Village       string `json:"village"`
}

type Geometry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

func New(client *http.Client, lang language.Tag, apikey string) *OpenCage {
	return &OpenCage{
		apikey: apikey,
		lang:   lang,
		http:   client,
	}
}

func (o *OpenCage) Name() string {
	return name
}

func (o *OpenCage) Search(ctx context.Context, address string) (geo.Coordinate, error) {
	response, err := o.query(ctx, address)
	if err != nil {
		return geo.Unresolved, err
	}
	if len(response.Results) < 1 {
		return geo.Unresolved, fmt.Errorf("%w: %q", geocode.ErrNotFound, address)
	}
	return geo.Coordinate{Lat: response.Results[0].Geometry.Lat, Lon: response.Results[0].Geometry.Lon}, nil
}

func (o *OpenCage) Reverse(ctx context.Context, coords geo.Coordinate) (geocode.Address, error) {
	response, err := o.query(ctx, coords.String())
	if err != nil {
		return geocode.Address{}, err
	}
	if response.TotalResults != 1 || len(response.Results) != 1 {
		return geocode.Address{}, fmt.Errorf("%w: unambigous amount of results returned for coordinates: %d",
			geocode.ErrNotFound, response.TotalResults)
	}

	result := response.Results[0].Components
	address := geocode.Address{
		Coordinate:  geo.Coordinate{Lat: response.Results[0].Geometry.Lat, Lon: response.Results[0].Geometry.Lon},
		DisplayName: response.Results[0].DisplayName,
		Country:     result.Country,
		State:       result.State,
		Postcode:    result.Postcode,
		City:        result.NomalizedCity,
		Suburb:      result.Suburb,
		Street:      result.Road,
		HouseNumber: result.HouseNumber,
	}
	if result.Town != "" {
		address.City = result.Town
	}
	if result.Village != "" {
		address.City = result.Village
	}
	if address.City == "" {
		address.City = result.City
	}

	return address, nil
}

// query sends q to the OpenCage API, which takes both addresses and "lat,lon" pairs.
func (o *OpenCage) query(ctx context.Context, q string) (Response, error) {
	var response Response

	query := url.Values{}
	query.Set("key", o.apikey)
	query.Set("q", q)
	query.Set("limit", "1")
	query.Set("no_annotations", "1")
	query.Set("no_record", "1")
	query.Set("language", o.lang.String())

	code, err := o.http.GetWithTimeout(ctx, APIEndpoint, &response, query, nil, APITimeout)
	if code != 0 && code != 200 {
		return response, fmt.Errorf("%w: OpenCage API returned status %d", geocode.ErrNotFound, code)
	}
	if err != nil {
		return response, fmt.Errorf("failed to retrieve address details from OpenCage API: %w", err)
	}
	return response, nil
}
