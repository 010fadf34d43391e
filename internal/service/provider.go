// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/wneessen/friendsmap/internal/config"
	"github.com/wneessen/friendsmap/internal/geocode"
	geocodeearth "github.com/wneessen/friendsmap/internal/geocode/provider/geocode-earth"
	"github.com/wneessen/friendsmap/internal/geocode/provider/opencage"
	nominatim "github.com/wneessen/friendsmap/internal/geocode/provider/osm-nominatim"
	"github.com/wneessen/friendsmap/internal/http"
)

func selectGeocodeProvider(conf *config.Config, client *http.Client, lang language.Tag) (geocode.Geocoder, error) {
	switch strings.ToLower(conf.GeoCoder.Provider) {
	case "nominatim", "osm-nominatim":
		return nominatim.New(client, lang), nil
	case "opencage":
		if conf.GeoCoder.APIKey == "" {
			return nil, fmt.Errorf("opencage geocoder requires an API key")
		}
		return opencage.New(client, lang, conf.GeoCoder.APIKey), nil
	case "geocode-earth":
		if conf.GeoCoder.APIKey == "" {
			return nil, fmt.Errorf("geocode-earth geocoder requires an API key")
		}
		return geocodeearth.New(client, lang, conf.GeoCoder.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported geocoder type: %s", conf.GeoCoder.Provider)
	}
}
