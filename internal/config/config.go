// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "FRIENDSMAP"

	MaxZoom = 20
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`
	Listen   string     `fig:"listen" default:"127.0.0.1:8080"`

	Feed struct {
		// Published spreadsheet in CSV format, the first row names the columns
		URL     string        `fig:"url"`
		Refresh time.Duration `fig:"refresh" default:"15m"`
		Timeout time.Duration `fig:"timeout" default:"30s"`
		MaxSize int64         `fig:"max_size" default:"10485760"`
	} `fig:"feed"`

	GeoCoder struct {
		// Allowed values: nominatim, opencage, geocode-earth
		Provider     string        `fig:"provider" default:"nominatim"`
		APIKey       string        `fig:"apikey"`
		Timeout      time.Duration `fig:"timeout" default:"10s"`
		Concurrency  int           `fig:"concurrency" default:"8"`
		CacheHitTTL  time.Duration `fig:"cache_hit_ttl" default:"24h"`
		CacheMissTTL time.Duration `fig:"cache_miss_ttl" default:"1h"`
		CachePrune   time.Duration `fig:"cache_prune" default:"10m"`
		CacheFile    string        `fig:"cache_file"`
	} `fig:"geocoder"`

	WriteBack struct {
		Endpoint string        `fig:"endpoint"`
		Timeout  time.Duration `fig:"timeout" default:"10s"`
	} `fig:"writeback"`

	Access struct {
		Key string `fig:"key"`
	} `fig:"access"`

	Viewport struct {
		FallbackLat   float64 `fig:"fallback_lat" default:"21"`
		FallbackLon   float64 `fig:"fallback_lon" default:"78"`
		FallbackZoom  int     `fig:"fallback_zoom" default:"5"`
		PaddingRatio  float64 `fig:"padding_ratio" default:"0.1"`
		MinExtent     float64 `fig:"min_extent" default:"0.01"`
		PaddingPixels int     `fig:"padding_pixels" default:"50"`
	} `fig:"viewport"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Feed.URL != "" {
		if err := checkHTTPURL(c.Feed.URL); err != nil {
			return fmt.Errorf("invalid feed url: %w", err)
		}
	}
	if c.Feed.Refresh < time.Second {
		return fmt.Errorf("invalid feed refresh interval: %s", c.Feed.Refresh)
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("invalid feed timeout: %s", c.Feed.Timeout)
	}
	if c.Feed.MaxSize < 1 {
		return fmt.Errorf("invalid feed max size: %d", c.Feed.MaxSize)
	}
	c.GeoCoder.Provider = strings.ToLower(c.GeoCoder.Provider)
	if c.GeoCoder.Concurrency < 0 {
		return fmt.Errorf("invalid geocoder concurrency: %d", c.GeoCoder.Concurrency)
	}
	if c.GeoCoder.Timeout <= 0 {
		return fmt.Errorf("invalid geocoder timeout: %s", c.GeoCoder.Timeout)
	}
	if c.WriteBack.Endpoint != "" {
		if err := checkHTTPURL(c.WriteBack.Endpoint); err != nil {
			return fmt.Errorf("invalid write-back endpoint: %w", err)
		}
	}
	if c.Viewport.FallbackLat < -90 || c.Viewport.FallbackLat > 90 ||
		c.Viewport.FallbackLon < -180 || c.Viewport.FallbackLon > 180 {
		return fmt.Errorf("invalid fallback center: %f,%f", c.Viewport.FallbackLat, c.Viewport.FallbackLon)
	}
	if c.Viewport.FallbackZoom < 0 || c.Viewport.FallbackZoom > MaxZoom {
		return fmt.Errorf("invalid fallback zoom: %d", c.Viewport.FallbackZoom)
	}
	if c.Viewport.PaddingRatio < 0 {
		return fmt.Errorf("invalid viewport padding ratio: %f", c.Viewport.PaddingRatio)
	}
	if c.Viewport.MinExtent <= 0 {
		return fmt.Errorf("invalid viewport minimum extent: %f", c.Viewport.MinExtent)
	}

	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
