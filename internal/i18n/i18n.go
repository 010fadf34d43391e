// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package i18n

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/Xuanwo/go-locale"
	"github.com/vorlif/spreak"
	"golang.org/x/text/language"
)

//go:embed locale/*
var locales embed.FS

// Supported lists the languages that ship with a translation, the source language included.
var Supported = []language.Tag{language.English, language.German}

// Catalog holds all translations and the default language of the service.
type Catalog struct {
	bundle *spreak.Bundle
	tag    language.Tag
}

func New(loc string) (*Catalog, error) {
	tag := language.Make(loc)
	var err error
	if loc == "" {
		tag, err = locale.Detect()
		if err != nil {
			tag = language.English // Unable to detect locale, fallback to English
		}
	}

	if match, ok := supported(tag); ok {
		tag = match
	}

	localeFS, err := fs.Sub(locales, "locale")
	if err != nil {
		return nil, fmt.Errorf("failed to load locales: %w", err)
	}

	opts := []spreak.BundleOption{
		spreak.WithSourceLanguage(language.English),
		spreak.WithFallbackLanguage(language.English),
		spreak.WithDomainFs("", localeFS),
		spreak.WithLanguage(tag),
	}
	for _, lang := range Supported {
		opts = append(opts, spreak.WithLanguage(lang))
	}
	bundle, err := spreak.NewBundle(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create i18n bundle: %w", err)
	}
	return &Catalog{bundle: bundle, tag: tag}, nil
}

// Tag returns the default language of the catalog.
func (c *Catalog) Tag() language.Tag {
	return c.tag
}

// Default returns a localizer for the default language.
func (c *Catalog) Default() *spreak.Localizer {
	return spreak.NewLocalizer(c.bundle, c.tag)
}

// ForRequest returns a localizer for the supported language that fits an Accept-Language header
// best.
func (c *Catalog) ForRequest(acceptLanguage string) *spreak.Localizer {
	return spreak.NewLocalizer(c.bundle, c.Match(acceptLanguage))
}

// Match returns the supported language that fits an Accept-Language header best.
func (c *Catalog) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return c.tag
	}
	if tag, ok := supported(tags...); ok {
		return tag
	}
	return c.tag
}

// supported maps the preferred tags to the base language of the best supported match.
func supported(tags ...language.Tag) (language.Tag, bool) {
	if len(tags) == 0 {
		return language.Und, false
	}
	tag, _, confidence := language.NewMatcher(Supported).Match(tags...)
	if confidence == language.No {
		return language.Und, false
	}
	base, _ := tag.Base()
	return language.Make(base.String()), true
}
