// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package presenter renders the contact view for terminals and address books.
package presenter

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"
	"golang.org/x/text/language"

	"github.com/wneessen/friendsmap/internal/contact"
	"github.com/wneessen/friendsmap/internal/store"
)

const listingTemplate = `{{ table .Contacts }}
{{ friends .Shown }} ({{ .Total }}){{ with since .RefreshedAt }}, {{ . }}{{ end }}
{{ with .Viewport }}{{ if .Fallback }}fallback {{ end }}center {{ coord .Center.Lat }},{{ coord .Center.Lon }} zoom {{ .Zoom }}
{{- with .Bounds }} bounds {{ coord .South }},{{ coord .West }} {{ coord .North }},{{ coord .East }}{{ end }}{{ end }}
{{ if .Dropped }}{{ len .Dropped }} dropped:
{{ range .Dropped }}  line {{ .Record.Line }}: {{ .Record.Name }} ({{ .Record.Address }}): {{ reason .Reason }}
{{ end }}{{ end }}`

type Presenter struct {
	humanizer *humanize.Humanizer
	localizer *spreak.Localizer
	listing   *template.Template
}

// New returns a Presenter that formats times for lang and translates with loc.
func New(lang language.Tag, loc *spreak.Localizer) (*Presenter, error) {
	collection, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}
	p := &Presenter{
		humanizer: collection.CreateHumanizer(lang),
		localizer: loc,
	}
	tpl, err := template.New("listing").Funcs(p.templateFuncMap()).Parse(listingTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing template: %w", err)
	}
	p.listing = tpl
	return p, nil
}

// Refreshed describes how long ago t was, relative to now. A zero time yields an empty string.
func (p *Presenter) Refreshed(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return p.humanizer.NaturalTime(t)
}

// WriteListing renders the view as an aligned table followed by the viewport and the contacts that
// could not be placed on the map.
func (p *Presenter) WriteListing(w io.Writer, view store.View) error {
	if err := p.listing.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render listing: %w", err)
	}
	return nil
}

func (p *Presenter) friends(n int) string {
	return p.localizer.NGetf("%d friend", "%d friends", n, n)
}

func (p *Presenter) reason(r contact.Reason) string {
	return p.localizer.Get(string(r))
}
