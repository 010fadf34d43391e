// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"

	"github.com/wneessen/friendsmap/internal/contact"
)

const (
	maxNameWidth    = 24
	maxAddressWidth = 40
	coordPrecision  = 5
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"table":         p.table,
		"since":         p.Refreshed,
		"localizedTime": p.localizedTime,
		"coord":         func(val float64) string { return floatFormat(val, coordPrecision) },
		"friends":       p.friends,
		"reason":        p.reason,
	}
}

func (p *Presenter) localizedTime(val time.Time) string {
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

// table aligns the contacts in columns by display width, so wide characters do not break the
// layout. Long names and addresses are truncated.
func (p *Presenter) table(contacts []contact.Contact) string {
	header := []string{"NAME", "ADDRESS", "STATUS", "LAT", "LNG"}
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{
			runewidth.Truncate(c.Name, maxNameWidth, "…"),
			runewidth.Truncate(c.Address, maxAddressWidth, "…"),
			string(c.Status),
			floatFormat(c.Lat, coordPrecision),
			floatFormat(c.Lng, coordPrecision),
		})
	}

	widths := make([]int, len(header))
	for i, col := range header {
		widths[i] = runewidth.StringWidth(col)
	}
	for _, row := range rows {
		for i, col := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(col))
		}
	}

	buf := strings.Builder{}
	writeRow := func(row []string) {
		for i, col := range row {
			if i == len(row)-1 {
				buf.WriteString(col)
				break
			}
			buf.WriteString(runewidth.FillRight(col, widths[i]+2))
		}
		buf.WriteString("\n")
	}
	writeRow(header)
	for _, row := range rows {
		writeRow(row)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// floatFormat rounds val to precision decimals.
func floatFormat(val float64, precision int) string {
	return strconv.FormatFloat(val, 'f', precision, 64)
}
