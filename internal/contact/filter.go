// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package contact

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filter returns the contacts whose name or address contains query, ignoring case. The input
// order is kept. An empty or blank query returns contacts as is.
func Filter(contacts []Contact, query string) []Contact {
	lower := cases.Lower(language.Und)
	query = lower.String(strings.TrimSpace(query))
	if query == "" {
		return contacts
	}

	matches := make([]Contact, 0)
	for _, c := range contacts {
		if strings.Contains(lower.String(c.Name), query) || strings.Contains(lower.String(c.Address), query) {
			matches = append(matches, c)
		}
	}
	return matches
}
