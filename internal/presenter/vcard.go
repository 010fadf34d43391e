// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/wneessen/friendsmap/internal/contact"
)

// WriteVCards encodes the contacts as vCard 4.0 cards.
func WriteVCards(w io.Writer, contacts []contact.Contact) error {
	encoder := vcard.NewEncoder(w)
	for _, c := range contacts {
		if err := encoder.Encode(Card(c)); err != nil {
			return fmt.Errorf("failed to encode vCard for %q: %w", c.Name, err)
		}
	}
	return nil
}

// Card converts a contact into a vCard. The present address goes into the home address, the
// office address into the work address.
func Card(c contact.Contact) vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldFormattedName, c.Name)
	card.SetName(splitName(c.Name))
	if c.ID != "" {
		card.SetValue(vcard.FieldUID, c.ID)
	}
	if c.Address != "" {
		card.AddAddress(&vcard.Address{
			Field:         &vcard.Field{Params: vcard.Params{vcard.ParamType: {vcard.TypeHome}}},
			StreetAddress: c.Address,
		})
	}
	if c.Office != "" {
		card.AddAddress(&vcard.Address{
			Field:         &vcard.Field{Params: vcard.Params{vcard.ParamType: {vcard.TypeWork}}},
			StreetAddress: c.Office,
		})
	}
	if c.Phone != "" {
		card.SetValue(vcard.FieldTelephone, c.Phone)
	}
	if c.Email != "" {
		card.SetValue(vcard.FieldEmail, c.Email)
	}
	if c.Profession != "" {
		card.SetValue(vcard.FieldTitle, c.Profession)
	}
	if c.Birthday != "" {
		card.SetValue(vcard.FieldBirthday, c.Birthday)
	}
	if c.Origin != "" {
		card.SetValue(vcard.FieldNote, "From "+c.Origin)
	}
	if c.Displayable() {
		card.SetValue(vcard.FieldGeolocation, "geo:"+strconv.FormatFloat(c.Lat, 'f', -1, 64)+","+
			strconv.FormatFloat(c.Lng, 'f', -1, 64))
	}
	vcard.ToV4(card)
	return card
}

// splitName treats the last word as family name.
func splitName(name string) *vcard.Name {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return &vcard.Name{GivenName: name}
	}
	return &vcard.Name{GivenName: strings.TrimSpace(name[:idx]), FamilyName: name[idx+1:]}
}
