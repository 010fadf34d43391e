// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/friendsmap/internal/contact"
	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/vartype"
	"github.com/wneessen/friendsmap/internal/writeback"
)

var (
	ErrNameRequired       = errors.New("name is required")
	ErrLocationNotFound   = errors.New("location could not be resolved")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// NewFriend is a contact submitted through the add-friend form. Lat and Lng are optional, a
// submission without them is placed by its address.
type NewFriend struct {
	Name       string             `json:"name"`
	Origin     string             `json:"from"`
	Address    string             `json:"address"`
	Profession string             `json:"profession"`
	Office     string             `json:"office"`
	Birthday   string             `json:"birthday"`
	Phone      string             `json:"phone"`
	Email      string             `json:"email"`
	Status     string             `json:"status"`
	Lat        vartype.VarFloat64 `json:"lat"`
	Lng        vartype.VarFloat64 `json:"lng"`
}

// AddFriend places the submitted friend on the map and forwards it to the write-back endpoint.
// The friend is part of the store once AddFriend returns, the returned task reports the outcome
// of forwarding.
func (s *Service) AddFriend(ctx context.Context, friend NewFriend) (contact.Contact, *writeback.Task, error) {
	entry := contact.Contact{
		ID:         contact.NewID(time.Now()),
		Name:       strings.TrimSpace(friend.Name),
		Origin:     strings.TrimSpace(friend.Origin),
		Address:    strings.TrimSpace(friend.Address),
		Profession: strings.TrimSpace(friend.Profession),
		Office:     strings.TrimSpace(friend.Office),
		Birthday:   strings.TrimSpace(friend.Birthday),
		Phone:      strings.TrimSpace(friend.Phone),
		Email:      strings.TrimSpace(friend.Email),
		Status:     contact.ParseStatus(friend.Status),
	}
	if entry.Name == "" {
		return contact.Contact{}, nil, ErrNameRequired
	}

	coords, err := s.locate(ctx, &entry, friend.Lat, friend.Lng)
	if err != nil {
		return contact.Contact{}, nil, err
	}
	entry.Lat, entry.Lng = coords.Lat, coords.Lon

	s.store.Add(entry)
	s.logger.Info("friend added", slog.String("id", entry.ID), slog.String("name", entry.Name),
		slog.String("coordinates", coords.String()))
	return entry, s.forwarder.Forward(ctx, entry), nil
}

// locate takes the submitted coordinates if present and fills in a missing address from them.
// Without coordinates the address is geocoded.
func (s *Service) locate(ctx context.Context, entry *contact.Contact, lat, lng vartype.VarFloat64) (geo.Coordinate, error) {
	if lat.IsSet() || lng.IsSet() {
		coords := geo.Coordinate{Lat: lat.Value(), Lon: lng.Value()}
		if !lat.IsSet() || !lng.IsSet() || !coords.Displayable() {
			return geo.Unresolved, ErrInvalidCoordinates
		}
		if entry.Address == "" {
			if addr, ok := s.resolver.Reverse(ctx, coords); ok {
				entry.Address = addr.DisplayName
			}
		}
		return coords, nil
	}

	coords, ok := s.resolver.Resolve(ctx, entry.Address)
	if !ok {
		return geo.Unresolved, ErrLocationNotFound
	}
	return coords, nil
}
