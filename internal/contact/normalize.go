// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package contact

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/logger"
)

// DefaultConcurrency is the number of address lookups a batch runs in parallel by default.
const DefaultConcurrency = 8

// Reason explains why a raw record did not make it into the displayable collection.
type Reason string

const (
	ReasonNoAddress          Reason = "no address"
	ReasonAddressNotFound    Reason = "address not found"
	ReasonInvalidCoordinates Reason = "invalid coordinates"
	ReasonDuplicate          Reason = "duplicate"
)

// Resolver looks up the coordinate of an address. It reports false for every kind of failure.
type Resolver interface {
	Resolve(ctx context.Context, address string) (geo.Coordinate, bool)
}

type Dropped struct {
	Record RawRecord `json:"record"`
	Reason Reason    `json:"reason"`
}

// Result is the outcome of one normalization batch. Contacts holds only displayable contacts in
// input order, Dropped lists every record that was left out.
type Result struct {
	Contacts []Contact `json:"contacts"`
	Dropped  []Dropped `json:"dropped"`
}

type Normalizer struct {
	resolver Resolver
	logger   *logger.Logger
	limit    int
}

// NewNormalizer returns a Normalizer that resolves at most limit addresses at the same time. A
// limit of 0 or less lets every lookup of a batch run at once.
func NewNormalizer(resolver Resolver, log *logger.Logger, limit int) *Normalizer {
	return &Normalizer{resolver: resolver, logger: log, limit: limit}
}

// Normalize converts a batch of raw records into contacts. Records carrying a displayable
// coordinate are taken as they are, all others are geocoded by address. The lookups run
// concurrently and Normalize returns once all of them finished. Records without a usable
// position and later duplicates are dropped.
func (n *Normalizer) Normalize(ctx context.Context, records []RawRecord) Result {
	coords := make([]geo.Coordinate, len(records))
	reasons := make([]Reason, len(records))

	var group errgroup.Group
	if n.limit > 0 {
		group.SetLimit(n.limit)
	}
	for i, record := range records {
		if coord := record.Coordinate(); coord.Displayable() {
			coords[i] = coord
			continue
		}
		if strings.TrimSpace(record.Address) == "" {
			coords[i] = geo.Unresolved
			reasons[i] = ReasonNoAddress
			if record.hasCoordinates() {
				reasons[i] = ReasonInvalidCoordinates
			}
			continue
		}
		group.Go(func() error {
			coord, ok := n.resolver.Resolve(ctx, record.Address)
			if !ok {
				coord = geo.Unresolved
				reasons[i] = ReasonAddressNotFound
			}
			coords[i] = coord
			return nil
		})
	}
	_ = group.Wait()

	result := Result{Contacts: make([]Contact, 0, len(records))}
	seen := make(map[string]struct{}, len(records))
	for i, record := range records {
		reason := reasons[i]
		if reason == "" && !coords[i].Displayable() {
			reason = ReasonAddressNotFound
		}
		if reason == "" {
			key := IdentityKey(record.Name, record.Address)
			if _, ok := seen[key]; ok {
				reason = ReasonDuplicate
			}
			seen[key] = struct{}{}
		}
		if reason != "" {
			result.Dropped = append(result.Dropped, Dropped{Record: record, Reason: reason})
			n.logger.Warn("contact dropped from map", slog.String("name", record.Name),
				slog.String("address", record.Address), slog.Int("line", record.Line),
				slog.String("reason", string(reason)))
			continue
		}
		result.Contacts = append(result.Contacts, record.toContact(coords[i]))
	}

	return result
}
