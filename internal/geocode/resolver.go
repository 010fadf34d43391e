// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/logger"
)

// DefaultTimeout bounds a single lookup when no timeout was configured.
const DefaultTimeout = time.Second * 10

// Resolver is the address lookup used by the contact pipeline. It never fails: every problem,
// from an unknown address to an unreachable service, ends up as "not found". Callers needing
// retries or error classification should use the Geocoder directly.
type Resolver struct {
	coder   Geocoder
	logger  *logger.Logger
	timeout time.Duration
}

// NewResolver returns a Resolver around coder. A non-positive timeout selects DefaultTimeout.
func NewResolver(coder Geocoder, log *logger.Logger, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{coder: coder, logger: log, timeout: timeout}
}

// Resolve looks up the coordinate of address. The boolean is false when no usable coordinate
// could be obtained.
func (r *Resolver) Resolve(ctx context.Context, address string) (geo.Coordinate, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return geo.Unresolved, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	coords, err := r.coder.Search(ctx, address)
	switch {
	case errors.Is(err, ErrNotFound):
		r.logger.Debug("address not found", slog.String("address", address),
			slog.String("geocoder", r.coder.Name()))
		return geo.Unresolved, false
	case err != nil:
		r.logger.Warn("address lookup failed", slog.String("address", address),
			slog.String("geocoder", r.coder.Name()), logger.Err(err))
		return geo.Unresolved, false
	case !coords.Displayable():
		r.logger.Warn("geocoder returned unusable coordinates", slog.String("address", address),
			slog.String("coordinates", coords.String()))
		return geo.Unresolved, false
	}

	return coords, true
}

// Reverse looks up an address for coords if the underlying geocoder supports it.
func (r *Resolver) Reverse(ctx context.Context, coords geo.Coordinate) (Address, bool) {
	reverser, ok := r.coder.(ReverseGeocoder)
	if !ok || !coords.Displayable() {
		return Address{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addr, err := reverser.Reverse(ctx, coords)
	if err != nil {
		r.logger.Debug("reverse lookup failed", slog.String("coordinates", coords.String()),
			logger.Err(err))
		return Address{}, false
	}
	return addr, true
}
