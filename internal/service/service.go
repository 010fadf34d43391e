// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/text/language"

	"github.com/wneessen/friendsmap/internal/config"
	"github.com/wneessen/friendsmap/internal/contact"
	"github.com/wneessen/friendsmap/internal/feed"
	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/geocode"
	"github.com/wneessen/friendsmap/internal/geocode/sqlitestore"
	"github.com/wneessen/friendsmap/internal/http"
	"github.com/wneessen/friendsmap/internal/job"
	"github.com/wneessen/friendsmap/internal/logger"
	"github.com/wneessen/friendsmap/internal/store"
	"github.com/wneessen/friendsmap/internal/viewport"
	"github.com/wneessen/friendsmap/internal/writeback"
)

type Service struct {
	config     *config.Config
	logger     *logger.Logger
	scheduler  gocron.Scheduler
	fetcher    *feed.Fetcher
	geocoder   *geocode.CachedGeocoder
	cacheStore *sqlitestore.Store
	resolver   *geocode.Resolver
	normalizer *contact.Normalizer
	store      *store.Store
	forwarder  *writeback.Forwarder

	SignalSrc signalSource
}

func New(conf *config.Config, log *logger.Logger) (*Service, error) {
	return newService(conf, log, http.New(log))
}

func newService(conf *config.Config, log *logger.Logger, client *http.Client) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		scheduler: scheduler,
		fetcher:   feed.New(client, log, conf.Feed.URL, conf.Feed.MaxSize, conf.Feed.Timeout),
		forwarder: writeback.New(client, log, conf.WriteBack.Endpoint, conf.WriteBack.Timeout),
		store:     store.New(viewport.New(viewportOptions(conf))),
		SignalSrc: stdLibSignalSource{},
	}

	coder, err := selectGeocodeProvider(conf, client, language.Make(conf.Locale))
	if err != nil {
		return nil, err
	}
	service.geocoder = geocode.NewCachedGeocoder(coder, conf.GeoCoder.CacheHitTTL, conf.GeoCoder.CacheMissTTL).
		WithTimeout(conf.GeoCoder.Timeout)
	if conf.GeoCoder.CacheFile != "" {
		cacheStore, err := sqlitestore.Open(conf.GeoCoder.CacheFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open geocode cache: %w", err)
		}
		service.cacheStore = cacheStore
		service.geocoder.WithStore(cacheStore, log)
	}
	service.resolver = geocode.NewResolver(service.geocoder, log, conf.GeoCoder.Timeout)
	service.normalizer = contact.NewNormalizer(service.resolver, log, conf.GeoCoder.Concurrency)

	return service, nil
}

// Run refreshes the feed right away and then periodically until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.config.Feed.URL == "" {
		s.logger.Warn("no feed URL configured, only locally added friends are shown")
	} else {
		if err := s.createScheduledJob(ctx, s.config.Feed.Refresh, s.refreshFeed, "feed_refresh_job"); err != nil {
			return err
		}
	}
	s.scheduler.Start()
	go job.New("geocode_cache_prune_job", s.config.GeoCoder.CachePrune, s.pruneCache, s.logger).Start(ctx)

	// Wait for the context to cancel
	<-ctx.Done()
	s.forwarder.Wait()
	return s.scheduler.Shutdown()
}

// Close releases the persistent geocode cache.
func (s *Service) Close() error {
	if s.cacheStore == nil {
		return nil
	}
	return s.cacheStore.Close()
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// Refresh loads the feed once as a new batch. A batch that finishes after a newer one is
// discarded.
func (s *Service) Refresh(ctx context.Context) error {
	gen := s.store.Begin()
	records, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	result := s.normalizer.Normalize(ctx, records)
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("feed refresh interrupted: %w", err)
	}
	if !s.store.Apply(gen, result) {
		s.logger.Debug("discarding superseded feed batch", slog.Uint64("generation", gen))
		return nil
	}
	s.logger.Info("feed refreshed", slog.Int("records", len(records)),
		slog.Int("contacts", len(result.Contacts)), slog.Int("dropped", len(result.Dropped)))
	return nil
}

func (s *Service) refreshFeed(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("failed to refresh feed", logger.Err(err))
	}
}

func (s *Service) pruneCache(ctx context.Context) {
	removed, err := s.geocoder.Prune(ctx)
	if err != nil {
		s.logger.Error("failed to prune geocode cache", logger.Err(err))
	}
	if removed > 0 {
		s.logger.Debug("pruned geocode cache", slog.Int("removed", removed))
	}
}

// View returns the contacts matching query together with the map viewport framing them.
func (s *Service) View(query string) store.View {
	return s.store.View(query)
}

// Geocode resolves a free-text address.
func (s *Service) Geocode(ctx context.Context, address string) (geo.Coordinate, bool) {
	return s.resolver.Resolve(ctx, address)
}

// Reverse looks up the address of a map position.
func (s *Service) Reverse(ctx context.Context, coords geo.Coordinate) (geocode.Address, bool) {
	return s.resolver.Reverse(ctx, coords)
}

func viewportOptions(conf *config.Config) viewport.Options {
	return viewport.Options{
		FallbackCenter: geo.Coordinate{Lat: conf.Viewport.FallbackLat, Lon: conf.Viewport.FallbackLon},
		FallbackZoom:   conf.Viewport.FallbackZoom,
		PaddingRatio:   conf.Viewport.PaddingRatio,
		MinExtent:      conf.Viewport.MinExtent,
		PaddingPixels:  conf.Viewport.PaddingPixels,
	}
}
