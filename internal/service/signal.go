// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals refreshes the feed on SIGHUP and logs the state of the contact store on SIGUSR1.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				s.logger.Info("feed refresh requested")
				s.refreshFeed(ctx)
			case syscall.SIGUSR1:
				snap := s.store.Snapshot()
				s.logger.Info("current contact store", slog.Uint64("generation", snap.Generation),
					slog.Int("contacts", len(snap.Contacts)), slog.Int("dropped", len(snap.Dropped)),
					slog.Time("refreshed_at", snap.RefreshedAt), slog.Int("cached_addresses", s.geocoder.Len()))
			}
		}
	}
}
