// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the friendsmap service.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/wneessen/friendsmap/internal/access"
	"github.com/wneessen/friendsmap/internal/config"
	"github.com/wneessen/friendsmap/internal/i18n"
	"github.com/wneessen/friendsmap/internal/logger"
	"github.com/wneessen/friendsmap/internal/presenter"
	"github.com/wneessen/friendsmap/internal/server"
	"github.com/wneessen/friendsmap/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.New(slog.LevelError)

	confPath := flag.String("config", "", "path to the config file")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	list := flag.Bool("list", false, "load the feed once, print the friends and exit")
	query := flag.String("q", "", "only list friends whose name or address contains the query")
	flag.Parse()

	// Environment from .env files is read before the config, so that it can override defaults
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("failed to load env file", logger.Err(err))
		os.Exit(1)
	}

	conf, err := loadConfig(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	log = logger.New(conf.LogLevel)

	catalog, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		os.Exit(1)
	}

	serv, err := service.New(conf, log)
	if err != nil {
		log.Error("failed to initialize friendsmap service", logger.Err(err))
		os.Exit(1)
	}
	defer func() {
		if err := serv.Close(); err != nil {
			log.Error("failed to close friendsmap service", logger.Err(err))
		}
	}()

	if *list {
		if err = listFriends(ctx, serv, catalog, *query); err != nil {
			log.Error("failed to list friends", logger.Err(err))
			os.Exit(1)
		}
		return
	}

	gate, err := access.New(conf.Access.Key, catalog, log)
	if err != nil {
		log.Error("failed to initialize access gate", logger.Err(err))
		os.Exit(1)
	}
	if !gate.Enabled() {
		log.Warn("no access key configured, the friends map is public")
	}
	srv, err := server.New(conf.Listen, serv, gate, catalog, log)
	if err != nil {
		log.Error("failed to initialize HTTP server", logger.Err(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	serv.SignalSrc.Notify(sigChan, syscall.SIGHUP, syscall.SIGUSR1)
	go func() {
		defer serv.SignalSrc.Stop(sigChan)
		serv.HandleSignals(ctx, sigChan)
	}()

	log.Info("starting friendsmap service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return serv.Run(groupCtx) })
	group.Go(func() error { return srv.Start(groupCtx) })
	if err = group.Wait(); err != nil {
		log.Error("friendsmap service failed", logger.Err(err))
	}
	log.Info("shutting down friendsmap service")
}

func listFriends(ctx context.Context, serv *service.Service, catalog *i18n.Catalog, query string) error {
	if err := serv.Refresh(ctx); err != nil {
		return err
	}
	p, err := presenter.New(catalog.Tag(), catalog.Default())
	if err != nil {
		return err
	}
	return p.WriteListing(os.Stdout, serv.View(query))
}

func loadConfig(confPath string) (*config.Config, error) {
	if confPath != "" {
		return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
	}
	// Check if we have a config file in the default location
	if path, file := findConfigFile(); path != "" && file != "" {
		return config.NewFromFile(path, file)
	}
	return config.New()
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "friendsmap", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
