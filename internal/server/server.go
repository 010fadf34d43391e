// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package server exposes the friends map as a JSON API.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vorlif/spreak/localize"
	"golang.org/x/text/language"

	"github.com/wneessen/friendsmap/internal/access"
	"github.com/wneessen/friendsmap/internal/contact"
	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/geocode"
	"github.com/wneessen/friendsmap/internal/i18n"
	"github.com/wneessen/friendsmap/internal/logger"
	"github.com/wneessen/friendsmap/internal/presenter"
	"github.com/wneessen/friendsmap/internal/service"
	"github.com/wneessen/friendsmap/internal/store"
	"github.com/wneessen/friendsmap/internal/writeback"
)

const (
	ReadTimeout     = time.Second * 10
	WriteTimeout    = time.Second * 60
	IdleTimeout     = time.Second * 120
	ShutdownTimeout = time.Second * 10

	maxBodySize = 64 << 10
)

const (
	msgBadRequest       localize.MsgID = "invalid request body"
	msgNameRequired     localize.MsgID = "name is required"
	msgLocationNotFound localize.MsgID = "location could not be resolved"
	msgInvalidCoords    localize.MsgID = "invalid coordinates"
	msgAddressNotFound  localize.MsgID = "address not found"
	msgQueryRequired    localize.MsgID = "query is required"
)

// Backend is the part of the service the API serves.
type Backend interface {
	View(query string) store.View
	AddFriend(ctx context.Context, friend service.NewFriend) (contact.Contact, *writeback.Task, error)
	Geocode(ctx context.Context, address string) (geo.Coordinate, bool)
	Reverse(ctx context.Context, coords geo.Coordinate) (geocode.Address, bool)
}

type Server struct {
	addr       string
	backend    Backend
	gate       *access.Gate
	catalog    *i18n.Catalog
	logger     *logger.Logger
	presenters map[language.Tag]*presenter.Presenter
}

func New(addr string, backend Backend, gate *access.Gate, catalog *i18n.Catalog, log *logger.Logger) (*Server, error) {
	server := &Server{
		addr:       addr,
		backend:    backend,
		gate:       gate,
		catalog:    catalog,
		logger:     log,
		presenters: make(map[language.Tag]*presenter.Presenter),
	}
	for _, tag := range append([]language.Tag{catalog.Tag()}, i18n.Supported...) {
		if _, ok := server.presenters[tag]; ok {
			continue
		}
		p, err := presenter.New(tag, catalog.ForRequest(tag.String()))
		if err != nil {
			return nil, fmt.Errorf("failed to create presenter for %s: %w", tag, err)
		}
		server.presenters[tag] = p
	}
	return server, nil
}

// Handler returns the API routes. Everything but the health check and the unlock endpoint is
// guarded by the access gate.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/friends", s.handleListFriends)
	api.HandleFunc("POST /api/friends", s.handleAddFriend)
	api.HandleFunc("GET /api/friends.vcf", s.handleExportFriends)
	api.HandleFunc("GET /api/geocode", s.handleGeocode)
	api.HandleFunc("GET /api/reverse", s.handleReverse)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/unlock", s.gate.Unlock)
	mux.Handle("/api/", s.gate.Middleware(api))
	return s.logRequests(mux)
}

// Start serves the API until ctx is cancelled and shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadTimeout:       ReadTimeout,
		ReadHeaderTimeout: ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	serverError := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", slog.String("listen", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return nil
	case err := <-serverError:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
}

type friendsResponse struct {
	store.View
	Refreshed string `json:"refreshed,omitempty"`
}

type addFriendResponse struct {
	Contact   contact.Contact `json:"contact"`
	WriteBack writeBackStatus `json:"writeback"`
}

type writeBackStatus struct {
	ID      string            `json:"id"`
	Outcome writeback.Outcome `json:"outcome"`
}

type addressResponse struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
	Street      string  `json:"street,omitempty"`
	HouseNumber string  `json:"house_number,omitempty"`
	Postcode    string  `json:"postcode,omitempty"`
	City        string  `json:"city,omitempty"`
	Suburb      string  `json:"suburb,omitempty"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
}

type message struct {
	Message string `json:"message"`
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	view := s.backend.View(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, friendsResponse{
		View:      view,
		Refreshed: s.presenterFor(r).Refreshed(view.RefreshedAt),
	})
}

func (s *Server) handleAddFriend(w http.ResponseWriter, r *http.Request) {
	var friend service.NewFriend
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&friend); err != nil {
		s.writeMessage(w, r, http.StatusBadRequest, msgBadRequest)
		return
	}

	entry, task, err := s.backend.AddFriend(r.Context(), friend)
	switch {
	case errors.Is(err, service.ErrNameRequired):
		s.writeMessage(w, r, http.StatusBadRequest, msgNameRequired)
		return
	case errors.Is(err, service.ErrInvalidCoordinates):
		s.writeMessage(w, r, http.StatusBadRequest, msgInvalidCoords)
		return
	case errors.Is(err, service.ErrLocationNotFound):
		s.writeMessage(w, r, http.StatusUnprocessableEntity, msgLocationNotFound)
		return
	case err != nil:
		s.logger.Error("failed to add friend", logger.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, addFriendResponse{
		Contact:   entry,
		WriteBack: writeBackStatus{ID: task.ID(), Outcome: task.Outcome()},
	})
}

func (s *Server) handleExportFriends(w http.ResponseWriter, r *http.Request) {
	view := s.backend.View(r.URL.Query().Get("q"))
	buf := bytes.NewBuffer(nil)
	if err := presenter.WriteVCards(buf, view.Contacts); err != nil {
		s.logger.Error("failed to export friends", logger.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	hash := sha256.Sum256(buf.Bytes())
	etag := `"` + hex.EncodeToString(hash[:]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="friends.vcf"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeMessage(w, r, http.StatusBadRequest, msgQueryRequired)
		return
	}
	coords, ok := s.backend.Geocode(r.Context(), query)
	if !ok {
		s.writeMessage(w, r, http.StatusNotFound, msgAddressNotFound)
		return
	}
	writeJSON(w, http.StatusOK, coords)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	coords := geo.Coordinate{
		Lat: geo.ParseDegrees(r.URL.Query().Get("lat")),
		Lon: geo.ParseDegrees(r.URL.Query().Get("lon")),
	}
	if !coords.Displayable() {
		s.writeMessage(w, r, http.StatusBadRequest, msgInvalidCoords)
		return
	}
	addr, ok := s.backend.Reverse(r.Context(), coords)
	if !ok {
		s.writeMessage(w, r, http.StatusNotFound, msgAddressNotFound)
		return
	}
	writeJSON(w, http.StatusOK, addressResponse{
		Lat:         coords.Lat,
		Lng:         coords.Lon,
		DisplayName: addr.DisplayName,
		Street:      addr.Street,
		HouseNumber: addr.HouseNumber,
		Postcode:    addr.Postcode,
		City:        addr.City,
		Suburb:      addr.Suburb,
		State:       addr.State,
		Country:     addr.Country,
	})
}

func (s *Server) presenterFor(r *http.Request) *presenter.Presenter {
	if p, ok := s.presenters[s.catalog.Match(r.Header.Get("Accept-Language"))]; ok {
		return p
	}
	return s.presenters[s.catalog.Tag()]
}

func (s *Server) writeMessage(w http.ResponseWriter, r *http.Request, code int, msg localize.MsgID) {
	writeJSON(w, code, message{Message: s.catalog.ForRequest(r.Header.Get("Accept-Language")).Get(msg)})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug("request served", slog.String("method", r.Method), slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status), slog.Duration("duration", time.Since(start)))
	})
}
