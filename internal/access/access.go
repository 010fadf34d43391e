// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package access guards the HTTP API with a shared passphrase.
package access

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vorlif/spreak/localize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wneessen/friendsmap/internal/i18n"
	"github.com/wneessen/friendsmap/internal/logger"
)

const (
	CookieName = "friendsmap_session"
	HeaderName = "X-Access-Key"
	QueryParam = "key"
)

const (
	msgKeyRequired localize.MsgID = "access key required"
	msgKeyInvalid  localize.MsgID = "invalid access key"
	msgUnlocked    localize.MsgID = "unlocked"
	msgBadRequest  localize.MsgID = "invalid request body"
)

type Gate struct {
	digest  [sha256.Size]byte
	secret  []byte
	enabled bool
	catalog *i18n.Catalog
	logger  *logger.Logger
}

// New returns a Gate for the passphrase key. An empty key disables the gate.
func New(key string, catalog *i18n.Catalog, log *logger.Logger) (*Gate, error) {
	gate := &Gate{catalog: catalog, logger: log, enabled: key != ""}
	if !gate.enabled {
		return gate, nil
	}
	gate.secret = make([]byte, 32)
	if _, err := rand.Read(gate.secret); err != nil {
		return nil, fmt.Errorf("failed to create session secret: %w", err)
	}
	gate.digest = sha256.Sum256([]byte(canonical(key)))
	return gate, nil
}

func (g *Gate) Enabled() bool {
	return g.enabled
}

// Check reports whether key matches the passphrase, ignoring case.
func (g *Gate) Check(key string) bool {
	if !g.enabled {
		return true
	}
	digest := sha256.Sum256([]byte(canonical(key)))
	return subtle.ConstantTimeCompare(digest[:], g.digest[:]) == 1
}

// Middleware lets requests pass that carry the passphrase in the header, the query or a session
// cookie. A valid header or query key also sets the session cookie.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	if !g.enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.validSession(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(HeaderName)
		if key == "" {
			key = r.URL.Query().Get(QueryParam)
		}
		switch {
		case key == "":
			g.deny(w, r, msgKeyRequired)
		case !g.Check(key):
			g.logger.Warn("access denied", slog.String("remote", r.RemoteAddr), slog.String("path", r.URL.Path))
			g.deny(w, r, msgKeyInvalid)
		default:
			g.setSession(w)
			next.ServeHTTP(w, r)
		}
	})
}

type unlockRequest struct {
	Key string `json:"key"`
}

type message struct {
	Message string `json:"message"`
}

// Unlock handles the passphrase form: a JSON body {"key": "..."} sets the session cookie.
func (g *Gate) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, g.catalog.ForRequest(r.Header.Get("Accept-Language")).Get(msgBadRequest))
		return
	}
	if req.Key == "" {
		g.deny(w, r, msgKeyRequired)
		return
	}
	if !g.Check(req.Key) {
		g.logger.Warn("unlock failed", slog.String("remote", r.RemoteAddr))
		g.deny(w, r, msgKeyInvalid)
		return
	}
	if g.enabled {
		g.setSession(w)
	}
	writeMessage(w, http.StatusOK, g.catalog.ForRequest(r.Header.Get("Accept-Language")).Get(msgUnlocked))
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, msg localize.MsgID) {
	writeMessage(w, http.StatusUnauthorized, g.catalog.ForRequest(r.Header.Get("Accept-Language")).Get(msg))
}

func (g *Gate) session() string {
	mac := hmac.New(sha256.New, g.secret)
	_, _ = mac.Write(g.digest[:])
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Gate) validSession(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(cookie.Value), []byte(g.session()))
}

// setSession sets a cookie that lasts for the browser session.
func (g *Gate) setSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    g.session(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func canonical(key string) string {
	return cases.Upper(language.Und).String(key)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(message{Message: msg})
}
