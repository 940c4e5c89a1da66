// Package httpapi serves the bearer-token-authenticated HTTP surface of
// spec §6: key lookup, contact backup, and attachment presigning. The
// teacher's HTTP surfaces (cmd/test-server) route with the stdlib
// http.ServeMux directly rather than pulling in a router library -- four
// route paths don't need one here either.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/auth"
	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/whisperr"
	"github.com/whisper2/server/internal/wire"
)

// MaxBackupBytes bounds a contact-backup PUT body.
const MaxBackupBytes = 256 << 10

type sessionCtxKey struct{}

// API wires the durable store, auth engine, and boundary adapters into
// the four HTTP route paths.
type API struct {
	durable   store.Durable
	auth      *auth.Engine
	presigner adapters.Presigner
	turn      adapters.TURNMinter
	log       logger.Logger
}

func New(durable store.Durable, engine *auth.Engine, presigner adapters.Presigner, turn adapters.TURNMinter, log logger.Logger) *API {
	return &API{durable: durable, auth: engine, presigner: presigner, turn: turn, log: log}
}

// Handler builds the full mux with the bearer-auth middleware applied.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/", a.withSession(a.handleGetKeys))
	mux.HandleFunc("/backup/contacts", a.withSession(a.handleContactBackup))
	mux.HandleFunc("/attachments/presign/upload", a.withSession(a.handlePresignUpload))
	mux.HandleFunc("/attachments/presign/download", a.withSession(a.handlePresignDownload))
	return mux
}

func (a *API) withSession(next func(http.ResponseWriter, *http.Request, *store.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, wire.CodeNotRegistered, "missing bearer token")
			return
		}
		sess, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			if werr, ok := whisperr.As(err); ok {
				writeError(w, http.StatusUnauthorized, werr.Code, werr.Message)
				return
			}
			writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "session validation failed")
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		next(w, r.WithContext(ctx), sess)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, prefix))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(wire.ErrorPayload{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
