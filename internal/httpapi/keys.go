package httpapi

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/wire"
)

type keysResponse struct {
	WhisperID     string `json:"whisperId"`
	EncPublicKey  string `json:"encPublicKey"`
	SignPublicKey string `json:"signPublicKey"`
	Status        string `json:"status"`
}

// handleGetKeys serves GET /users/{whisperId}/keys.
func (a *API) handleGetKeys(w http.ResponseWriter, r *http.Request, _ *store.Session) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, wire.CodeInvalidPayload, "method not allowed")
		return
	}
	whisperID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/users/"), "/keys")
	if whisperID == "" || whisperID == r.URL.Path {
		writeError(w, http.StatusNotFound, wire.CodeNotFound, "unknown route")
		return
	}

	identity, err := a.durable.GetIdentity(r.Context(), whisperID)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, wire.CodeNotFound, "unknown whisperId")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "key lookup failed")
		return
	}

	device, err := a.durable.GetDevice(r.Context(), whisperID)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, wire.CodeNotFound, "unknown whisperId")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "key lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, keysResponse{
		WhisperID:     identity.WhisperID,
		EncPublicKey:  base64.StdEncoding.EncodeToString(device.EncPublicKey),
		SignPublicKey: base64.StdEncoding.EncodeToString(device.SignPublicKey),
		Status:        string(identity.Status),
	})
}
