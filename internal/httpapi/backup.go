package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/wire"
)

type contactBackupRequest struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

type contactBackupResponse struct {
	Success   bool   `json:"success"`
	Created   bool   `json:"created"`
	SizeBytes int    `json:"sizeBytes"`
	UpdatedAt int64  `json:"updatedAt"`
}

type contactBackupGetResponse struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	SizeBytes  int    `json:"sizeBytes"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// handleContactBackup serves PUT/GET/DELETE /backup/contacts.
func (a *API) handleContactBackup(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	switch r.Method {
	case http.MethodPut:
		a.putContactBackup(w, r, sess)
	case http.MethodGet:
		a.getContactBackup(w, r, sess)
	case http.MethodDelete:
		a.deleteContactBackup(w, r, sess)
	default:
		writeError(w, http.StatusMethodNotAllowed, wire.CodeInvalidPayload, "method not allowed")
	}
}

func (a *API) putContactBackup(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBackupBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, wire.CodeInvalidPayload, "could not read body")
		return
	}
	if len(body) > MaxBackupBytes {
		writeError(w, http.StatusBadRequest, wire.CodeInvalidPayload, "backup exceeds maximum size")
		return
	}
	var req contactBackupRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, wire.CodeInvalidPayload, "malformed request body")
		return
	}
	if len(req.Nonce) == 0 || len(req.Ciphertext) == 0 {
		writeError(w, http.StatusBadRequest, wire.CodeInvalidPayload, "nonce and ciphertext are required")
		return
	}

	created, err := a.durable.PutContactBackup(r.Context(), store.ContactBackup{
		WhisperID:  sess.WhisperID,
		Nonce:      req.Nonce,
		Ciphertext: req.Ciphertext,
		SizeBytes:  len(body),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "backup write failed")
		return
	}

	backup, err := a.durable.GetContactBackup(r.Context(), sess.WhisperID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "backup read-back failed")
		return
	}
	writeJSON(w, http.StatusOK, contactBackupResponse{
		Success: true, Created: created, SizeBytes: backup.SizeBytes, UpdatedAt: backup.UpdatedAt.UnixMilli(),
	})
}

func (a *API) getContactBackup(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	backup, err := a.durable.GetContactBackup(r.Context(), sess.WhisperID)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, wire.CodeNotFound, "no backup stored")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "backup read failed")
		return
	}
	writeJSON(w, http.StatusOK, contactBackupGetResponse{
		Nonce: backup.Nonce, Ciphertext: backup.Ciphertext,
		SizeBytes: backup.SizeBytes, UpdatedAt: backup.UpdatedAt.UnixMilli(),
	})
}

func (a *API) deleteContactBackup(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	if err := a.durable.DeleteContactBackup(r.Context(), sess.WhisperID); err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "backup delete failed")
		return
	}
	writeJSON(w, http.StatusOK, contactBackupResponse{Success: true})
}
