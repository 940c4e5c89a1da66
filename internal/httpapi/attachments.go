package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/wire"
)

const maxAttachmentBytes = 100 << 20

func (a *API) handlePresignUpload(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, wire.CodeInvalidPayload, "method not allowed")
		return
	}
	var req wire.PresignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, wire.CodeInvalidPayload, "malformed request body")
		return
	}
	if req.ContentType == "" || req.Size <= 0 || req.Size > maxAttachmentBytes {
		writeError(w, http.StatusBadRequest, wire.CodeInvalidPayload, "invalid contentType or size")
		return
	}

	grant, err := a.presigner.PresignUpload(r.Context(), adapters.UploadRequest{
		WhisperID: sess.WhisperID, ContentType: req.ContentType, Size: req.Size,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "presign failed")
		return
	}
	if err := a.durable.PutAttachmentRef(r.Context(), grant.ObjectKey, sess.WhisperID); err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "record attachment reference failed")
		return
	}
	writeJSON(w, http.StatusOK, wire.PresignUploadResponse{
		ObjectKey: grant.ObjectKey, UploadURL: grant.URL, Headers: grant.Headers, ExpiresAtMs: grant.ExpiresAt.UnixMilli(),
	})
}

// handlePresignDownload only mints a download grant for an objectKey the
// requester either uploaded themselves or was the addressed recipient of
// in a send_message -- never for an arbitrary object key guessed or
// observed elsewhere.
func (a *API) handlePresignDownload(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, wire.CodeInvalidPayload, "method not allowed")
		return
	}
	var req wire.PresignDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, wire.CodeInvalidPayload, "malformed request body")
		return
	}
	if req.ObjectKey == "" {
		writeError(w, http.StatusBadRequest, wire.CodeInvalidPayload, "objectKey is required")
		return
	}

	ref, err := a.durable.GetAttachmentRef(r.Context(), req.ObjectKey)
	if err == store.ErrNotFound {
		writeError(w, http.StatusForbidden, wire.CodeForbidden, "no reference to this attachment")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "look up attachment reference failed")
		return
	}
	if ref.Uploader != sess.WhisperID && ref.Recipient != sess.WhisperID {
		writeError(w, http.StatusForbidden, wire.CodeForbidden, "no reference to this attachment")
		return
	}

	grant, err := a.presigner.PresignDownload(r.Context(), req.ObjectKey, sess.WhisperID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "presign failed")
		return
	}
	writeJSON(w, http.StatusOK, wire.PresignDownloadResponse{
		DownloadURL: grant.URL, ExpiresAtMs: grant.ExpiresAt.UnixMilli(),
	})
}
