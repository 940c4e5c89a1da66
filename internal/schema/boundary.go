package schema

import (
	"github.com/whisper2/server/internal/wire"
)

const maxAttachmentBytes = 100 << 20 // 100 MiB, mirrors internal/httpapi's upload cap

func registerBoundaryTypes() {
	register(wire.TypePresignUpload, decodeJSON[wire.PresignUploadRequest], checkPresignUpload)
	register(wire.TypePresignDownload, decodeJSON[wire.PresignDownloadRequest], checkPresignDownload)
	register(wire.TypeTurnCredentials, decodeJSON[wire.TurnCredentialsRequest], checkTurnCredentials)
}

func checkPresignUpload(v any) []FieldError {
	r := v.(wire.PresignUploadRequest)
	var errs []FieldError
	errs = notEmpty("contentType", r.ContentType, errs)
	errs = maxLen("contentType", r.ContentType, 255, errs)
	if r.Size <= 0 {
		errs = append(errs, FieldError{Path: "size", Reason: "must be positive"})
	} else if r.Size > maxAttachmentBytes {
		errs = append(errs, FieldError{Path: "size", Reason: "exceeds maximum attachment size"})
	}
	return errs
}

func checkPresignDownload(v any) []FieldError {
	r := v.(wire.PresignDownloadRequest)
	return notEmpty("objectKey", r.ObjectKey, nil)
}

func checkTurnCredentials(v any) []FieldError {
	return nil
}
