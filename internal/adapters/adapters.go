// Package adapters defines the boundary interfaces the router and auth
// engine call out to for push delivery, attachment presigning, and TURN
// credential minting (spec §4.8, §9 design notes: no global singletons
// except the configured logger). Default implementations are log-and-
// succeed stubs suitable for local and development runs, matching the
// teacher's cmd/test-server pattern of wiring concrete-but-minimal
// implementations at process start rather than reaching for a mocking
// framework.
package adapters

import (
	"context"
	"time"
)

// PushToken identifies where to deliver a push notification.
type PushToken struct {
	Token    string
	VoipPush bool
}

// PushPayload is the opaque, content-free wake-up payload. The server
// never includes message plaintext in a push.
type PushPayload struct {
	WhisperID string
	MsgType   string
}

type Pusher interface {
	Push(ctx context.Context, token PushToken, payload PushPayload) error
}

type UploadRequest struct {
	WhisperID   string
	ContentType string
	Size        int64
}

type UploadGrant struct {
	ObjectKey string
	URL       string
	Headers   map[string]string
	ExpiresAt time.Time
}

type DownloadGrant struct {
	URL       string
	ExpiresAt time.Time
}

type Presigner interface {
	PresignUpload(ctx context.Context, req UploadRequest) (UploadGrant, error)
	// PresignDownload mints a download grant for objectKey on behalf of
	// requesterWhisperID. The adapter itself does not enforce ownership --
	// that lives in the caller, which must already have verified
	// requesterWhisperID has a legitimate reference to objectKey -- but
	// carrying the identity through lets adapters that talk to a real
	// object store scope or log the grant per requester.
	PresignDownload(ctx context.Context, objectKey, requesterWhisperID string) (DownloadGrant, error)
}

type TURNCreds struct {
	URLs       []string
	Username   string
	Credential string
	TTL        time.Duration
}

type TURNMinter interface {
	Credentials(ctx context.Context, realm string) (TURNCreds, error)
}
