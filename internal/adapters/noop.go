package adapters

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/whisper2/server/internal/logger"
)

// NoopPusher logs and succeeds, for local/dev runs with no configured
// push vendor.
type NoopPusher struct{ Log logger.Logger }

func (p NoopPusher) Push(ctx context.Context, token PushToken, payload PushPayload) error {
	if p.Log != nil {
		p.Log.Debug("noop push", logger.String("whisperId", payload.WhisperID), logger.String("msgType", payload.MsgType))
	}
	return nil
}

// LocalPresigner issues grants pointing at an in-process object-store
// stand-in; it never talks to a real cloud object store. Useful for
// local/dev runs and integration tests.
type LocalPresigner struct {
	BaseURL string
	TTL     time.Duration
}

func (p LocalPresigner) PresignUpload(ctx context.Context, req UploadRequest) (UploadGrant, error) {
	key, err := randomKey()
	if err != nil {
		return UploadGrant{}, err
	}
	ttl := p.TTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return UploadGrant{
		ObjectKey: key,
		URL:       fmt.Sprintf("%s/upload/%s", p.BaseURL, key),
		Headers:   map[string]string{"Content-Type": req.ContentType},
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (p LocalPresigner) PresignDownload(ctx context.Context, objectKey, requesterWhisperID string) (DownloadGrant, error) {
	ttl := p.TTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return DownloadGrant{
		URL:       fmt.Sprintf("%s/download/%s", p.BaseURL, objectKey),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func randomKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate object key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// StaticTURNMinter returns a fixed credential set, useful when no real
// TURN realm secret is configured.
type StaticTURNMinter struct {
	URLs       []string
	Username   string
	Credential string
}

func (m StaticTURNMinter) Credentials(ctx context.Context, realm string) (TURNCreds, error) {
	return TURNCreds{
		URLs:       m.URLs,
		Username:   m.Username,
		Credential: m.Credential,
		TTL:        time.Hour,
	}, nil
}
