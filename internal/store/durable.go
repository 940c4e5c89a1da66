package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get-style methods when the row is absent.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyExists is returned by Create-style methods on a conflicting key.
var ErrAlreadyExists = errors.New("store: already exists")

// Durable is the transactional record of identities, devices, contact
// backups, and bans (spec §3, §5: "per-operation transactions for any
// multi-row mutation").
type Durable interface {
	// UpsertIdentityAndDevice atomically creates the identity (if absent)
	// and replaces its device record, used by register_proof. Returns
	// whether the identity already existed (recovery flow vs first-time).
	UpsertIdentityAndDevice(ctx context.Context, whisperID string, dev Device) (existed bool, err error)

	GetIdentity(ctx context.Context, whisperID string) (*Identity, error)
	GetDevice(ctx context.Context, whisperID string) (*Device, error)

	Ban(ctx context.Context, whisperID, reason, bannedBy string) error
	Unban(ctx context.Context, whisperID string) error

	PutContactBackup(ctx context.Context, backup ContactBackup) (created bool, err error)
	GetContactBackup(ctx context.Context, whisperID string) (*ContactBackup, error)
	DeleteContactBackup(ctx context.Context, whisperID string) error

	// PutAttachmentRef records objectKey's uploader at presign_upload
	// time. SetAttachmentRecipient fills in the intended recipient once
	// send_message references the object key, so presign_download can
	// later verify either party.
	PutAttachmentRef(ctx context.Context, objectKey, uploader string) error
	SetAttachmentRecipient(ctx context.Context, objectKey, recipient string) error
	GetAttachmentRef(ctx context.Context, objectKey string) (*AttachmentRef, error)

	Close() error
	Ping(ctx context.Context) error
}
