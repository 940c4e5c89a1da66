// Package memory provides in-process implementations of store.Durable and
// store.Volatile for unit tests that don't want a real Postgres or Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/whisper2/server/internal/store"
)

// Durable is a mutex-guarded map-backed store.Durable.
type Durable struct {
	mu        sync.Mutex
	identities map[string]store.Identity
	devices    map[string]store.Device
	bans       map[string]store.Ban
	contacts   map[string]store.ContactBackup
	attachments map[string]store.AttachmentRef
}

func NewDurable() *Durable {
	return &Durable{
		identities: make(map[string]store.Identity),
		devices:    make(map[string]store.Device),
		bans:       make(map[string]store.Ban),
		contacts:   make(map[string]store.ContactBackup),
		attachments: make(map[string]store.AttachmentRef),
	}
}

func (d *Durable) UpsertIdentityAndDevice(ctx context.Context, whisperID string, dev store.Device) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, existed := d.identities[whisperID]
	if !existed {
		d.identities[whisperID] = store.Identity{
			WhisperID: whisperID,
			Status:    store.IdentityActive,
			CreatedAt: dev.UpdatedAt,
		}
	}
	dev.WhisperID = whisperID
	d.devices[whisperID] = dev
	return existed, nil
}

func (d *Durable) GetIdentity(ctx context.Context, whisperID string) (*store.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.identities[whisperID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &id, nil
}

func (d *Durable) GetDevice(ctx context.Context, whisperID string) (*store.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, ok := d.devices[whisperID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &dev, nil
}

func (d *Durable) Ban(ctx context.Context, whisperID, reason, bannedBy string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.identities[whisperID]
	if !ok {
		return store.ErrNotFound
	}
	id.Status = store.IdentityBanned
	d.identities[whisperID] = id
	d.bans[whisperID] = store.Ban{WhisperID: whisperID, Reason: reason, BannedBy: bannedBy}
	return nil
}

func (d *Durable) Unban(ctx context.Context, whisperID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.identities[whisperID]
	if !ok {
		return store.ErrNotFound
	}
	id.Status = store.IdentityActive
	d.identities[whisperID] = id
	delete(d.bans, whisperID)
	return nil
}

func (d *Durable) PutContactBackup(ctx context.Context, backup store.ContactBackup) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, existed := d.contacts[backup.WhisperID]
	d.contacts[backup.WhisperID] = backup
	return !existed, nil
}

func (d *Durable) GetContactBackup(ctx context.Context, whisperID string) (*store.ContactBackup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.contacts[whisperID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (d *Durable) DeleteContactBackup(ctx context.Context, whisperID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contacts[whisperID]; !ok {
		return store.ErrNotFound
	}
	delete(d.contacts, whisperID)
	return nil
}

func (d *Durable) PutAttachmentRef(ctx context.Context, objectKey, uploader string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachments[objectKey] = store.AttachmentRef{
		ObjectKey: objectKey, Uploader: uploader, CreatedAt: time.Now(),
	}
	return nil
}

func (d *Durable) SetAttachmentRecipient(ctx context.Context, objectKey, recipient string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.attachments[objectKey]
	if !ok {
		return store.ErrNotFound
	}
	ref.Recipient = recipient
	d.attachments[objectKey] = ref
	return nil
}

func (d *Durable) GetAttachmentRef(ctx context.Context, objectKey string) (*store.AttachmentRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.attachments[objectKey]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ref, nil
}

func (d *Durable) Close() error            { return nil }
func (d *Durable) Ping(ctx context.Context) error { return nil }
