package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/whisper2/server/internal/store"
)

// PutAttachmentRef records objectKey's uploader at presign_upload time,
// so a later presign_download can verify the requester minted it.
func (s *Store) PutAttachmentRef(ctx context.Context, objectKey, uploader string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attachment_refs (object_key, uploader)
		VALUES ($1, $2)
		ON CONFLICT (object_key) DO UPDATE SET uploader = EXCLUDED.uploader
	`, objectKey, uploader)
	if err != nil {
		return fmt.Errorf("put attachment ref: %w", err)
	}
	return nil
}

// SetAttachmentRecipient fills in the intended recipient once
// send_message references objectKey, extending legitimate access to
// the other side of the conversation.
func (s *Store) SetAttachmentRecipient(ctx context.Context, objectKey, recipient string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE attachment_refs SET recipient = $2 WHERE object_key = $1`, objectKey, recipient)
	if err != nil {
		return fmt.Errorf("set attachment recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetAttachmentRef(ctx context.Context, objectKey string) (*store.AttachmentRef, error) {
	var ref store.AttachmentRef
	ref.ObjectKey = objectKey
	var recipient *string
	err := s.pool.QueryRow(ctx, `
		SELECT uploader, recipient, created_at FROM attachment_refs WHERE object_key = $1
	`, objectKey).Scan(&ref.Uploader, &recipient, &ref.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment ref: %w", err)
	}
	if recipient != nil {
		ref.Recipient = *recipient
	}
	return &ref, nil
}
