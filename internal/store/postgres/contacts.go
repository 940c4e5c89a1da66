package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/whisper2/server/internal/store"
)

// PutContactBackup overwrites the single contact-backup slot for an
// identity and reports whether the row was newly created (for the
// HTTP surface's {created} field).
func (s *Store) PutContactBackup(ctx context.Context, b store.ContactBackup) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var existed bool
	err = tx.QueryRow(ctx, `SELECT true FROM contact_backups WHERE whisper_id = $1`, b.WhisperID).Scan(&existed)
	if err != nil && err != pgx.ErrNoRows {
		return false, fmt.Errorf("check existing backup: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO contact_backups (whisper_id, nonce, ciphertext, size_bytes, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (whisper_id) DO UPDATE SET
			nonce = EXCLUDED.nonce, ciphertext = EXCLUDED.ciphertext, size_bytes = EXCLUDED.size_bytes, updated_at = now()
	`, b.WhisperID, b.Nonce, b.Ciphertext, b.SizeBytes)
	if err != nil {
		return false, fmt.Errorf("upsert contact backup: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return !existed, nil
}

func (s *Store) GetContactBackup(ctx context.Context, whisperID string) (*store.ContactBackup, error) {
	var b store.ContactBackup
	b.WhisperID = whisperID
	err := s.pool.QueryRow(ctx, `
		SELECT nonce, ciphertext, size_bytes, updated_at FROM contact_backups WHERE whisper_id = $1
	`, whisperID).Scan(&b.Nonce, &b.Ciphertext, &b.SizeBytes, &b.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact backup: %w", err)
	}
	return &b, nil
}

func (s *Store) DeleteContactBackup(ctx context.Context, whisperID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contact_backups WHERE whisper_id = $1`, whisperID)
	if err != nil {
		return fmt.Errorf("delete contact backup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
