package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/whisper2/server/internal/store"
)

// UpsertIdentityAndDevice creates the identity on first registration and
// always replaces the device record, inside a single transaction (spec
// §5: "per-operation transactions for any multi-row mutation").
func (s *Store) UpsertIdentityAndDevice(ctx context.Context, whisperID string, dev store.Device) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var existed bool
	err = tx.QueryRow(ctx, `SELECT true FROM identities WHERE whisper_id = $1`, whisperID).Scan(&existed)
	if err != nil && err != pgx.ErrNoRows {
		return false, fmt.Errorf("check identity: %w", err)
	}

	if !existed {
		_, err = tx.Exec(ctx, `INSERT INTO identities (whisper_id, status) VALUES ($1, 'active')`, whisperID)
		if err != nil {
			return false, fmt.Errorf("insert identity: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO devices (whisper_id, device_id, platform, enc_public_key, sign_public_key, push_token, voip_token, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (whisper_id) DO UPDATE SET
			device_id = EXCLUDED.device_id,
			platform = EXCLUDED.platform,
			enc_public_key = EXCLUDED.enc_public_key,
			sign_public_key = EXCLUDED.sign_public_key,
			push_token = EXCLUDED.push_token,
			voip_token = EXCLUDED.voip_token,
			updated_at = now()
	`, whisperID, dev.DeviceID, dev.Platform, dev.EncPublicKey, dev.SignPublicKey, dev.PushToken, dev.VoipToken)
	if err != nil {
		return false, fmt.Errorf("upsert device: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return existed, nil
}

func (s *Store) GetIdentity(ctx context.Context, whisperID string) (*store.Identity, error) {
	var id store.Identity
	id.WhisperID = whisperID
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status, created_at FROM identities WHERE whisper_id = $1`, whisperID).
		Scan(&status, &id.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	id.Status = store.IdentityStatus(status)
	return &id, nil
}

func (s *Store) GetDevice(ctx context.Context, whisperID string) (*store.Device, error) {
	var d store.Device
	d.WhisperID = whisperID
	err := s.pool.QueryRow(ctx, `
		SELECT device_id, platform, enc_public_key, sign_public_key, COALESCE(push_token, ''), COALESCE(voip_token, ''), updated_at
		FROM devices WHERE whisper_id = $1
	`, whisperID).Scan(&d.DeviceID, &d.Platform, &d.EncPublicKey, &d.SignPublicKey, &d.PushToken, &d.VoipToken, &d.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return &d, nil
}

func (s *Store) Ban(ctx context.Context, whisperID, reason, bannedBy string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE identities SET status = 'banned' WHERE whisper_id = $1`, whisperID); err != nil {
		return fmt.Errorf("mark banned: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bans (whisper_id, reason, banned_by) VALUES ($1, $2, $3)
		ON CONFLICT (whisper_id) DO UPDATE SET reason = EXCLUDED.reason, banned_by = EXCLUDED.banned_by, banned_at = now()
	`, whisperID, reason, bannedBy)
	if err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Unban(ctx context.Context, whisperID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE identities SET status = 'active' WHERE whisper_id = $1`, whisperID); err != nil {
		return fmt.Errorf("mark active: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bans WHERE whisper_id = $1`, whisperID); err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	return tx.Commit(ctx)
}
