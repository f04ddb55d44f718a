package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PairingCode is a one-time code binding a WhatsApp sender to an account.
type PairingCode struct {
	Code      string
	AccountID string
	WaID      string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// CreatePairingCode persists a freshly issued code.
func (s *Store) CreatePairingCode(ctx context.Context, pc PairingCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pairing_codes (code, account_id, wa_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, pc.Code, pc.AccountID, pc.WaID, pc.CreatedAt, pc.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create pairing code: %w", err)
	}
	return nil
}

// GetPairingCode loads a code. Returns ErrNotFound when the code does not
// exist.
func (s *Store) GetPairingCode(ctx context.Context, code string) (*PairingCode, error) {
	var pc PairingCode
	var usedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT code, account_id, wa_id, created_at, expires_at, used_at
		FROM pairing_codes WHERE code = ?
	`, code).Scan(&pc.Code, &pc.AccountID, &pc.WaID, &pc.CreatedAt, &pc.ExpiresAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pairing code: %w", err)
	}

	if usedAt.Valid {
		pc.UsedAt = &usedAt.Time
	}
	return &pc, nil
}

// MarkPairingCodeUsed stamps the code as consumed. Returns ErrNotFound when
// the code does not exist or was already used, so consumption is atomic.
func (s *Store) MarkPairingCodeUsed(ctx context.Context, code string, usedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pairing_codes SET used_at = ? WHERE code = ? AND used_at IS NULL
	`, usedAt, code)
	if err != nil {
		return fmt.Errorf("mark pairing code used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark pairing code used: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsPaired reports whether the sender has a consumed, unexpired-at-use
// pairing code for the account.
func (s *Store) IsPaired(ctx context.Context, accountID, waID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM pairing_codes
		WHERE account_id = ? AND wa_id = ? AND used_at IS NOT NULL
	`, accountID, waID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check pairing: %w", err)
	}
	return n > 0, nil
}

// DeleteExpiredPairingCodes removes unused codes whose expiry has passed and
// returns how many were removed.
func (s *Store) DeleteExpiredPairingCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM pairing_codes WHERE used_at IS NULL AND expires_at < ?
	`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired pairing codes: %w", err)
	}
	return res.RowsAffected()
}
