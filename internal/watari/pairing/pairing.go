// Package pairing implements the out-of-band identity-binding flow used by
// the "pairing" DM policy: a one-time code is issued for a sender, handed
// over outside WhatsApp, and redeemed to confirm the binding.
package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ktsujino/watari/internal/watari/store"
)

// DefaultTTL is how long an issued code stays redeemable.
const DefaultTTL = 10 * time.Minute

var (
	// ErrUnknownCode means the code was never issued.
	ErrUnknownCode = errors.New("pairing: unknown code")
	// ErrExpired means the code outlived its TTL before redemption.
	ErrExpired = errors.New("pairing: code expired")
	// ErrAlreadyUsed means the code was redeemed before.
	ErrAlreadyUsed = errors.New("pairing: code already used")
	// ErrMismatch means the code was issued for a different account or sender.
	ErrMismatch = errors.New("pairing: code does not match sender")
)

// Store is the persistence the manager needs.
type Store interface {
	CreatePairingCode(ctx context.Context, pc store.PairingCode) error
	GetPairingCode(ctx context.Context, code string) (*store.PairingCode, error)
	MarkPairingCodeUsed(ctx context.Context, code string, usedAt time.Time) error
	IsPaired(ctx context.Context, accountID, waID string) (bool, error)
	DeleteExpiredPairingCodes(ctx context.Context, now time.Time) (int64, error)
}

// Manager issues and redeems pairing codes.
type Manager struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// New returns a Manager. A non-positive ttl uses DefaultTTL.
func New(st Store, ttl time.Duration, log *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: st, ttl: ttl, log: log, now: time.Now}
}

// Issue creates a fresh code binding the sender to the account and persists
// it with the configured TTL.
func (m *Manager) Issue(ctx context.Context, accountID, waID string) (*store.PairingCode, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("pairing: generate code: %w", err)
	}

	now := m.now()
	pc := store.PairingCode{
		Code:      id.String(),
		AccountID: accountID,
		WaID:      waID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreatePairingCode(ctx, pc); err != nil {
		return nil, err
	}

	m.log.Info("pairing code issued", "account_id", accountID, "wa_id", waID, "expires_at", pc.ExpiresAt)
	return &pc, nil
}

// Redeem consumes a code on behalf of the sender. The code must exist, be
// unexpired and unused, and have been issued for exactly this account and
// sender.
func (m *Manager) Redeem(ctx context.Context, code, accountID, waID string) error {
	pc, err := m.store.GetPairingCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownCode
	}
	if err != nil {
		return err
	}

	if pc.UsedAt != nil {
		return ErrAlreadyUsed
	}
	if m.now().After(pc.ExpiresAt) {
		return ErrExpired
	}
	if pc.AccountID != accountID || pc.WaID != waID {
		return ErrMismatch
	}

	if err := m.store.MarkPairingCodeUsed(ctx, code, m.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race with a concurrent redemption.
			return ErrAlreadyUsed
		}
		return err
	}

	m.log.Info("pairing code redeemed", "account_id", accountID, "wa_id", waID)
	return nil
}

// IsPaired reports whether the sender has completed pairing for the account.
func (m *Manager) IsPaired(ctx context.Context, accountID, waID string) (bool, error) {
	return m.store.IsPaired(ctx, accountID, waID)
}

// Sweep removes expired unused codes. Intended to run periodically.
func (m *Manager) Sweep(ctx context.Context) error {
	n, err := m.store.DeleteExpiredPairingCodes(ctx, m.now())
	if err != nil {
		return err
	}
	if n > 0 {
		m.log.Debug("pairing codes swept", "removed", n)
	}
	return nil
}
