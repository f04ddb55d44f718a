package pairing_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ktsujino/watari/internal/watari/pairing"
	"github.com/ktsujino/watari/internal/watari/store"
)

func newManager(t *testing.T, ttl time.Duration) (*pairing.Manager, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "watari.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return pairing.New(s, ttl, nil), s
}

func TestIssueAndRedeem(t *testing.T) {
	m, _ := newManager(t, time.Minute)
	ctx := context.Background()

	pc, err := m.Issue(ctx, "default", "16505551234")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pc.Code == "" || pc.ExpiresAt.Before(pc.CreatedAt) {
		t.Errorf("unexpected code: %+v", pc)
	}

	if err := m.Redeem(ctx, pc.Code, "default", "16505551234"); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	paired, err := m.IsPaired(ctx, "default", "16505551234")
	if err != nil || !paired {
		t.Errorf("IsPaired = %v, %v", paired, err)
	}

	if err := m.Redeem(ctx, pc.Code, "default", "16505551234"); !errors.Is(err, pairing.ErrAlreadyUsed) {
		t.Errorf("second redeem: %v", err)
	}
}

func TestRedeem_UnknownCode(t *testing.T) {
	m, _ := newManager(t, time.Minute)
	if err := m.Redeem(context.Background(), "no-such-code", "default", "1"); !errors.Is(err, pairing.ErrUnknownCode) {
		t.Errorf("got %v", err)
	}
}

func TestRedeem_Mismatch(t *testing.T) {
	m, _ := newManager(t, time.Minute)
	ctx := context.Background()

	pc, err := m.Issue(ctx, "default", "16505551234")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := m.Redeem(ctx, pc.Code, "support", "16505551234"); !errors.Is(err, pairing.ErrMismatch) {
		t.Errorf("wrong account: %v", err)
	}
	if err := m.Redeem(ctx, pc.Code, "default", "19995550000"); !errors.Is(err, pairing.ErrMismatch) {
		t.Errorf("wrong sender: %v", err)
	}
}

func TestRedeem_Expired(t *testing.T) {
	m, s := newManager(t, time.Minute)
	ctx := context.Background()
	now := time.Now()

	pc := store.PairingCode{
		Code:      "stale-code",
		AccountID: "default",
		WaID:      "16505551234",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-time.Minute),
	}
	if err := s.CreatePairingCode(ctx, pc); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.Redeem(ctx, "stale-code", "default", "16505551234"); !errors.Is(err, pairing.ErrExpired) {
		t.Errorf("got %v", err)
	}

	if err := m.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if err := m.Redeem(ctx, "stale-code", "default", "16505551234"); !errors.Is(err, pairing.ErrUnknownCode) {
		t.Errorf("swept code still present: %v", err)
	}
}
