package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ktsujino/watari/internal/watari/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "watari.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChatState_UpsertAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if _, err := s.GetChatState(ctx, "default", "+16505551234"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	err := s.UpsertChatState(ctx, store.ChatState{
		AccountID:     "default",
		ChatID:        "+16505551234",
		ChatType:      "user",
		PhoneNumberID: "106540352242922",
		ContactWaID:   "16505551234",
		ContactName:   "Kerry",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cs, err := s.GetChatState(ctx, "default", "+16505551234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cs.ContactName != "Kerry" || cs.MessageCount != 1 || cs.LastMessageAt == nil {
		t.Errorf("unexpected state: %+v", cs)
	}
}

func TestChatState_UpsertIncrementsAndKeepsName(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := store.ChatState{
		AccountID:   "default",
		ChatID:      "+16505551234",
		ChatType:    "user",
		ContactName: "Kerry",
	}
	if err := s.UpsertChatState(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Second message arrives without profile data.
	second := store.ChatState{AccountID: "default", ChatID: "+16505551234", ChatType: "user"}
	if err := s.UpsertChatState(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cs, err := s.GetChatState(ctx, "default", "+16505551234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cs.MessageCount != 2 {
		t.Errorf("message_count = %d", cs.MessageCount)
	}
	if cs.ContactName != "Kerry" {
		t.Errorf("blank update clobbered contact name: %q", cs.ContactName)
	}
}

func TestChatState_ScopedByAccount(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.UpsertChatState(ctx, store.ChatState{AccountID: "support", ChatID: "+16505551234", ChatType: "user"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := s.GetChatState(ctx, "default", "+16505551234"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("chat leaked across accounts: %v", err)
	}

	list, err := s.ListChatStates(ctx, "support")
	if err != nil || len(list) != 1 {
		t.Errorf("ListChatStates = %v, %v", list, err)
	}
}

func TestPairingCodes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	pc := store.PairingCode{
		Code:      "8b3c8a1a-0000-4000-8000-000000000001",
		AccountID: "default",
		WaID:      "16505551234",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	if err := s.CreatePairingCode(ctx, pc); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetPairingCode(ctx, pc.Code)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WaID != "16505551234" || got.UsedAt != nil {
		t.Errorf("unexpected code: %+v", got)
	}

	paired, err := s.IsPaired(ctx, "default", "16505551234")
	if err != nil || paired {
		t.Errorf("unused code reported paired: %v, %v", paired, err)
	}

	if err := s.MarkPairingCodeUsed(ctx, pc.Code, now); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if err := s.MarkPairingCodeUsed(ctx, pc.Code, now); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double consumption not rejected: %v", err)
	}

	paired, err = s.IsPaired(ctx, "default", "16505551234")
	if err != nil || !paired {
		t.Errorf("consumed code not reported paired: %v, %v", paired, err)
	}

	if _, err := s.GetPairingCode(ctx, "no-such-code"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteExpiredPairingCodes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	expired := store.PairingCode{Code: "expired", AccountID: "default", WaID: "1", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}
	live := store.PairingCode{Code: "live", AccountID: "default", WaID: "2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, pc := range []store.PairingCode{expired, live} {
		if err := s.CreatePairingCode(ctx, pc); err != nil {
			t.Fatalf("create %s: %v", pc.Code, err)
		}
	}

	n, err := s.DeleteExpiredPairingCodes(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("deleted %d, err %v", n, err)
	}
	if _, err := s.GetPairingCode(ctx, "live"); err != nil {
		t.Errorf("live code removed: %v", err)
	}
}

func TestMessageDedup(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, err := s.MarkMessageProcessed(ctx, "wamid.A")
	if err != nil || !first {
		t.Fatalf("first = %v, err %v", first, err)
	}
	again, err := s.MarkMessageProcessed(ctx, "wamid.A")
	if err != nil || again {
		t.Fatalf("again = %v, err %v", again, err)
	}

	n, err := s.PruneProcessedMessages(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Errorf("pruned %d, err %v", n, err)
	}
}
