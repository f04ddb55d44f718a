// Package chatstate tracks per-conversation context and renders it as a
// prompt fragment for the message-handling pipeline.
package chatstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ktsujino/watari/common/spec/wire"
	"github.com/ktsujino/watari/internal/watari/normalize"
	"github.com/ktsujino/watari/internal/watari/store"
)

// Store is the persistence the tracker needs.
type Store interface {
	UpsertChatState(ctx context.Context, cs store.ChatState) error
	GetChatState(ctx context.Context, accountID, chatID string) (*store.ChatState, error)
}

// Tracker records inbound traffic and serves chat context.
type Tracker struct {
	store Store
	log   *slog.Logger
}

// New returns a Tracker backed by the given store.
func New(st Store, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{store: st, log: log}
}

// Record notes an inbound message for the chat. Contact profile data is
// taken from the delivery when present.
func (t *Tracker) Record(ctx context.Context, accountID, chatID, phoneNumberID string, msg *wire.IncomingMessage, contact *wire.WebhookContact) error {
	cs := store.ChatState{
		AccountID:     accountID,
		ChatID:        chatID,
		ChatType:      string(normalize.ChatTypeOf(chatID)),
		PhoneNumberID: phoneNumberID,
		ContactWaID:   msg.From,
	}
	if contact != nil {
		cs.ContactName = contact.Profile.Name
		if contact.WaID != "" {
			cs.ContactWaID = contact.WaID
		}
	}
	if ts := parseTimestamp(msg.Timestamp); ts != nil {
		cs.LastMessageAt = ts
	}
	return t.store.UpsertChatState(ctx, cs)
}

// Context renders the chat's state as a prompt fragment. Unknown chats and
// lookup failures yield an empty string so prompt assembly degrades quietly
// instead of failing the message.
func (t *Tracker) Context(ctx context.Context, accountID, chatID string) string {
	cs, err := t.store.GetChatState(ctx, accountID, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return ""
	}
	if err != nil {
		t.log.Debug("chat state lookup failed", "account_id", accountID, "chat_id", chatID, "err", err)
		return ""
	}
	return format(cs)
}

// format renders one chat state record.
func format(cs *store.ChatState) string {
	var b strings.Builder
	b.WriteString("# WhatsApp Chat Context\n\n")
	fmt.Fprintf(&b, "- Contact: %s\n", cs.ContactWaID)
	if cs.ContactName != "" {
		fmt.Fprintf(&b, "- Name: %s\n", cs.ContactName)
	}
	if cs.ChatType == string(normalize.ChatTypeGroup) {
		fmt.Fprintf(&b, "- Group: %s\n", cs.ChatID)
	}
	if cs.LastMessageAt != nil {
		fmt.Fprintf(&b, "- Last Message: %s\n", cs.LastMessageAt.Format("2006-01-02 15:04:05"))
	}
	b.WriteString("\nNote: This conversation is on WhatsApp. Be helpful and concise.")
	return b.String()
}

// parseTimestamp converts the webhook's unix-seconds string. Malformed
// timestamps are dropped rather than guessed at.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	var unix int64
	if _, err := fmt.Sscanf(s, "%d", &unix); err != nil {
		return nil
	}
	t := time.Unix(unix, 0)
	return &t
}
