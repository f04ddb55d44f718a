package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ChatState is the persisted per-conversation record.
type ChatState struct {
	AccountID     string
	ChatID        string
	ChatType      string
	PhoneNumberID string
	ContactWaID   string
	ContactName   string
	MessageCount  int64
	LastMessageAt *time.Time
	UpdatedAt     time.Time
}

// UpsertChatState records an observed message for the chat, creating the row
// on first contact. Contact name and wa id are refreshed when non-empty so
// profile renames propagate without clobbering known values with blanks.
func (s *Store) UpsertChatState(ctx context.Context, cs ChatState) error {
	now := time.Now()
	last := now
	if cs.LastMessageAt != nil {
		last = *cs.LastMessageAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_state (account_id, chat_id, chat_type, phone_number_id, contact_wa_id, contact_name, message_count, last_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (account_id, chat_id) DO UPDATE SET
			chat_type       = excluded.chat_type,
			phone_number_id = CASE WHEN excluded.phone_number_id != '' THEN excluded.phone_number_id ELSE chat_state.phone_number_id END,
			contact_wa_id   = CASE WHEN excluded.contact_wa_id != '' THEN excluded.contact_wa_id ELSE chat_state.contact_wa_id END,
			contact_name    = CASE WHEN excluded.contact_name != '' THEN excluded.contact_name ELSE chat_state.contact_name END,
			message_count   = chat_state.message_count + 1,
			last_message_at = excluded.last_message_at,
			updated_at      = excluded.updated_at
	`, cs.AccountID, cs.ChatID, cs.ChatType, cs.PhoneNumberID, cs.ContactWaID, cs.ContactName, last.Unix(), now)
	if err != nil {
		return fmt.Errorf("upsert chat state: %w", err)
	}
	return nil
}

// GetChatState loads the record for one chat. Returns ErrNotFound when the
// chat has never been seen.
func (s *Store) GetChatState(ctx context.Context, accountID, chatID string) (*ChatState, error) {
	var cs ChatState
	var lastUnix sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, chat_id, chat_type, phone_number_id, contact_wa_id, contact_name, message_count, last_message_at, updated_at
		FROM chat_state WHERE account_id = ? AND chat_id = ?
	`, accountID, chatID).Scan(
		&cs.AccountID, &cs.ChatID, &cs.ChatType, &cs.PhoneNumberID,
		&cs.ContactWaID, &cs.ContactName, &cs.MessageCount, &lastUnix, &cs.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat state: %w", err)
	}

	if lastUnix.Valid {
		t := time.Unix(lastUnix.Int64, 0)
		cs.LastMessageAt = &t
	}
	return &cs, nil
}

// ListChatStates returns every chat seen for the account, most recent first.
func (s *Store) ListChatStates(ctx context.Context, accountID string) ([]ChatState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, chat_id, chat_type, phone_number_id, contact_wa_id, contact_name, message_count, last_message_at, updated_at
		FROM chat_state WHERE account_id = ?
		ORDER BY last_message_at DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list chat states: %w", err)
	}
	defer rows.Close()

	var out []ChatState
	for rows.Next() {
		var cs ChatState
		var lastUnix sql.NullInt64
		if err := rows.Scan(
			&cs.AccountID, &cs.ChatID, &cs.ChatType, &cs.PhoneNumberID,
			&cs.ContactWaID, &cs.ContactName, &cs.MessageCount, &lastUnix, &cs.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat state: %w", err)
		}
		if lastUnix.Valid {
			t := time.Unix(lastUnix.Int64, 0)
			cs.LastMessageAt = &t
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
