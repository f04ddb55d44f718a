package store

import (
	"context"
	"fmt"
	"time"
)

// MarkMessageProcessed records a webhook message id and reports whether it
// was seen for the first time. Meta redelivers events until they are
// acknowledged, so the same message id can arrive more than once; callers
// skip processing when this returns false.
func (s *Store) MarkMessageProcessed(ctx context.Context, messageID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_messages (message_id) VALUES (?)
		ON CONFLICT (message_id) DO NOTHING
	`, messageID)
	if err != nil {
		return false, fmt.Errorf("mark message processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark message processed: %w", err)
	}
	return n > 0, nil
}

// PruneProcessedMessages deletes dedup records older than the cutoff and
// returns how many were removed.
func (s *Store) PruneProcessedMessages(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM processed_messages WHERE seen_at < ?
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune processed messages: %w", err)
	}
	return res.RowsAffected()
}
