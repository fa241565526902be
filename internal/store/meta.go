package store

import (
	"database/sql"
	"errors"
	"fmt"

	"svodka-bot/internal/memory"
)

// MetaStore persists the per-chat counters.
type MetaStore struct {
	DB *sql.DB
}

// Read returns the counters, a zero Meta for an unknown chat.
func (s *MetaStore) Read(chatID int64) (memory.Meta, error) {
	var meta memory.Meta
	err := s.DB.QueryRow(
		`SELECT message_count, last_summarized FROM chat_meta WHERE chat_id = ?`, chatID,
	).Scan(&meta.MessageCount, &meta.LastSummarized)
	if errors.Is(err, sql.ErrNoRows) {
		return memory.Meta{}, nil
	}
	if err != nil {
		return memory.Meta{}, fmt.Errorf("read meta: %w", err)
	}
	return meta, nil
}

// IncrementCount bumps the message counter and returns the new total.
// The read-modify-write happens in a single statement.
func (s *MetaStore) IncrementCount(chatID int64, by int) (int64, error) {
	var total int64
	err := s.DB.QueryRow(
		`INSERT INTO chat_meta (chat_id, message_count, last_summarized) VALUES (?, ?, 0)
		 ON CONFLICT(chat_id) DO UPDATE SET
			message_count = message_count + excluded.message_count,
			updated_at = unixepoch()
		 RETURNING message_count`,
		chatID, by,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("increment count: %w", err)
	}
	return total, nil
}

// MarkSummarized records that messages below upTo have been folded into
// the summary. The mark never decreases.
func (s *MetaStore) MarkSummarized(chatID, upTo int64) error {
	res, err := s.DB.Exec(
		`UPDATE chat_meta SET last_summarized = ?, updated_at = unixepoch()
		 WHERE chat_id = ? AND last_summarized <= ?`,
		upTo, chatID, upTo,
	)
	if err != nil {
		return fmt.Errorf("mark summarized: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark summarized: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark summarized: chat %d has no meta or mark would decrease", chatID)
	}
	return nil
}

// Clear removes the counters of the chat.
func (s *MetaStore) Clear(chatID int64) error {
	if _, err := s.DB.Exec(`DELETE FROM chat_meta WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}
	return nil
}
