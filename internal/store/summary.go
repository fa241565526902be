package store

import (
	"database/sql"
	"errors"
	"fmt"

	"svodka-bot/internal/memory"
)

// SummaryStore persists the latest merged summary per chat. Only one row
// per chat is kept; Write replaces it in place.
type SummaryStore struct {
	DB *sql.DB
}

// Read returns the stored summary, ok=false when the chat has none yet.
func (s *SummaryStore) Read(chatID int64) (memory.Summary, bool, error) {
	var sum memory.Summary
	err := s.DB.QueryRow(
		`SELECT text, high_water_mark, version FROM summaries WHERE chat_id = ?`, chatID,
	).Scan(&sum.Text, &sum.HighWaterMark, &sum.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return memory.Summary{}, false, nil
	}
	if err != nil {
		return memory.Summary{}, false, fmt.Errorf("read summary: %w", err)
	}
	return sum, true, nil
}

// Write replaces the stored summary atomically.
func (s *SummaryStore) Write(chatID int64, sum memory.Summary) error {
	_, err := s.DB.Exec(
		`INSERT INTO summaries (chat_id, text, high_water_mark, version) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
			text = excluded.text,
			high_water_mark = excluded.high_water_mark,
			version = excluded.version,
			updated_at = unixepoch()`,
		chatID, sum.Text, sum.HighWaterMark, sum.Version,
	)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Clear removes the summary of the chat.
func (s *SummaryStore) Clear(chatID int64) error {
	if _, err := s.DB.Exec(`DELETE FROM summaries WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("clear summary: %w", err)
	}
	return nil
}
