package store

import (
	"database/sql"
	"fmt"
	"time"

	"svodka-bot/internal/memory"
)

// MessageLog persists conversation turns in the messages table.
type MessageLog struct {
	DB *sql.DB
}

// Append writes one message and returns its sequence index. The index is
// allocated inside a transaction so concurrent readers never observe a
// partially written row.
func (l *MessageLog) Append(chatID int64, role, content string) (int64, error) {
	tx, err := l.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE chat_id = ?`, chatID,
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("allocate seq: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO messages (chat_id, seq, role, content) VALUES (?, ?, ?, ?)`,
		chatID, seq, role, content,
	); err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return seq, nil
}

// ReadRange returns the messages with seq in [start, end), ordered by seq.
func (l *MessageLog) ReadRange(chatID, start, end int64) ([]memory.Message, error) {
	rows, err := l.DB.Query(
		`SELECT seq, role, content, created_at FROM messages
		 WHERE chat_id = ? AND seq >= ? AND seq < ? ORDER BY seq`,
		chatID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("read range: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ReadLast returns the last n messages by sequence index, fewer if the
// log is shorter, ordered chronologically (oldest first).
func (l *MessageLog) ReadLast(chatID int64, n int) ([]memory.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := l.DB.Query(
		`SELECT seq, role, content, created_at FROM messages
		 WHERE chat_id = ? ORDER BY seq DESC LIMIT ?`,
		chatID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("read last: %w", err)
	}
	defer rows.Close()

	results, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// Clear removes every message of the chat.
func (l *MessageLog) Clear(chatID int64) error {
	if _, err := l.DB.Exec(`DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]memory.Message, error) {
	var results []memory.Message
	for rows.Next() {
		var m memory.Message
		var createdAt int64
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return results, nil
}
