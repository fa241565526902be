package memory

import "context"

// MessageLog is the durable append-only record of turns for a chat.
type MessageLog interface {
	Append(chatID int64, role, content string) (int64, error)
	ReadRange(chatID, start, end int64) ([]Message, error)
	ReadLast(chatID int64, n int) ([]Message, error)
	Clear(chatID int64) error
}

// SummaryStore holds the latest merged summary for a chat. Read reports
// ok=false for a fresh chat; Write replaces the stored summary atomically.
type SummaryStore interface {
	Read(chatID int64) (Summary, bool, error)
	Write(chatID int64, s Summary) error
	Clear(chatID int64) error
}

// MetaStore holds the per-chat counters.
type MetaStore interface {
	Read(chatID int64) (Meta, error)
	IncrementCount(chatID int64, by int) (int64, error)
	MarkSummarized(chatID, upTo int64) error
	Clear(chatID int64) error
}

// Client is the LLM collaborator contract. Implementations may fail with
// network or timeout errors; the engine never retries on its own.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
