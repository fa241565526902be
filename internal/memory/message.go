package memory

import "time"

// Chat roles understood by the memory engine.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. Seq is assigned by the message
// log on append, starts at 0 per chat and defines the only total order.
type Message struct {
	Role      string
	Content   string
	Seq       int64
	CreatedAt time.Time
}

// Summary is the running compressed digest of a conversation.
// HighWaterMark is the count of messages already folded into Text and
// never decreases; Version bumps on every successful merge.
type Summary struct {
	Text          string
	HighWaterMark int64
	Version       int64
}

// Meta holds the per-chat counters that drive summarization.
// LastSummarized is always a multiple of the configured window size
// and never exceeds MessageCount.
type Meta struct {
	MessageCount   int64
	LastSummarized int64
}
