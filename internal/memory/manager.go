package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ManagerOptions carries the per-instance configuration of the engine.
// All fields are fixed at startup.
type ManagerOptions struct {
	WindowSize      int
	SystemPrompt    string
	SummaryLanguage string
}

// CommitFunc persists a completed turn. The caller invokes it after
// receiving the assistant reply; if the LLM call failed or was cancelled,
// the caller simply drops the closure and nothing is recorded.
type CommitFunc func(ctx context.Context, assistantReply string) error

// Status is a read-only snapshot of one conversation.
type Status struct {
	MessageCount int64
	HasSummary   bool
	WindowSize   int
}

// conversation guards all local mutation for one chat id. The epoch is
// bumped on reset and invalidates in-flight summarizations.
type conversation struct {
	sync.Mutex
	epoch uint64
}

// Manager orchestrates the stores, the assembler and the summarizer for
// every conversation. It is the only writer; operations for the same chat
// id are serialized, different chats proceed concurrently.
type Manager struct {
	opts       ManagerOptions
	assembler  *Assembler
	summarizer *Summarizer
	log        MessageLog
	summaries  SummaryStore
	meta       MetaStore
	logger     *zap.Logger

	mu    sync.Mutex
	chats map[int64]*conversation
}

// NewManager creates a conversation context manager.
func NewManager(opts ManagerOptions, client Client, log MessageLog, summaries SummaryStore, meta MetaStore, logger *zap.Logger) *Manager {
	return &Manager{
		opts:       opts,
		assembler:  &Assembler{SystemPrompt: opts.SystemPrompt},
		summarizer: &Summarizer{Client: client, Language: opts.SummaryLanguage},
		log:        log,
		summaries:  summaries,
		meta:       meta,
		logger:     logger,
		chats:      make(map[int64]*conversation),
	}
}

func (m *Manager) conv(chatID int64) *conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		c = &conversation{}
		m.chats[chatID] = c
	}
	return c
}

// HandleTurn builds the prompt payload for the given user input and
// returns it together with the commit closure for the assistant reply.
// No conversation lock is held while the caller talks to the LLM.
func (m *Manager) HandleTurn(chatID int64, userInput string) ([]Message, CommitFunc, error) {
	summary, ok, err := m.summaries.Read(chatID)
	if err != nil {
		return nil, nil, storageErr("read summary", err)
	}
	summaryText := ""
	if ok {
		summaryText = summary.Text
	}

	window, err := m.log.ReadLast(chatID, m.opts.WindowSize)
	if err != nil {
		return nil, nil, storageErr("read window", err)
	}

	prompt, err := m.assembler.Assemble(summaryText, window, userInput)
	if err != nil {
		return nil, nil, err
	}

	commit := func(ctx context.Context, assistantReply string) error {
		return m.commitTurn(ctx, chatID, userInput, assistantReply)
	}
	return prompt, commit, nil
}

// commitTurn appends both turn messages, bumps the counters and runs the
// summarization check. Only the local mutation happens under the chat
// lock; the summarization LLM call does not.
func (m *Manager) commitTurn(ctx context.Context, chatID int64, userInput, assistantReply string) error {
	c := m.conv(chatID)
	c.Lock()
	epoch := c.epoch

	if _, err := m.log.Append(chatID, RoleUser, userInput); err != nil {
		c.Unlock()
		return storageErr("append user message", err)
	}
	if _, err := m.log.Append(chatID, RoleAssistant, assistantReply); err != nil {
		c.Unlock()
		return storageErr("append assistant message", err)
	}
	if _, err := m.meta.IncrementCount(chatID, 2); err != nil {
		c.Unlock()
		return storageErr("increment message count", err)
	}

	meta, err := m.meta.Read(chatID)
	if err != nil {
		c.Unlock()
		return storageErr("read meta", err)
	}
	if !SummarizeDue(meta, m.opts.WindowSize) {
		c.Unlock()
		return nil
	}

	// Snapshot the oldest pending window and the previous summary while
	// still holding the lock, then release it for the LLM call.
	start := meta.LastSummarized
	upTo := start + int64(m.opts.WindowSize)
	block, err := m.log.ReadRange(chatID, start, upTo)
	if err != nil {
		c.Unlock()
		m.logger.Warn("summarization skipped",
			zap.String("kind", "storage"),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return nil
	}
	previous := ""
	prevVersion := int64(0)
	if prev, ok, err := m.summaries.Read(chatID); err != nil {
		c.Unlock()
		m.logger.Warn("summarization skipped",
			zap.String("kind", "storage"),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return nil
	} else if ok {
		previous = prev.Text
		prevVersion = prev.Version
	}
	c.Unlock()

	merged, err := m.summarizer.Merge(ctx, previous, block)
	if err != nil {
		// Best effort: meta stays untouched, the same boundary is
		// retried on the next qualifying commit.
		m.logger.Warn("summarization failed",
			zap.String("kind", "collaborator"),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return nil
	}

	c.Lock()
	defer c.Unlock()
	if c.epoch != epoch {
		m.logger.Info("summary discarded, conversation was reset",
			zap.Int64("chat_id", chatID))
		return nil
	}
	// A concurrent commit may have merged this window (or a later one)
	// while our LLM call was in flight. The mark must never move backwards.
	metaNow, err := m.meta.Read(chatID)
	if err != nil {
		m.logger.Warn("summary write skipped",
			zap.String("kind", "storage"),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return nil
	}
	if metaNow.LastSummarized != start {
		m.logger.Info("summary discarded, window already merged",
			zap.Int64("chat_id", chatID),
			zap.Int64("window_start", start),
			zap.Int64("last_summarized", metaNow.LastSummarized))
		return nil
	}
	if err := m.summaries.Write(chatID, Summary{
		Text:          merged,
		HighWaterMark: upTo,
		Version:       prevVersion + 1,
	}); err != nil {
		m.logger.Warn("summary write failed",
			zap.String("kind", "storage"),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return nil
	}
	if err := m.meta.MarkSummarized(chatID, upTo); err != nil {
		m.logger.Warn("mark summarized failed",
			zap.String("kind", "storage"),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return nil
	}
	m.logger.Info("summary merged",
		zap.Int64("chat_id", chatID),
		zap.Int64("high_water_mark", upTo),
		zap.Int64("version", prevVersion+1))
	return nil
}

// Reset clears the message log, summary and meta for the chat and bumps
// the epoch so that any in-flight summarization is discarded. Resetting a
// nonexistent conversation is a no-op.
func (m *Manager) Reset(chatID int64) error {
	c := m.conv(chatID)
	c.Lock()
	defer c.Unlock()
	c.epoch++

	if err := m.log.Clear(chatID); err != nil {
		return storageErr("clear message log", err)
	}
	if err := m.summaries.Clear(chatID); err != nil {
		return storageErr("clear summary", err)
	}
	if err := m.meta.Clear(chatID); err != nil {
		return storageErr("clear meta", err)
	}
	return nil
}

// Status returns a read-only snapshot of the conversation.
func (m *Manager) Status(chatID int64) (Status, error) {
	meta, err := m.meta.Read(chatID)
	if err != nil {
		return Status{}, storageErr("read meta", err)
	}
	_, hasSummary, err := m.summaries.Read(chatID)
	if err != nil {
		return Status{}, storageErr("read summary", err)
	}
	return Status{
		MessageCount: meta.MessageCount,
		HasSummary:   hasSummary,
		WindowSize:   m.opts.WindowSize,
	}, nil
}
