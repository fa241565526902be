package memory

import (
	"context"
	"fmt"
	"strings"
)

// DefaultSummaryLanguage is the language the merged summary is written in.
const DefaultSummaryLanguage = "русский"

// SummarizeDue reports whether a full window of messages is waiting to be
// folded into the summary. It is a pure predicate over Meta.
func SummarizeDue(meta Meta, window int) bool {
	if window <= 0 {
		return false
	}
	return meta.MessageCount-meta.LastSummarized >= int64(window)
}

// Summarizer compresses one window of older turns into the running summary
// by asking the LLM collaborator for a single merged digest.
type Summarizer struct {
	Client   Client
	Language string
}

// Merge asks the collaborator to fold the previous summary (may be empty)
// and the given message block into one concise summary in the target
// language.
func (s *Summarizer) Merge(ctx context.Context, previous string, block []Message) (string, error) {
	language := s.Language
	if language == "" {
		language = DefaultSummaryLanguage
	}
	instruction := fmt.Sprintf(
		"Сожми диалог (последний блок сообщений) в краткую сводку 5–8 строк на языке «%s». "+
			"Если есть предыдущая сводка, объедини их в одну актуальную сводку. "+
			"Пиши короткими предложениями, без маркеров списков.",
		language,
	)

	messages := make([]Message, 0, 3)
	messages = append(messages, Message{Role: RoleSystem, Content: instruction})
	if previous != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: "Предыдущая сводка:\n" + previous})
	}
	messages = append(messages, Message{Role: RoleUser, Content: "Диалог:\n" + blockText(block)})

	text, err := s.Client.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("summarize block: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("summarize block: collaborator returned empty text")
	}
	return text, nil
}

func blockText(block []Message) string {
	parts := make([]string, 0, len(block))
	for _, m := range block {
		parts = append(parts, m.Role+": "+m.Content)
	}
	return strings.Join(parts, "\n")
}
