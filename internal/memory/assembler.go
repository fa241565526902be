package memory

// Assembler composes the prompt payload for a single turn: system prompt,
// then the running summary (omitted when empty), then the window of prior
// messages in ascending order, then the new user input.
type Assembler struct {
	SystemPrompt string
}

const summaryPreamble = "Краткая сводка предыдущего диалога:\n"

// Assemble builds the ordered message list. It has no side effects and
// never touches storage.
func (a *Assembler) Assemble(summary string, window []Message, userInput string) ([]Message, error) {
	messages := make([]Message, 0, len(window)+3)
	messages = append(messages, Message{Role: RoleSystem, Content: a.SystemPrompt})
	if summary != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: summaryPreamble + summary})
	}
	for _, m := range window {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return nil, &CompositionError{Seq: m.Seq, Reason: "missing or unknown role"}
		}
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userInput})
	return messages, nil
}
