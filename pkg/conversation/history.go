package conversation

// HistoryPart is one text part of a chat history entry.
type HistoryPart struct {
	Text string `json:"text"`
}

// ChatHistoryEntry is the history layout of the chat capability.
type ChatHistoryEntry struct {
	Role  string        `json:"role"`
	Parts []HistoryPart `json:"parts"`
}

// VisionHistoryEntry is the history layout of the vision capability.
type VisionHistoryEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatHistory serializes messages for the chat capability, skipping
// transient placeholders. The result is never nil so that it encodes as [].
func ChatHistory(messages []Message) []ChatHistoryEntry {
	ret := make([]ChatHistoryEntry, 0, len(messages))
	for _, m := range messages {
		if m.Transient {
			continue
		}
		ret = append(ret, ChatHistoryEntry{
			Role:  m.Role.HistoryRole(),
			Parts: []HistoryPart{{Text: m.Text}},
		})
	}
	return ret
}

func VisionHistory(messages []Message) []VisionHistoryEntry {
	ret := make([]VisionHistoryEntry, 0, len(messages))
	for _, h := range ChatHistory(messages) {
		ret = append(ret, VisionHistoryEntry{Role: h.Role, Text: h.Parts[0].Text})
	}
	return ret
}
