package bridge

import (
	"fmt"
	"strings"

	"github.com/sims1253/mcp-llm-bridge/types"
)

// FormatHistory renders selected history in the compact single-line form
// external adapters receive: "speaker: content | speaker: content".
// Newlines inside message content are flattened to spaces.
func FormatHistory(messages []types.Message) string {
	if len(messages) == 0 {
		return ""
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		content := strings.ReplaceAll(m.Content, "\n", " ")
		lines = append(lines, m.Speaker()+": "+content)
	}
	return strings.Join(lines, " | ")
}

// BuildPrompt combines selected history and the new message into the final
// prompt handed to the invoker.
func BuildPrompt(history []types.Message, message string) string {
	historyText := FormatHistory(history)
	switch {
	case historyText == "":
		return message
	case message == "":
		return historyText
	default:
		return historyText + " | " + message
	}
}

// summaryPrompt wraps a full transcript in the summarization instruction.
func summaryPrompt(messages []types.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Speaker()+": "+m.Content)
	}
	return fmt.Sprintf(
		"Please provide a concise summary of the following conversation:\n\n%s\n\nSummary:",
		strings.Join(parts, "\n\n"))
}
