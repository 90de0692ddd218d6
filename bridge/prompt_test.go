package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sims1253/mcp-llm-bridge/types"
)

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "", FormatHistory(nil))

	messages := []types.Message{
		types.NewUserMessage("line one\nline two"),
		types.NewAdapterMessage("gpt", "reply"),
	}
	assert.Equal(t, "user: line one line two | gpt: reply", FormatHistory(messages))
}

func TestBuildPrompt(t *testing.T) {
	history := []types.Message{types.NewUserMessage("earlier")}

	assert.Equal(t, "user: earlier | now", BuildPrompt(history, "now"))
	assert.Equal(t, "user: earlier", BuildPrompt(history, ""))
	assert.Equal(t, "now", BuildPrompt(nil, "now"))
	assert.Equal(t, "", BuildPrompt(nil, ""))
}

func TestSummaryPrompt(t *testing.T) {
	messages := []types.Message{
		types.NewUserMessage("question"),
		types.NewAdapterMessage("gpt", "answer"),
	}
	prompt := summaryPrompt(messages)
	assert.Contains(t, prompt, "concise summary")
	assert.Contains(t, prompt, "user: question")
	assert.Contains(t, prompt, "gpt: answer")
}
