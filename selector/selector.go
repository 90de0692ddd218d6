package selector

import (
	"github.com/sims1253/mcp-llm-bridge/types"
)

// Mode defines the context selection strategy.
type Mode string

const (
	// ModeFull returns the entire history unchanged.
	ModeFull Mode = "full"
	// ModeRecent returns the last N messages.
	ModeRecent Mode = "recent"
	// ModeMinimal returns only the single most recent message.
	ModeMinimal Mode = "minimal"
	// ModeNone returns no prior context.
	ModeNone Mode = "none"
	// ModeSmart returns the first message plus the most recent K, bounded.
	ModeSmart Mode = "smart"
)

const (
	// DefaultRecentLimit is the window used by ModeRecent when no explicit
	// limit is given.
	DefaultRecentLimit = 10
	// smartTailSize is the number of trailing messages ModeSmart keeps.
	smartTailSize = 5
	// smartMaxMessages bounds the total ModeSmart selection.
	smartMaxMessages = smartTailSize + 1
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeRecent, ModeMinimal, ModeNone, ModeSmart:
		return Mode(s), nil
	default:
		return "", types.Errorf(types.ErrInvalidInput, "unknown context mode %q", s)
	}
}

// Selector selects a bounded subsequence of conversation history. The zero
// value selects by message count only; a token counter adds a token budget
// to ModeSmart so oversized transcripts shrink deterministically.
type Selector struct {
	counter TokenCounter
	// maxSmartTokens bounds the estimated token total of a smart selection.
	// Zero disables the token bound.
	maxSmartTokens int
}

// New creates a Selector. counter may be nil (no token bound).
func New(counter TokenCounter, maxSmartTokens int) *Selector {
	return &Selector{counter: counter, maxSmartTokens: maxSmartTokens}
}

// Select applies mode with its default limit.
func (s *Selector) Select(history []types.Message, mode Mode) ([]types.Message, error) {
	return s.selectN(history, mode, DefaultRecentLimit)
}

// SelectN applies mode with an explicit limit. Only ModeRecent consumes the
// limit; limit <= 0 is rejected.
func (s *Selector) SelectN(history []types.Message, mode Mode, limit int) ([]types.Message, error) {
	if limit <= 0 {
		return nil, types.Errorf(types.ErrInvalidInput, "context limit must be positive, got %d", limit)
	}
	return s.selectN(history, mode, limit)
}

func (s *Selector) selectN(history []types.Message, mode Mode, limit int) ([]types.Message, error) {
	if len(history) == 0 {
		return []types.Message{}, nil
	}

	switch mode {
	case ModeNone:
		return []types.Message{}, nil
	case ModeMinimal:
		return history[len(history)-1:], nil
	case ModeRecent:
		if len(history) <= limit {
			return history, nil
		}
		return history[len(history)-limit:], nil
	case ModeFull:
		return history, nil
	case ModeSmart:
		return s.smartSelect(history), nil
	default:
		return nil, types.Errorf(types.ErrInvalidInput, "unknown context mode %q", mode)
	}
}

// smartSelect keeps the first message (it frames the original task) plus
// the most recent smartTailSize messages, in original order without
// duplicates. With a token counter configured, the tail is then trimmed
// oldest-first until the selection fits the token budget; the first message
// and the single most recent message always survive.
func (s *Selector) smartSelect(history []types.Message) []types.Message {
	var selected []types.Message
	if len(history) <= smartMaxMessages {
		selected = history
	} else {
		selected = make([]types.Message, 0, smartMaxMessages)
		selected = append(selected, history[0])
		selected = append(selected, history[len(history)-smartTailSize:]...)
	}

	if s.counter == nil || s.maxSmartTokens <= 0 {
		return selected
	}

	// Trim tail messages oldest-first while over budget. The anchors
	// (selected[0] and the newest message) are never dropped.
	for len(selected) > 2 && s.estimate(selected) > s.maxSmartTokens {
		selected = append(selected[:1:1], selected[2:]...)
	}
	return selected
}

func (s *Selector) estimate(messages []types.Message) int {
	total := 0
	for _, m := range messages {
		total += s.counter.CountTokens(m.Content)
		// per-message overhead
		total += 4
	}
	return total
}
