package types

import "time"

// Role represents the role of a message participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	// RoleSummary marks messages produced by conversation summarization so
	// they are distinguishable from ordinary conversational turns.
	RoleSummary Role = "summary"
)

// Message represents a single conversation turn. Messages are immutable
// once appended to a conversation log.
type Message struct {
	Role    Role   `json:"role"`
	Adapter string `json:"adapter,omitempty"`
	Content string `json:"content"`
	// Seq is strictly increasing within a conversation, starting at 1.
	// It defines the total order of messages independent of timestamp skew.
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAdapterMessage creates a new assistant message attributed to an adapter.
func NewAdapterMessage(adapter, content string) Message {
	m := NewMessage(RoleAssistant, content)
	m.Adapter = adapter
	return m
}

// NewSummaryMessage creates a summary message attributed to an adapter.
func NewSummaryMessage(adapter, content string) Message {
	m := NewMessage(RoleSummary, content)
	m.Adapter = adapter
	return m
}

// Speaker returns the display name of the message originator: the adapter
// name for adapter-produced messages, the role otherwise.
func (m Message) Speaker() string {
	if m.Adapter != "" {
		return m.Adapter
	}
	return string(m.Role)
}

// Metadata is a cached summary of a conversation, recomputed on every
// append. It is never independently authoritative: it must always be
// derivable by replaying the message log.
type Metadata struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Participants []string  `json:"participants"`
	Topic        string    `json:"topic,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Status       string    `json:"status"`
}

// InputMethod selects how a prompt is handed to an external adapter process.
type InputMethod string

const (
	// InputStdin pipes the prompt to the process's standard input.
	InputStdin InputMethod = "stdin"
	// InputArg substitutes the prompt into the argument template.
	InputArg InputMethod = "arg"
)

// AdapterSpec describes one configured external LLM command. Specs are
// immutable after registry load.
type AdapterSpec struct {
	Name        string      `json:"name" yaml:"-"`
	Command     string      `json:"command" yaml:"command"`
	Args        []string    `json:"args,omitempty" yaml:"args"`
	InputMethod InputMethod `json:"input_method" yaml:"input_method"`
	// MessageArgTemplate is the placeholder substituted with the prompt
	// when InputMethod is InputArg. Defaults to "{message}".
	MessageArgTemplate string            `json:"message_arg_template,omitempty" yaml:"message_arg_template"`
	TimeoutSeconds     int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Description        string            `json:"description,omitempty" yaml:"description"`
	Env                map[string]string `json:"env,omitempty" yaml:"env"`
	WorkingDir         string            `json:"working_dir,omitempty" yaml:"working_dir"`
	// MaxCallsPerMinute throttles invocations of this adapter. Zero means
	// unlimited.
	MaxCallsPerMinute int `json:"max_calls_per_minute,omitempty" yaml:"max_calls_per_minute"`
}

// Timeout returns the configured timeout as a duration, falling back to
// the default when unset.
func (s AdapterSpec) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return DefaultAdapterTimeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DefaultAdapterTimeout bounds adapter invocations that do not configure
// an explicit timeout.
const DefaultAdapterTimeout = 300 * time.Second
