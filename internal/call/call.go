package call

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role                 Role      `json:"role"`
	Text                 string    `json:"text"`
	Timestamp            time.Time `json:"timestamp"`
	AudioDurationSeconds float64   `json:"audio_duration_seconds,omitempty"`
}

type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    map[string]any `json:"result,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type UsageStats struct {
	InputTokens          int64   `json:"input_tokens"`
	OutputTokens         int64   `json:"output_tokens"`
	InputCharacters      int64   `json:"input_characters"`
	OutputCharacters     int64   `json:"output_characters"`
	TranscriptionSeconds float64 `json:"transcription_seconds"`
	TTSCharacters        int64   `json:"tts_characters"`
	LLMCalls             int64   `json:"llm_calls"`
	LLMLatencyMS         int64   `json:"llm_latency_ms"`
}

// Add returns the sum of two usage stats. Deltas are always folded in through
// here so every counter stays monotonically non-decreasing.
func (u UsageStats) Add(delta UsageStats) UsageStats {
	return UsageStats{
		InputTokens:          u.InputTokens + delta.InputTokens,
		OutputTokens:         u.OutputTokens + delta.OutputTokens,
		InputCharacters:      u.InputCharacters + delta.InputCharacters,
		OutputCharacters:     u.OutputCharacters + delta.OutputCharacters,
		TranscriptionSeconds: u.TranscriptionSeconds + delta.TranscriptionSeconds,
		TTSCharacters:        u.TTSCharacters + delta.TTSCharacters,
		LLMCalls:             u.LLMCalls + delta.LLMCalls,
		LLMLatencyMS:         u.LLMLatencyMS + delta.LLMLatencyMS,
	}
}

type CostStats struct {
	LLMInputCost      float64 `json:"llm_input_cost"`
	LLMOutputCost     float64 `json:"llm_output_cost"`
	TranscriptionCost float64 `json:"transcription_cost"`
	TTSCost           float64 `json:"tts_cost"`
	TotalCost         float64 `json:"total_cost"`
}

type Call struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	ModelName    string     `json:"model_name"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Messages     []Message  `json:"messages"`
	ToolCalls    []ToolCall `json:"tool_calls"`
	Summary      string     `json:"summary,omitempty"`
	Usage        UsageStats `json:"usage"`
	Cost         CostStats  `json:"cost"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Transition moves the call status forward. Terminal states reject every
// further transition; re-entering the current terminal state is a no-op so
// double termination stays idempotent.
func (c *Call) Transition(next Status) error {
	if c.Status == next {
		return nil
	}
	if c.Status.Terminal() {
		return fmt.Errorf("call %s is already %s", c.ID, c.Status)
	}
	switch next {
	case StatusActive:
		if c.Status != StatusPending {
			return fmt.Errorf("call %s cannot go %s -> %s", c.ID, c.Status, next)
		}
	case StatusCompleted, StatusError:
	default:
		return fmt.Errorf("call %s cannot go %s -> %s", c.ID, c.Status, next)
	}
	c.Status = next
	return nil
}

func (c *Call) AppendMessage(m Message) {
	c.Messages = append(c.Messages, m)
}

func (c *Call) AppendToolCall(tc ToolCall) {
	c.ToolCalls = append(c.ToolCalls, tc)
}
