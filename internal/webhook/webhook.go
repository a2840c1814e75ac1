package webhook

import (
	"context"

	"github.com/foxseedlab/madoguchin/internal/call"
)

const CallCompletedSchemaVersion = 1

// CallCompletedPayload is the JSON document posted to the configured webhook
// when a call reaches a terminal state.
type CallCompletedPayload struct {
	SchemaVersion   int             `json:"schema_version"`
	CallID          string          `json:"call_id"`
	Title           string          `json:"title"`
	Status          string          `json:"status"`
	StartAt         string          `json:"start_at"`
	EndAt           string          `json:"end_at"`
	DurationSeconds int64           `json:"duration_seconds"`
	Summary         string          `json:"summary,omitempty"`
	MessageCount    int             `json:"message_count"`
	ToolCallCount   int             `json:"tool_call_count"`
	Usage           call.UsageStats `json:"usage"`
	Cost            call.CostStats  `json:"cost"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

type Sender interface {
	SendCallCompleted(ctx context.Context, payload CallCompletedPayload) error
}
