package reasoner

import (
	"context"
	"errors"
	"fmt"
)

// Error marks a language-generation provider failure.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reasoning failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func IsReasoningError(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role Role
	Text string
	// ToolCallID links a tool-role message to the assistant tool request
	// it answers.
	ToolCallID string
	// ToolRequests carries the tool invocations an assistant message asked
	// for; it is replayed to the provider on the follow-up request.
	ToolRequests []ToolRequest
}

// ToolDefinition describes one callable tool in provider-neutral form.
// Parameters is a JSON-schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolRequest is the model asking for a tool invocation by name.
type ToolRequest struct {
	ID        string
	Name      string
	Arguments map[string]any
}

type Request struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []Message
	Tools       []ToolDefinition
}

type Reply struct {
	Text         string
	ToolRequests []ToolRequest
	InputTokens  int64
	OutputTokens int64
	LatencyMS    int64
}

type Reasoner interface {
	GenerateReply(ctx context.Context, req Request) (Reply, error)
}
