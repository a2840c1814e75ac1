package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/madoguchin/internal/reasoner"
)

const requestTimeout = 30 * time.Second

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
}

// OpenRouterReasoner talks to the OpenRouter chat-completions API with
// function calling enabled.
type OpenRouterReasoner struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenRouterReasoner(cfg OpenRouterConfig) reasoner.Reasoner {
	return &OpenRouterReasoner{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []wireTool    `json:"tools,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *OpenRouterReasoner) GenerateReply(ctx context.Context, req reasoner.Request) (reasoner.Reply, error) {
	body := completionRequest{
		Model:       req.Model,
		Messages:    encodeMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Tools:       encodeTools(req.Tools),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return reasoner.Reply{}, &reasoner.Error{Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return reasoner.Reply{}, &reasoner.Error{Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return reasoner.Reply{}, &reasoner.Error{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	latencyMS := time.Since(start).Milliseconds()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return reasoner.Reply{}, &reasoner.Error{Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return reasoner.Reply{}, &reasoner.Error{Err: fmt.Errorf("openrouter returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))}
	}

	var decoded completionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return reasoner.Reply{}, &reasoner.Error{Err: fmt.Errorf("decode response: %w", err)}
	}
	if decoded.Error != nil {
		return reasoner.Reply{}, &reasoner.Error{Err: fmt.Errorf("openrouter error: %s", decoded.Error.Message)}
	}
	if len(decoded.Choices) == 0 {
		return reasoner.Reply{}, &reasoner.Error{Err: fmt.Errorf("openrouter returned no choices")}
	}

	msg := decoded.Choices[0].Message
	reply := reasoner.Reply{
		Text:         msg.Content,
		InputTokens:  decoded.Usage.PromptTokens,
		OutputTokens: decoded.Usage.CompletionTokens,
		LatencyMS:    latencyMS,
	}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			// Malformed arguments become an empty map; the tool layer
			// reports the missing fields back to the model as data.
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		reply.ToolRequests = append(reply.ToolRequests, reasoner.ToolRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return reply, nil
}

func encodeMessages(messages []reasoner.Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wm := wireMessage{
			Role:       string(m.Role),
			Content:    m.Text,
			ToolCallID: m.ToolCallID,
		}
		for _, tr := range m.ToolRequests {
			args, err := json.Marshal(tr.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   tr.ID,
				Type: "function",
				Function: wireFunction{
					Name:      tr.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, wm)
	}
	return out
}

func encodeTools(defs []reasoner.ToolDefinition) []wireTool {
	out := make([]wireTool, 0, len(defs))
	for _, d := range defs {
		var wt wireTool
		wt.Type = "function"
		wt.Function.Name = d.Name
		wt.Function.Description = d.Description
		wt.Function.Parameters = d.Parameters
		out = append(out, wt)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
