package reasoner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/madoguchin/internal/reasoner"
)

func newTestReasoner(baseURL string) reasoner.Reasoner {
	return NewOpenRouterReasoner(OpenRouterConfig{APIKey: "test-key", BaseURL: baseURL})
}

func TestGenerateReplyPlainAnswer(t *testing.T) {
	var captured completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Hello!"}},
			},
			"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 7},
		})
	}))
	defer server.Close()

	reply, err := newTestReasoner(server.URL).GenerateReply(context.Background(), reasoner.Request{
		Model:       "test-model",
		Temperature: 0.7,
		MaxTokens:   128,
		Messages: []reasoner.Message{
			{Role: reasoner.RoleSystem, Text: "be brief"},
			{Role: reasoner.RoleUser, Text: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("GenerateReply failed: %v", err)
	}
	if reply.Text != "Hello!" {
		t.Errorf("unexpected reply text: %q", reply.Text)
	}
	if reply.InputTokens != 42 || reply.OutputTokens != 7 {
		t.Errorf("usage not mapped: %+v", reply)
	}
	if len(reply.ToolRequests) != 0 {
		t.Errorf("unexpected tool requests: %+v", reply.ToolRequests)
	}

	if captured.Model != "test-model" || captured.MaxTokens != 128 {
		t.Errorf("request not encoded as sent: %+v", captured)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Errorf("messages not encoded: %+v", captured.Messages)
	}
}

func TestGenerateReplyDecodesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{
							"id":   "call_1",
							"type": "function",
							"function": map[string]any{
								"name":      "log_information",
								"arguments": `{"information_type":"order_number","value":"A-1"}`,
							},
						},
					},
				}},
			},
		})
	}))
	defer server.Close()

	reply, err := newTestReasoner(server.URL).GenerateReply(context.Background(), reasoner.Request{
		Model:    "test-model",
		Messages: []reasoner.Message{{Role: reasoner.RoleUser, Text: "log it"}},
		Tools:    []reasoner.ToolDefinition{{Name: "log_information", Parameters: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("GenerateReply failed: %v", err)
	}
	if len(reply.ToolRequests) != 1 {
		t.Fatalf("expected one tool request, got %d", len(reply.ToolRequests))
	}
	req := reply.ToolRequests[0]
	if req.ID != "call_1" || req.Name != "log_information" {
		t.Errorf("unexpected tool request: %+v", req)
	}
	if req.Arguments["value"] != "A-1" {
		t.Errorf("arguments not decoded: %+v", req.Arguments)
	}
}

func TestGenerateReplyEncodesToolResults(t *testing.T) {
	var captured completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "done"}},
			},
		})
	}))
	defer server.Close()

	_, err := newTestReasoner(server.URL).GenerateReply(context.Background(), reasoner.Request{
		Model: "test-model",
		Messages: []reasoner.Message{
			{Role: reasoner.RoleUser, Text: "log it"},
			{Role: reasoner.RoleAssistant, ToolRequests: []reasoner.ToolRequest{{
				ID: "call_1", Name: "log_information", Arguments: map[string]any{"value": "A-1"},
			}}},
			{Role: reasoner.RoleTool, Text: `{"status":"logged"}`, ToolCallID: "call_1"},
		},
	})
	if err != nil {
		t.Fatalf("GenerateReply failed: %v", err)
	}

	if len(captured.Messages) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(captured.Messages))
	}
	assistant := captured.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_1" {
		t.Errorf("assistant tool calls not encoded: %+v", assistant)
	}
	tool := captured.Messages[2]
	if tool.Role != "tool" || tool.ToolCallID != "call_1" {
		t.Errorf("tool result message not encoded: %+v", tool)
	}
}

func TestGenerateReplyWrapsProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	_, err := newTestReasoner(server.URL).GenerateReply(context.Background(), reasoner.Request{
		Model:    "test-model",
		Messages: []reasoner.Message{{Role: reasoner.RoleUser, Text: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !reasoner.IsReasoningError(err) {
		t.Errorf("error is not a typed reasoning error: %v", err)
	}
}
