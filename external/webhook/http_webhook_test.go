package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/madoguchin/internal/call"
	"github.com/foxseedlab/madoguchin/internal/webhook"
)

func TestSendCallCompleted_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendCallCompleted(context.Background(), webhook.CallCompletedPayload{CallID: "c1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendCallCompleted_Success(t *testing.T) {
	var got webhook.CallCompletedPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read body: %v", err)
		}
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	payload := webhook.CallCompletedPayload{
		SchemaVersion:   webhook.CallCompletedSchemaVersion,
		CallID:          "call-1",
		Title:           "Late delivery inquiry",
		Status:          "completed",
		DurationSeconds: 42,
		Usage:           call.UsageStats{LLMCalls: 3},
	}
	sender := NewHTTPSender(server.URL)
	if err := sender.SendCallCompleted(context.Background(), payload); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.CallID != "call-1" || got.Title != "Late delivery inquiry" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Usage.LLMCalls != 3 {
		t.Fatalf("unexpected usage: %+v", got.Usage)
	}
}

func TestSendCallCompleted_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendCallCompleted(context.Background(), webhook.CallCompletedPayload{CallID: "c1"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
