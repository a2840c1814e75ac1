package tools

import (
	"testing"
	"time"
)

func TestDefaultRegistryDefinitions(t *testing.T) {
	r := DefaultRegistry()
	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 built-in tools, got %d", len(defs))
	}
	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
		if d.Parameters["type"] != "object" {
			t.Fatalf("tool %s parameters are not a JSON-schema object", d.Name)
		}
	}
	for _, want := range []string{"get_current_time", "log_information", "search_knowledge_base"} {
		if !names[want] {
			t.Fatalf("missing tool %s", want)
		}
	}
}

func TestInvokeCurrentTime(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	r := NewRegistry(&currentTimeTool{now: func() time.Time { return fixed }})

	result := r.Invoke("get_current_time", nil)
	if result["status"] != "success" {
		t.Fatalf("status = %v", result["status"])
	}
	if result["time"] != "2026-03-14 09:26:53" {
		t.Fatalf("time = %v", result["time"])
	}
}

func TestInvokeLogInformation(t *testing.T) {
	r := DefaultRegistry()
	result := r.Invoke("log_information", map[string]any{"category": "issue_type", "value": "late delivery"})
	if result["status"] != "logged" {
		t.Fatalf("status = %v", result["status"])
	}
	if result["category"] != "issue_type" || result["value"] != "late delivery" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestInvokeLogInformationMissingArgsIsData(t *testing.T) {
	r := DefaultRegistry()
	result := r.Invoke("log_information", map[string]any{"category": "issue_type"})
	if result["status"] != "error" {
		t.Fatalf("expected error result payload, got %v", result)
	}
	if result["tool"] != "log_information" {
		t.Fatalf("tool = %v", result["tool"])
	}
}

func TestInvokeUnknownToolYieldsTypedResult(t *testing.T) {
	r := DefaultRegistry()
	result := r.Invoke("open_pod_bay_doors", map[string]any{})
	if result["status"] != "unsupported_tool" {
		t.Fatalf("status = %v", result["status"])
	}
	if result["tool"] != "open_pod_bay_doors" {
		t.Fatalf("tool = %v", result["tool"])
	}
}

func TestInvokeKnowledgeBase(t *testing.T) {
	r := DefaultRegistry()
	result := r.Invoke("search_knowledge_base", map[string]any{"query": "refund policy"})
	if result["status"] != "success" {
		t.Fatalf("status = %v", result["status"])
	}
	if result["query"] != "refund policy" {
		t.Fatalf("query = %v", result["query"])
	}
}
