package session

import (
	"fmt"
	"strings"
	"testing"

	"github.com/foxseedlab/madoguchin/internal/call"
)

func seedMemory(m *memoryManager, n int) {
	for i := 0; i < n; i++ {
		role := call.RoleUser
		if i%2 == 1 {
			role = call.RoleAssistant
		}
		m.Observe(call.Message{Role: role, Text: fmt.Sprintf("message %d with some padding text", i)})
	}
}

func TestMemoryNeedsCompaction(t *testing.T) {
	m := newMemoryManager(4, 10)

	seedMemory(m, 4)
	if m.NeedsCompaction(4) {
		t.Error("no compaction needed while within the window")
	}

	seedMemory(m, 4)
	if !m.NeedsCompaction(4) {
		t.Error("expected compaction above window and threshold")
	}
}

func TestMemoryThresholdKeepsSmallConversations(t *testing.T) {
	m := newMemoryManager(2, 1000)
	seedMemory(m, 5)
	if m.NeedsCompaction(4) {
		t.Error("conversation below the token threshold must not compact")
	}
}

func TestMemorySummaryCountsTowardThreshold(t *testing.T) {
	m := newMemoryManager(2, 30)
	m.summary = strings.Repeat("summary ", 40)
	seedMemory(m, 3)
	if !m.NeedsCompaction(4) {
		t.Error("existing summary must count toward the threshold")
	}
}

func TestMemoryCompactionBatchAndApply(t *testing.T) {
	m := newMemoryManager(2, 10)
	seedMemory(m, 6)

	dropped, ok := m.CompactionBatch()
	if !ok || len(dropped) != 4 {
		t.Fatalf("expected 4 dropped messages, got %d (ok=%v)", len(dropped), ok)
	}

	m.ApplyCompaction("condensed", len(dropped))
	if m.summary != "condensed" {
		t.Errorf("summary not installed: %q", m.summary)
	}
	if len(m.working) != 2 {
		t.Errorf("working context not trimmed: %d messages", len(m.working))
	}

	// Without new messages a second pass has nothing to drop.
	if _, ok := m.CompactionBatch(); ok {
		t.Error("second compaction without new messages must be a no-op")
	}
}

func TestMemoryBuildContextIsACopy(t *testing.T) {
	m := newMemoryManager(4, 10)
	seedMemory(m, 3)

	ctx := m.BuildContext()
	if len(ctx.Recent) != 3 {
		t.Fatalf("expected 3 recent messages, got %d", len(ctx.Recent))
	}
	ctx.Recent[0].Text = "mutated"
	if m.working[0].Text == "mutated" {
		t.Error("BuildContext must return a copy of the working messages")
	}
}
