package session

import "github.com/foxseedlab/madoguchin/internal/call"

// Context is the bounded view of the conversation handed to the reasoning
// step: the rolling summary plus the most recent messages.
type Context struct {
	Summary string
	Recent  []call.Message
}

// memoryManager bounds the reasoning context regardless of call length. The
// persisted transcript is untouched; only this working copy is compacted.
// All methods assume the caller holds the owning liveCall's lock.
type memoryManager struct {
	summary         string
	working         []call.Message
	window          int
	thresholdTokens int
}

func newMemoryManager(window, thresholdTokens int) *memoryManager {
	return &memoryManager{
		window:          window,
		thresholdTokens: thresholdTokens,
	}
}

func (m *memoryManager) Observe(msg call.Message) {
	m.working = append(m.working, msg)
}

// BuildContext returns a snapshot of the current summary and working tail.
// Side-effect-free and safe to call repeatedly.
func (m *memoryManager) BuildContext() Context {
	recent := make([]call.Message, len(m.working))
	copy(recent, m.working)
	return Context{Summary: m.summary, Recent: recent}
}

// NeedsCompaction reports whether the estimated token size of the working
// messages exceeds the threshold and there is something to drop.
func (m *memoryManager) NeedsCompaction(charsPerToken int) bool {
	if len(m.working) <= m.window {
		return false
	}
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	chars := len(m.summary)
	for _, msg := range m.working {
		chars += len(msg.Text)
	}
	return chars/charsPerToken > m.thresholdTokens
}

// CompactionBatch returns the messages that a compaction run would drop:
// everything except the most recent window. Running it twice without new
// messages in between yields nothing the second time.
func (m *memoryManager) CompactionBatch() ([]call.Message, bool) {
	if len(m.working) <= m.window {
		return nil, false
	}
	n := len(m.working) - m.window
	dropped := make([]call.Message, n)
	copy(dropped, m.working[:n])
	return dropped, true
}

// ApplyCompaction installs the merged summary and drops the summarized
// messages from the working context.
func (m *memoryManager) ApplyCompaction(newSummary string, droppedCount int) {
	if droppedCount <= 0 || droppedCount > len(m.working) {
		return
	}
	m.summary = newSummary
	remaining := make([]call.Message, len(m.working)-droppedCount)
	copy(remaining, m.working[droppedCount:])
	m.working = remaining
}
