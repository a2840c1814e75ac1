package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/madoguchin/internal/audiocache"
	"github.com/foxseedlab/madoguchin/internal/call"
	"github.com/foxseedlab/madoguchin/internal/config"
	"github.com/foxseedlab/madoguchin/internal/reasoner"
	"github.com/foxseedlab/madoguchin/internal/repository"
	"github.com/foxseedlab/madoguchin/internal/synthesizer"
	"github.com/foxseedlab/madoguchin/internal/tools"
	"github.com/foxseedlab/madoguchin/internal/transcriber"
	"github.com/foxseedlab/madoguchin/internal/webhook"
	"github.com/google/uuid"
)

const (
	settingsLoadTimeout = 5 * time.Second
	persistTimeout      = 10 * time.Second
	closingReplyTimeout = 15 * time.Second
	compactionTimeout   = 30 * time.Second
	acknowledgmentPause = time.Second
)

// Stop reasons recorded when a live call is torn down.
const (
	stopReasonClientEnded  = "client sent end_call"
	stopReasonDisconnected = "client disconnected"
	stopReasonIdleTimeout  = "inactivity timeout"
	stopReasonServerClosed = "server shutting down"
	stopReasonFatalError   = "fatal session error"
)

type liveCall struct {
	mu           sync.Mutex
	c            *call.Call
	playback     *playbackController
	memory       *memoryManager
	settings     call.Settings
	lastActivity time.Time
	turnCancel   context.CancelFunc
	finalized    bool
}

func (lc *liveCall) touch(now time.Time) {
	lc.mu.Lock()
	lc.lastActivity = now
	lc.mu.Unlock()
}

// Manager orchestrates every live call: one concurrently-scheduled turn
// goroutine per call, a shared idle watchdog, and the persistence and
// webhook checkpoints around them.
type Manager struct {
	cfg         *config.Config
	repo        repository.Repository
	transcriber transcriber.Transcriber
	reasoner    reasoner.Reasoner
	synthesizer synthesizer.Synthesizer
	registry    *tools.Registry
	audioCache  audiocache.Cache
	webhook     webhook.Sender

	now      func() time.Time
	ackPause time.Duration

	mu    sync.Mutex
	calls map[string]*liveCall
}

func NewManager(
	cfg *config.Config,
	repo repository.Repository,
	stt transcriber.Transcriber,
	llm reasoner.Reasoner,
	tts synthesizer.Synthesizer,
	registry *tools.Registry,
	cache audiocache.Cache,
	wh webhook.Sender,
) *Manager {
	return &Manager{
		cfg:         cfg,
		repo:        repo,
		transcriber: stt,
		reasoner:    llm,
		synthesizer: tts,
		registry:    registry,
		audioCache:  cache,
		webhook:     wh,
		now:         time.Now,
		ackPause:    acknowledgmentPause,
		calls:       make(map[string]*liveCall),
	}
}

// StartCall creates a new pending call record and returns it. The caller
// connects to the call's WebSocket endpoint afterwards.
func (m *Manager) StartCall(ctx context.Context) (*call.Call, error) {
	settings, err := m.repo.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	created, err := m.repo.CreateCall(ctx, repository.CreateCallInput{
		ID:        uuid.NewString(),
		ModelName: settings.ModelName,
		StartedAt: m.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	slog.Info("call created", "call_id", created.ID, "model", settings.ModelName)
	return created, nil
}

// Attach binds a transport to a previously created call and emits the
// greeting. Frames for the call must flow through HandleFrame afterwards.
func (m *Manager) Attach(ctx context.Context, callID string, transport Transport) error {
	c, err := m.repo.GetCall(ctx, callID)
	if err != nil {
		return fmt.Errorf("load call %s: %w", callID, err)
	}
	if c == nil {
		return fmt.Errorf("call %s not found", callID)
	}
	if c.Status.Terminal() {
		return fmt.Errorf("call %s is already %s", callID, c.Status)
	}

	settings, err := m.repo.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	c.ModelName = settings.ModelName

	lc := &liveCall{
		c:            c,
		playback:     newPlaybackController(transport),
		memory:       newMemoryManager(m.cfg.RecentMessageWindow, m.cfg.CompactionThresholdTokens),
		settings:     settings,
		lastActivity: m.now(),
	}
	for _, msg := range c.Messages {
		lc.memory.Observe(msg)
	}

	m.mu.Lock()
	if _, exists := m.calls[callID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("call %s already has a live transport", callID)
	}
	m.calls[callID] = lc
	m.mu.Unlock()

	slog.Info("call attached", "call_id", callID)
	m.emitGreeting(lc)
	return nil
}

// HandleFrame processes one inbound protocol frame for a live call.
func (m *Manager) HandleFrame(callID string, frame InboundFrame) {
	lc := m.lookup(callID)
	if lc == nil {
		slog.Warn("frame for unknown call", "call_id", callID, "type", frame.Type)
		return
	}

	switch frame.Type {
	case InboundTypeAudio:
		if frame.Data == "" {
			return
		}
		audio, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			slog.Warn("inbound audio is not valid base64", "call_id", callID, "error", err)
			m.sendError(lc, lc.playback.Current(), "audio payload is not valid base64")
			return
		}
		m.beginTurn(lc, audio)
	case InboundTypeEndCall:
		slog.Info("call ended by client", "call_id", callID)
		m.finalize(lc, call.StatusCompleted, "", stopReasonClientEnded, true)
	default:
		slog.Warn("unknown inbound frame type", "call_id", callID, "type", frame.Type)
	}
}

// HandleDisconnect tears the call down after the caller's transport went
// away. A hang-up is a normal completion, not an error.
func (m *Manager) HandleDisconnect(callID string) {
	lc := m.lookup(callID)
	if lc == nil {
		return
	}
	slog.Info("client disconnected", "call_id", callID)
	m.finalize(lc, call.StatusCompleted, "", stopReasonDisconnected, true)
}

// beginTurn accepts a new caller utterance: the previous turn's playback is
// superseded and its context canceled, then the new turn runs in its own
// goroutine.
func (m *Manager) beginTurn(lc *liveCall, audio []byte) {
	lc.mu.Lock()
	if lc.finalized || lc.c.Status.Terminal() {
		lc.mu.Unlock()
		return
	}
	token := lc.playback.Interrupt()
	if lc.turnCancel != nil {
		lc.turnCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.turnCancel = cancel
	lc.lastActivity = m.now()
	lc.mu.Unlock()

	go m.runTurn(ctx, lc, token, audio)
}

func (m *Manager) lookup(callID string) *liveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[callID]
}

// RunWatchdog sweeps the live calls on a fixed interval and force-terminates
// any call whose last activity is older than the configured idle timeout.
// Blocks until ctx is done.
func (m *Manager) RunWatchdog(ctx context.Context) {
	interval := time.Duration(m.cfg.WatchdogIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("idle watchdog started", "interval_sec", m.cfg.WatchdogIntervalSec, "timeout_sec", m.cfg.IdleTimeoutSec)
	for {
		select {
		case <-ctx.Done():
			slog.Info("idle watchdog stopped")
			return
		case <-ticker.C:
			m.sweepIdle(m.now())
		}
	}
}

func (m *Manager) sweepIdle(now time.Time) {
	timeout := time.Duration(m.cfg.IdleTimeoutSec) * time.Second

	m.mu.Lock()
	stale := make([]*liveCall, 0)
	for _, lc := range m.calls {
		lc.mu.Lock()
		idle := now.Sub(lc.lastActivity) > timeout
		lc.mu.Unlock()
		if idle {
			stale = append(stale, lc)
		}
	}
	m.mu.Unlock()

	for _, lc := range stale {
		slog.Info("terminating idle call", "call_id", lc.c.ID)
		// Idle termination is silent to the caller: no closing summary
		// generation, the connection just closes.
		m.finalize(lc, call.StatusCompleted, "", stopReasonIdleTimeout, false)
	}
}

// Shutdown terminates every live call, flushing each to storage.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := make([]*liveCall, 0, len(m.calls))
	for _, lc := range m.calls {
		live = append(live, lc)
	}
	m.mu.Unlock()

	for _, lc := range live {
		m.finalize(lc, call.StatusCompleted, "", stopReasonServerClosed, false)
	}
}

// Fail moves a call to the error state after an unrecoverable failure.
func (m *Manager) Fail(callID string, cause error) {
	lc := m.lookup(callID)
	if lc == nil {
		return
	}
	msg := "internal error"
	if cause != nil {
		msg = cause.Error()
	}
	m.finalize(lc, call.StatusError, msg, stopReasonFatalError, false)
}

// finalize is the single teardown path. It is idempotent: a second call for
// the same live call is a no-op, so a watchdog sweep racing a client
// end_call never double-writes EndedAt.
func (m *Manager) finalize(lc *liveCall, status call.Status, errorMessage, reason string, generateClosing bool) {
	lc.mu.Lock()
	if lc.finalized {
		lc.mu.Unlock()
		return
	}
	lc.finalized = true
	if lc.turnCancel != nil {
		lc.turnCancel()
		lc.turnCancel = nil
	}
	callID := lc.c.ID
	lc.mu.Unlock()

	m.mu.Lock()
	delete(m.calls, callID)
	m.mu.Unlock()

	slog.Info("finalizing call", "call_id", callID, "status", status, "reason", reason)

	if generateClosing {
		m.generateClosing(lc)
	}

	lc.mu.Lock()
	if err := lc.c.Transition(status); err != nil {
		slog.Warn("status transition rejected during finalize", "call_id", callID, "error", err)
	}
	if lc.c.EndedAt == nil {
		endedAt := m.now()
		lc.c.EndedAt = &endedAt
	}
	if errorMessage != "" {
		lc.c.ErrorMessage = errorMessage
	}
	snapshot := *lc.c
	transport := lc.playback.transport
	lc.mu.Unlock()

	m.persistFinal(&snapshot)
	m.notifyCompleted(&snapshot)

	if err := transport.Close(); err != nil {
		slog.Debug("transport close failed", "call_id", callID, "error", err)
	}
}

// generateClosing asks the model for a closing summary and a short title.
// Best-effort: the call completes normally even when both fail.
func (m *Manager) generateClosing(lc *liveCall) {
	lc.mu.Lock()
	messages := make([]call.Message, len(lc.c.Messages))
	copy(messages, lc.c.Messages)
	settings := lc.settings
	callID := lc.c.ID
	lc.mu.Unlock()

	if len(messages) < 2 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), closingReplyTimeout)
	defer cancel()

	summary, sErr := m.complete(ctx, settings, buildClosingSummaryPrompt(messages))
	title, tErr := m.complete(ctx, settings, buildCallTitlePrompt(messages))
	if sErr != nil {
		slog.Error("closing summary generation failed", "call_id", callID, "error", sErr)
	}
	if tErr != nil {
		slog.Error("call title generation failed", "call_id", callID, "error", tErr)
	}

	lc.mu.Lock()
	if summary != "" {
		lc.c.Summary = summary
	}
	if title != "" {
		lc.c.Title = strings.Trim(title, `"'`)
	} else if lc.c.Title == "" || lc.c.Title == "New Call" {
		lc.c.Title = titleFallbackText
	}
	lc.mu.Unlock()
}

// complete runs a single plain-text reasoning call (no tools) and returns
// the trimmed reply.
func (m *Manager) complete(ctx context.Context, settings call.Settings, prompt string) (string, error) {
	reply, err := m.reasoner.GenerateReply(ctx, reasoner.Request{
		Model:       settings.ModelName,
		Temperature: settings.Temperature,
		MaxTokens:   m.cfg.MaxReplyTokens,
		Messages:    []reasoner.Message{{Role: reasoner.RoleUser, Text: prompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Text), nil
}

// persistFinal flushes the terminal snapshot. Losing the final record means
// losing the whole call, so one retry is attempted before giving up.
func (m *Manager) persistFinal(snapshot *call.Call) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	err := m.repo.SaveCall(ctx, snapshot)
	if err == nil {
		return
	}
	slog.Error("final persist failed, retrying once", "call_id", snapshot.ID, "error", err)
	if err := m.repo.SaveCall(ctx, snapshot); err != nil {
		slog.Error("final persist failed after retry", "call_id", snapshot.ID, "error", err)
	}
}

// persistCheckpoint saves a turn-level snapshot. Fire-and-forget: the
// repository's own retry policy covers transient storage errors.
func (m *Manager) persistCheckpoint(lc *liveCall) {
	lc.mu.Lock()
	snapshot := *lc.c
	lc.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := m.repo.SaveCall(ctx, &snapshot); err != nil {
			slog.Error("turn checkpoint persist failed", "call_id", snapshot.ID, "error", err)
		}
	}()
}

func (m *Manager) notifyCompleted(snapshot *call.Call) {
	payload := webhook.CallCompletedPayload{
		SchemaVersion: webhook.CallCompletedSchemaVersion,
		CallID:        snapshot.ID,
		Title:         snapshot.Title,
		Status:        string(snapshot.Status),
		StartAt:       snapshot.StartedAt.Format(time.RFC3339),
		Summary:       snapshot.Summary,
		MessageCount:  len(snapshot.Messages),
		ToolCallCount: len(snapshot.ToolCalls),
		Usage:         snapshot.Usage,
		Cost:          snapshot.Cost,
		ErrorMessage:  snapshot.ErrorMessage,
	}
	if snapshot.EndedAt != nil {
		payload.EndAt = snapshot.EndedAt.Format(time.RFC3339)
		duration := int64(snapshot.EndedAt.Sub(snapshot.StartedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
		payload.DurationSeconds = duration
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.webhook.SendCallCompleted(ctx, payload); err != nil {
		slog.Error("completed-call webhook failed", "call_id", snapshot.ID, "error", err)
	}
}

func (m *Manager) sendError(lc *liveCall, token uint64, message string) {
	err := lc.playback.Send(token, Frame{Type: FrameTypeError, Message: message})
	if err != nil && err != ErrStalePlayback {
		slog.Warn("failed to send error frame", "call_id", lc.c.ID, "error", err)
	}
}

// loadTurnSettings snapshots the live settings for one turn. Falls back to
// the last known snapshot when the store is unreachable so an in-flight call
// keeps working.
func (m *Manager) loadTurnSettings(lc *liveCall) call.Settings {
	ctx, cancel := context.WithTimeout(context.Background(), settingsLoadTimeout)
	defer cancel()

	settings, err := m.repo.LoadSettings(ctx)
	if err != nil {
		lc.mu.Lock()
		settings = lc.settings
		lc.mu.Unlock()
		slog.Warn("settings reload failed, using previous snapshot", "call_id", lc.c.ID, "error", err)
		return settings
	}
	lc.mu.Lock()
	lc.settings = settings
	lc.mu.Unlock()
	return settings
}
