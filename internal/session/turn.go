package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/madoguchin/internal/call"
	"github.com/foxseedlab/madoguchin/internal/reasoner"
)

// emitGreeting sends the very first outbound message of a call. The
// precomputed greeting is served with zero reasoning latency and contributes
// zero usage; only the canned fallback pays for synthesis.
func (m *Manager) emitGreeting(lc *liveCall) {
	token := lc.playback.Current()

	greeting, ok := m.audioCache.Greeting()
	text := greeting.Text
	audio := greeting.Audio
	if !ok {
		text = greetingFallbackText
		slog.Info("no precomputed greeting, using fallback text", "call_id", lc.c.ID)
	}

	msg := call.Message{Role: call.RoleAssistant, Text: text, Timestamp: m.now()}
	lc.mu.Lock()
	lc.c.AppendMessage(msg)
	lc.memory.Observe(msg)
	lc.lastActivity = m.now()
	lc.mu.Unlock()

	if err := lc.playback.Send(token, Frame{Type: FrameTypeResponse, Text: text}); err != nil {
		slog.Warn("failed to send greeting text", "call_id", lc.c.ID, "error", err)
		return
	}

	if !ok {
		synthesized, err := m.synthesizer.Synthesize(context.Background(), text)
		if err != nil {
			slog.Error("greeting synthesis failed", "call_id", lc.c.ID, "error", err)
			m.persistCheckpoint(lc)
			return
		}
		audio = synthesized.Data
		m.applyUsage(lc, call.UsageStats{TTSCharacters: int64(synthesized.CharacterCount)})
	}

	if len(audio) > 0 {
		frame := Frame{Type: FrameTypeAudio, Data: base64.StdEncoding.EncodeToString(audio)}
		if err := lc.playback.SendAnswer(token, frame); err != nil && err != ErrStalePlayback {
			slog.Warn("failed to send greeting audio", "call_id", lc.c.ID, "error", err)
		}
	}
	m.persistCheckpoint(lc)
}

// runTurn drives one utterance-to-reply cycle. ctx is canceled when a newer
// utterance supersedes this turn or the call is finalized.
func (m *Manager) runTurn(ctx context.Context, lc *liveCall, token uint64, audio []byte) {
	callID := lc.c.ID
	settings := m.loadTurnSettings(lc)

	result, err := m.transcriber.Transcribe(ctx, audio)
	if err != nil || strings.TrimSpace(result.Text) == "" {
		if ctx.Err() != nil {
			return
		}
		slog.Error("transcription failed", "call_id", callID, "error", err)
		m.sendError(lc, token, errorMessageTranscription)
		return
	}
	transcription := strings.TrimSpace(result.Text)

	if err := lc.playback.Send(token, Frame{Type: FrameTypeTranscription, Text: transcription}); err != nil {
		return
	}

	userMsg := call.Message{
		Role:                 call.RoleUser,
		Text:                 transcription,
		Timestamp:            m.now(),
		AudioDurationSeconds: result.AudioSeconds,
	}
	lc.mu.Lock()
	lc.c.AppendMessage(userMsg)
	lc.memory.Observe(userMsg)
	if lc.c.Status == call.StatusPending {
		if err := lc.c.Transition(call.StatusActive); err != nil {
			slog.Warn("activation rejected", "call_id", callID, "error", err)
		}
	}
	lc.lastActivity = m.now()
	lc.mu.Unlock()

	m.applyUsageWithPricing(lc, call.UsageStats{
		InputCharacters:      int64(len(transcription)),
		TranscriptionSeconds: result.AudioSeconds,
	}, settings.Pricing)

	ackText := m.emitAcknowledgment(ctx, lc, token)

	answer := m.reason(ctx, lc, token, settings, ackText)
	if answer == "" {
		return
	}

	assistantMsg := call.Message{Role: call.RoleAssistant, Text: answer, Timestamp: m.now()}
	lc.mu.Lock()
	lc.c.AppendMessage(assistantMsg)
	lc.memory.Observe(assistantMsg)
	lc.lastActivity = m.now()
	lc.mu.Unlock()

	if err := lc.playback.Send(token, Frame{Type: FrameTypeResponse, Text: answer}); err != nil {
		if err != ErrStalePlayback {
			slog.Warn("failed to send response frame", "call_id", callID, "error", err)
		}
		m.persistCheckpoint(lc)
		return
	}

	m.emitAnswerAudio(ctx, lc, token, settings, answer)

	lc.touch(m.now())
	m.persistCheckpoint(lc)
	m.maybeCompact(lc, settings)
}

// emitAcknowledgment plays a short filler while reasoning is in flight.
// Cached audio is served at zero cost; a fresh take is synthesized once and
// saved back to the cache. Returns the filler text so reasoning can account
// for what the caller already heard, or "" when nothing was played.
func (m *Manager) emitAcknowledgment(ctx context.Context, lc *liveCall, token uint64) string {
	ack := m.audioCache.RandomAcknowledgment()
	audio := ack.Audio

	// A short pause before the filler keeps the exchange from feeling
	// machine-gunned.
	if m.ackPause > 0 {
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(m.ackPause):
		}
	}

	if audio == nil {
		synthesized, err := m.synthesizer.Synthesize(ctx, ack.Text)
		if err != nil {
			slog.Warn("acknowledgment synthesis failed", "call_id", lc.c.ID, "error", err)
			return ""
		}
		audio = synthesized.Data
		m.applyUsage(lc, call.UsageStats{TTSCharacters: int64(synthesized.CharacterCount)})
		m.audioCache.SaveAcknowledgment(ack.Text, audio)
	}

	frame := Frame{
		Type: FrameTypeAcknowledgment,
		Text: ack.Text,
		Data: base64.StdEncoding.EncodeToString(audio),
	}
	if err := lc.playback.SendAcknowledgment(token, frame); err != nil {
		if err != ErrStalePlayback {
			slog.Warn("failed to send acknowledgment", "call_id", lc.c.ID, "error", err)
		}
		return ""
	}
	return ack.Text
}

// reason runs the tool-calling loop against the bounded conversation
// context and returns the final answer text. Returns "" when the turn was
// superseded or the provider failed outright (an error frame has been sent).
func (m *Manager) reason(ctx context.Context, lc *liveCall, token uint64, settings call.Settings, ackText string) string {
	lc.mu.Lock()
	memCtx := lc.memory.BuildContext()
	lc.mu.Unlock()

	messages := buildReasonerMessages(settings, memCtx, ackText)
	tools := m.registry.Definitions()

	for depth := 0; depth < m.cfg.MaxToolDepth; depth++ {
		reply, err := m.generate(ctx, lc, settings, messages, tools)
		if err != nil {
			if ctx.Err() != nil {
				return ""
			}
			slog.Error("reasoning failed", "call_id", lc.c.ID, "depth", depth, "error", err)
			m.sendError(lc, token, errorMessageReasoning)
			return ""
		}

		if len(reply.ToolRequests) == 0 {
			return strings.TrimSpace(reply.Text)
		}

		messages = append(messages, reasoner.Message{
			Role:         reasoner.RoleAssistant,
			Text:         reply.Text,
			ToolRequests: reply.ToolRequests,
		})
		for _, req := range reply.ToolRequests {
			record := call.ToolCall{
				Name:      req.Name,
				Arguments: req.Arguments,
				Timestamp: m.now(),
			}
			result := m.registry.Invoke(req.Name, req.Arguments)
			if result["status"] != "error" && result["status"] != "unsupported_tool" {
				record.Result = result
			}
			lc.mu.Lock()
			lc.c.AppendToolCall(record)
			lc.mu.Unlock()

			messages = append(messages, reasoner.Message{
				Role:       reasoner.RoleTool,
				Text:       renderToolResult(result),
				ToolCallID: req.ID,
			})
		}
	}

	// Depth limit reached: one last attempt with tools disabled so the
	// caller still gets an answer.
	slog.Warn("tool depth limit reached, falling back to plain reply", "call_id", lc.c.ID, "depth", m.cfg.MaxToolDepth)
	reply, err := m.generate(ctx, lc, settings, messages, nil)
	if err != nil || strings.TrimSpace(reply.Text) == "" {
		if ctx.Err() != nil {
			return ""
		}
		return replyFallbackText
	}
	return strings.TrimSpace(reply.Text)
}

// generate performs one reasoning invocation and folds its usage into the
// call. Token counts missing from the provider are estimated from character
// counts with the configured ratio.
func (m *Manager) generate(ctx context.Context, lc *liveCall, settings call.Settings, messages []reasoner.Message, tools []reasoner.ToolDefinition) (reasoner.Reply, error) {
	reply, err := m.reasoner.GenerateReply(ctx, reasoner.Request{
		Model:       settings.ModelName,
		Temperature: settings.Temperature,
		MaxTokens:   m.cfg.MaxReplyTokens,
		Messages:    messages,
		Tools:       tools,
	})
	if err != nil {
		return reasoner.Reply{}, err
	}

	inputTokens := reply.InputTokens
	if inputTokens == 0 {
		var chars int
		for _, msg := range messages {
			chars += len(msg.Text)
		}
		inputTokens = settings.Pricing.EstimateTokens(chars)
	}
	outputTokens := reply.OutputTokens
	if outputTokens == 0 {
		outputTokens = settings.Pricing.EstimateTokens(len(reply.Text))
	}

	m.applyUsageWithPricing(lc, call.UsageStats{
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		OutputCharacters: int64(len(reply.Text)),
		LLMCalls:         1,
		LLMLatencyMS:     reply.LatencyMS,
	}, settings.Pricing)
	return reply, nil
}

// emitAnswerAudio synthesizes the final answer. Failures degrade the turn to
// text-only; the response frame has already been delivered.
func (m *Manager) emitAnswerAudio(ctx context.Context, lc *liveCall, token uint64, settings call.Settings, answer string) {
	synthesized, err := m.synthesizer.Synthesize(ctx, answer)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("answer synthesis failed, delivering text only", "call_id", lc.c.ID, "error", err)
		}
		return
	}
	m.applyUsageWithPricing(lc, call.UsageStats{TTSCharacters: int64(synthesized.CharacterCount)}, settings.Pricing)

	frame := Frame{Type: FrameTypeAudio, Data: base64.StdEncoding.EncodeToString(synthesized.Data)}
	if err := lc.playback.SendAnswer(token, frame); err != nil && !errors.Is(err, ErrStalePlayback) {
		slog.Warn("failed to send answer audio", "call_id", lc.c.ID, "error", err)
	}
}

// maybeCompact runs history compaction when the working context outgrew the
// threshold. Runs strictly between turns, after the turn's frames are out.
func (m *Manager) maybeCompact(lc *liveCall, settings call.Settings) {
	lc.mu.Lock()
	needed := lc.memory.NeedsCompaction(settings.Pricing.EstimatedTokenLength)
	var dropped []call.Message
	var previousSummary string
	if needed {
		dropped, needed = lc.memory.CompactionBatch()
		previousSummary = lc.memory.summary
	}
	lc.mu.Unlock()
	if !needed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), compactionTimeout)
	defer cancel()

	summary, err := m.complete(ctx, settings, buildCompactionPrompt(previousSummary, dropped))
	if err != nil || summary == "" {
		slog.Error("compaction summarization failed", "call_id", lc.c.ID, "error", err)
		return
	}

	lc.mu.Lock()
	lc.memory.ApplyCompaction(summary, len(dropped))
	lc.c.Summary = summary
	lc.mu.Unlock()
	slog.Info("compacted conversation history", "call_id", lc.c.ID, "dropped_messages", len(dropped))
	m.persistCheckpoint(lc)
}

func (m *Manager) applyUsage(lc *liveCall, delta call.UsageStats) {
	lc.mu.Lock()
	pricing := lc.settings.Pricing
	lc.mu.Unlock()
	m.applyUsageWithPricing(lc, delta, pricing)
}

// applyUsageWithPricing folds a usage delta into the call and recomputes the
// whole cost breakdown from the updated totals. Cost is never incremented
// piecemeal, so recomputing from scratch always matches.
func (m *Manager) applyUsageWithPricing(lc *liveCall, delta call.UsageStats, pricing call.Pricing) {
	lc.mu.Lock()
	lc.c.Usage = lc.c.Usage.Add(delta)
	lc.c.Cost = call.ComputeCost(lc.c.Usage, pricing)
	lc.mu.Unlock()
}

// buildReasonerMessages assembles the provider conversation: system prompt,
// rolling summary, recent messages, and the filler the caller just heard.
func buildReasonerMessages(settings call.Settings, memCtx Context, ackText string) []reasoner.Message {
	messages := make([]reasoner.Message, 0, len(memCtx.Recent)+3)
	messages = append(messages, reasoner.Message{
		Role: reasoner.RoleSystem,
		Text: buildSystemPrompt(settings.InformationToGather),
	})
	if memCtx.Summary != "" {
		messages = append(messages, reasoner.Message{
			Role: reasoner.RoleSystem,
			Text: "Summary of the conversation so far:\n" + memCtx.Summary,
		})
	}
	for _, msg := range memCtx.Recent {
		role := reasoner.RoleUser
		if msg.Role == call.RoleAssistant {
			role = reasoner.RoleAssistant
		}
		messages = append(messages, reasoner.Message{Role: role, Text: msg.Text})
	}
	if ackText != "" {
		messages = append(messages, reasoner.Message{Role: reasoner.RoleAssistant, Text: ackText})
	}
	return messages
}

func renderToolResult(result map[string]any) string {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}
