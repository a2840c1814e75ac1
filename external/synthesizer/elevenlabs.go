package synthesizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/foxseedlab/madoguchin/internal/synthesizer"
)

const (
	elevenLabsBaseURL        = "https://api.elevenlabs.io"
	requestTimeout           = 30 * time.Second
	optimizeStreamingLatency = "3"
)

type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	ModelID string
}

type ElevenLabsSynthesizer struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	client  *http.Client
}

func NewElevenLabsSynthesizer(cfg ElevenLabsConfig) synthesizer.Synthesizer {
	return &ElevenLabsSynthesizer{
		apiKey:  cfg.APIKey,
		voiceID: cfg.VoiceID,
		modelID: cfg.ModelID,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) (synthesizer.Audio, error) {
	payload, err := json.Marshal(speechRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return synthesizer.Audio{}, &synthesizer.Error{Err: fmt.Errorf("encode request: %w", err)}
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?optimize_streaming_latency=%s", s.baseURL, s.voiceID, optimizeStreamingLatency)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return synthesizer.Audio{}, &synthesizer.Error{Err: err}
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return synthesizer.Audio{}, &synthesizer.Error{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return synthesizer.Audio{}, &synthesizer.Error{Err: fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, string(detail))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return synthesizer.Audio{}, &synthesizer.Error{Err: fmt.Errorf("read audio: %w", err)}
	}
	if len(data) == 0 {
		return synthesizer.Audio{}, &synthesizer.Error{Err: fmt.Errorf("elevenlabs returned empty audio")}
	}

	return synthesizer.Audio{
		Data:           data,
		CharacterCount: len(text),
	}, nil
}
