package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/madoguchin/internal/config"
)

type envConfig struct {
	Env        string `env:"ENV" envDefault:"production"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8000"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY,required"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	DefaultModel      string `env:"DEFAULT_MODEL" envDefault:"anthropic/claude-3.5-sonnet"`
	MaxReplyTokens    int    `env:"MAX_REPLY_TOKENS" envDefault:"512"`

	ElevenLabsAPIKey  string `env:"ELEVENLABS_API_KEY,required"`
	ElevenLabsVoiceID string `env:"ELEVENLABS_VOICE_ID" envDefault:"DODLEQrClDo8wCz460ld"`
	ElevenLabsModelID string `env:"ELEVENLABS_MODEL_ID" envDefault:"eleven_turbo_v2"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	TranscribeLanguage         string `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`

	AudioDir                string `env:"AUDIO_DIR" envDefault:"data/audio"`
	CompletedCallWebhookURL string `env:"COMPLETED_CALL_WEBHOOK_URL"`

	IdleTimeoutSec      int `env:"IDLE_TIMEOUT_SEC" envDefault:"180"`
	WatchdogIntervalSec int `env:"WATCHDOG_INTERVAL_SEC" envDefault:"30"`

	RecentMessageWindow       int `env:"RECENT_MESSAGE_WINDOW" envDefault:"8"`
	CompactionThresholdTokens int `env:"COMPACTION_THRESHOLD_TOKENS" envDefault:"1200"`
	MaxToolDepth              int `env:"MAX_TOOL_DEPTH" envDefault:"5"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		DatabaseURL:                raw.DatabaseURL,
		OpenRouterAPIKey:           raw.OpenRouterAPIKey,
		OpenRouterBaseURL:          raw.OpenRouterBaseURL,
		DefaultModel:               raw.DefaultModel,
		MaxReplyTokens:             raw.MaxReplyTokens,
		ElevenLabsAPIKey:           raw.ElevenLabsAPIKey,
		ElevenLabsVoiceID:          raw.ElevenLabsVoiceID,
		ElevenLabsModelID:          raw.ElevenLabsModelID,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		TranscribeLanguage:         raw.TranscribeLanguage,
		AudioDir:                   raw.AudioDir,
		CompletedCallWebhookURL:    raw.CompletedCallWebhookURL,
		IdleTimeoutSec:             raw.IdleTimeoutSec,
		WatchdogIntervalSec:        raw.WatchdogIntervalSec,
		RecentMessageWindow:        raw.RecentMessageWindow,
		CompactionThresholdTokens:  raw.CompactionThresholdTokens,
		MaxToolDepth:               raw.MaxToolDepth,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
