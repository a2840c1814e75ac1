package config

import "fmt"

type Config struct {
	Env        string
	ListenAddr string

	DatabaseURL string

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	DefaultModel      string
	MaxReplyTokens    int

	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	TranscribeLanguage         string

	AudioDir                string
	CompletedCallWebhookURL string

	IdleTimeoutSec      int
	WatchdogIntervalSec int

	RecentMessageWindow       int
	CompactionThresholdTokens int
	MaxToolDepth              int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.MaxReplyTokens <= 0 {
		return fmt.Errorf("MAX_REPLY_TOKENS must be positive, got %d", c.MaxReplyTokens)
	}
	if c.IdleTimeoutSec <= 0 {
		return fmt.Errorf("IDLE_TIMEOUT_SEC must be positive, got %d", c.IdleTimeoutSec)
	}
	if c.WatchdogIntervalSec <= 0 {
		return fmt.Errorf("WATCHDOG_INTERVAL_SEC must be positive, got %d", c.WatchdogIntervalSec)
	}
	if c.RecentMessageWindow <= 0 {
		return fmt.Errorf("RECENT_MESSAGE_WINDOW must be positive, got %d", c.RecentMessageWindow)
	}
	if c.CompactionThresholdTokens <= 0 {
		return fmt.Errorf("COMPACTION_THRESHOLD_TOKENS must be positive, got %d", c.CompactionThresholdTokens)
	}
	if c.MaxToolDepth <= 0 {
		return fmt.Errorf("MAX_TOOL_DEPTH must be positive, got %d", c.MaxToolDepth)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "OPENROUTER_API_KEY", value: c.OpenRouterAPIKey},
		{name: "OPENROUTER_BASE_URL", value: c.OpenRouterBaseURL},
		{name: "DEFAULT_MODEL", value: c.DefaultModel},
		{name: "ELEVENLABS_API_KEY", value: c.ElevenLabsAPIKey},
		{name: "ELEVENLABS_VOICE_ID", value: c.ElevenLabsVoiceID},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
		{name: "AUDIO_DIR", value: c.AudioDir},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
