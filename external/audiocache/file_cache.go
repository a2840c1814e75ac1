package audiocache

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/foxseedlab/madoguchin/internal/audiocache"
)

const (
	greetingConfigFile = "greeting.json"
	acknowledgmentsDir = "acknowledgments"
)

type acknowledgmentEntry struct {
	text string
	file string
}

var defaultAcknowledgments = []acknowledgmentEntry{
	{text: "Hmm...", file: "hmm.mp3"},
	{text: "Let me think...", file: "let_me_think.mp3"},
	{text: "Okay...", file: "okay.mp3"},
	{text: "Interesting...", file: "interesting.mp3"},
	{text: "I see...", file: "i_see.mp3"},
	{text: "Alright...", file: "alright.mp3"},
	{text: "Got it...", file: "got_it.mp3"},
}

type greetingConfig struct {
	Text string `json:"text"`
	File string `json:"file"`
}

// FileCache serves precomputed greeting and acknowledgment audio from a
// local directory with an in-memory byte cache on top.
type FileCache struct {
	dir             string
	acknowledgments []acknowledgmentEntry
	pick            func(n int) int

	mu    sync.Mutex
	bytes map[string][]byte
}

func NewFileCache(dir string) *FileCache {
	c := &FileCache{
		dir:             dir,
		acknowledgments: defaultAcknowledgments,
		pick:            rand.Intn,
		bytes:           make(map[string][]byte),
	}
	if err := os.MkdirAll(filepath.Join(dir, acknowledgmentsDir), 0o755); err != nil {
		slog.Warn("failed to create audio cache directory", "dir", dir, "error", err)
	}
	return c
}

func (c *FileCache) Greeting() (audiocache.Greeting, bool) {
	configPath := filepath.Join(c.dir, greetingConfigFile)
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return audiocache.Greeting{}, false
	}
	var cfg greetingConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("greeting config is invalid", "path", configPath, "error", err)
		return audiocache.Greeting{}, false
	}
	audio, err := c.loadCached(filepath.Join(c.dir, cfg.File))
	if err != nil {
		slog.Warn("greeting audio file missing", "file", cfg.File, "error", err)
		return audiocache.Greeting{}, false
	}
	return audiocache.Greeting{Text: cfg.Text, Audio: audio}, true
}

func (c *FileCache) RandomAcknowledgment() audiocache.Acknowledgment {
	entry := c.acknowledgments[c.pick(len(c.acknowledgments))]
	out := audiocache.Acknowledgment{Text: entry.text}

	audio, err := c.loadCached(filepath.Join(c.dir, acknowledgmentsDir, entry.file))
	if err != nil {
		slog.Debug("acknowledgment audio not cached yet", "file", entry.file)
		return out
	}
	out.Audio = audio
	return out
}

func (c *FileCache) SaveAcknowledgment(text string, audio []byte) {
	for _, entry := range c.acknowledgments {
		if !strings.EqualFold(entry.text, text) {
			continue
		}
		path := filepath.Join(c.dir, acknowledgmentsDir, entry.file)
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			slog.Error("failed to save acknowledgment audio", "file", entry.file, "error", err)
			return
		}
		c.mu.Lock()
		c.bytes[path] = audio
		c.mu.Unlock()
		slog.Info("saved acknowledgment audio", "file", entry.file, "bytes", len(audio))
		return
	}
}

func (c *FileCache) loadCached(path string) ([]byte, error) {
	c.mu.Lock()
	cached, ok := c.bytes[path]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.bytes[path] = data
	c.mu.Unlock()
	return data, nil
}
