package audiocache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGreetingMissingConfig(t *testing.T) {
	c := NewFileCache(t.TempDir())
	if _, ok := c.Greeting(); ok {
		t.Fatal("expected no greeting without config")
	}
}

func TestGreetingLoadsTextAndAudio(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greeting.json"), []byte(`{"text":"Hello there!","file":"greeting.mp3"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "greeting.mp3"), []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewFileCache(dir)
	g, ok := c.Greeting()
	if !ok {
		t.Fatal("expected greeting")
	}
	if g.Text != "Hello there!" {
		t.Fatalf("text = %q", g.Text)
	}
	if string(g.Audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", g.Audio)
	}
}

func TestGreetingMissingAudioFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greeting.json"), []byte(`{"text":"Hi","file":"greeting.mp3"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewFileCache(dir)
	if _, ok := c.Greeting(); ok {
		t.Fatal("expected no greeting when audio file is missing")
	}
}

func TestRandomAcknowledgmentWithoutAudio(t *testing.T) {
	c := NewFileCache(t.TempDir())
	c.pick = func(int) int { return 0 }

	ack := c.RandomAcknowledgment()
	if ack.Text != "Hmm..." {
		t.Fatalf("text = %q", ack.Text)
	}
	if ack.Audio != nil {
		t.Fatal("expected nil audio before any save")
	}
}

func TestSaveAcknowledgmentRoundTrip(t *testing.T) {
	c := NewFileCache(t.TempDir())
	c.pick = func(int) int { return 0 }

	c.SaveAcknowledgment("hmm...", []byte("cached-take"))

	ack := c.RandomAcknowledgment()
	if string(ack.Audio) != "cached-take" {
		t.Fatalf("audio = %q", ack.Audio)
	}
}

func TestSaveAcknowledgmentUnknownTextIgnored(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCache(dir)
	c.SaveAcknowledgment("Totally novel phrase", []byte("x"))

	entries, err := os.ReadDir(filepath.Join(dir, "acknowledgments"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files written, got %d", len(entries))
	}
}
