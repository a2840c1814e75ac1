package audiocache

// Greeting is the precomputed start-of-call message: text plus synthesized
// audio served with zero reasoning latency.
type Greeting struct {
	Text  string
	Audio []byte
}

// Acknowledgment is a short filler phrase played while the model is still
// thinking. Audio is nil when no cached take exists yet; the caller may
// synthesize one and hand it back through SaveAcknowledgment.
type Acknowledgment struct {
	Text  string
	Audio []byte
}

type Cache interface {
	Greeting() (Greeting, bool)
	RandomAcknowledgment() Acknowledgment
	SaveAcknowledgment(text string, audio []byte)
}
