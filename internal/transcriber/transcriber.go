package transcriber

import (
	"context"
	"errors"
	"fmt"
)

// Error marks a transcription provider failure. The session layer treats it
// as transient: the turn aborts but the call stays active.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func IsTranscriptionError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

type Result struct {
	Text string
	// AudioSeconds is the billed audio duration. Implementations fall back
	// to a raw-byte estimate when the provider does not report one.
	AudioSeconds float64
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (Result, error)
}
