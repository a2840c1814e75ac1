package synthesizer

import (
	"context"
	"errors"
	"fmt"
)

// Error marks a speech-synthesis provider failure. Synthesis failures
// degrade the turn to text-only; they are never fatal.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func IsSynthesisError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

type Audio struct {
	Data           []byte
	CharacterCount int
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}
