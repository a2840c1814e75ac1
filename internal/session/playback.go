package session

import (
	"errors"
	"sync"
)

// ErrStalePlayback signals that a frame belonged to a playback token that a
// newer turn has superseded. Callers treat it as a benign cancellation.
var ErrStalePlayback = errors.New("playback token superseded")

type playbackState int

const (
	playbackIdle playbackState = iota
	playbackAcknowledgment
	playbackAnswer
)

// playbackController owns the outbound path for one call. Every emission is
// tagged with the token it was generated for and the token is re-checked
// under the lock immediately before the transport write, so audio generated
// for an interrupted turn is dropped at send time. Holding the lock across
// the write also keeps at most one emission in flight per call.
type playbackController struct {
	transport Transport

	mu    sync.Mutex
	token uint64
	state playbackState
}

func newPlaybackController(transport Transport) *playbackController {
	return &playbackController{transport: transport}
}

// Interrupt starts a new playback generation: the token is advanced, any
// frame still tagged with an older token becomes undeliverable, and the
// state machine drops back to idle. Returns the new token.
func (p *playbackController) Interrupt() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token++
	p.state = playbackIdle
	return p.token
}

func (p *playbackController) Current() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Send delivers a frame for the given token, or drops it with
// ErrStalePlayback when the token has been superseded.
func (p *playbackController) Send(token uint64, frame Frame) error {
	return p.send(token, frame, playbackIdle, false)
}

// SendAcknowledgment and SendAnswer deliver turn audio and advance the
// per-turn state machine: idle -> acknowledgment -> answer -> idle.
func (p *playbackController) SendAcknowledgment(token uint64, frame Frame) error {
	return p.send(token, frame, playbackAcknowledgment, true)
}

func (p *playbackController) SendAnswer(token uint64, frame Frame) error {
	return p.send(token, frame, playbackAnswer, true)
}

func (p *playbackController) send(token uint64, frame Frame, next playbackState, isAudio bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.token {
		return ErrStalePlayback
	}
	if isAudio {
		p.state = next
	}
	err := p.transport.Send(frame)
	if isAudio && next == playbackAnswer {
		p.state = playbackIdle
	}
	return err
}

func (p *playbackController) State() playbackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
