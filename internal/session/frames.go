package session

// Inbound frame types (caller -> server).
const (
	InboundTypeAudio   = "audio"
	InboundTypeEndCall = "end_call"
)

// Outbound frame types (server -> caller).
const (
	FrameTypeTranscription  = "transcription"
	FrameTypeAcknowledgment = "acknowledgment"
	FrameTypeResponse       = "response"
	FrameTypeAudio          = "audio"
	FrameTypeError          = "error"
)

// InboundFrame is one decoded caller message. Data carries base64 audio for
// audio frames.
type InboundFrame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// Frame is one server-to-caller protocol message.
type Frame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Data    string `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Transport delivers outbound frames to the caller. Implementations must be
// safe for use from a single sender at a time; the playback controller
// serializes all sends for a call.
type Transport interface {
	Send(frame Frame) error
	Close() error
}
