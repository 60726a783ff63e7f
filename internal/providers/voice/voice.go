package voice

import "context"

type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventMessage     EventType = "message"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventError       EventType = "error"
)

const (
	TranscriptPartial = "partial"
	TranscriptFinal   = "final"
)

// Event is one callback delivered by the voice engine. Which fields are set
// depends on Type; message events carry transcript fields, call-end may carry
// a recording URL, error events carry the raw payload.
type Event struct {
	Type EventType `json:"type"`

	MessageType    string `json:"message_type,omitempty"` // "transcript"
	TranscriptType string `json:"transcript_type,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	Role           string `json:"role,omitempty"` // "user" | "assistant" | "system"

	RecordingURL string `json:"recording_url,omitempty"`

	ErrorPayload string `json:"error,omitempty"`
}

type Handler func(Event)

// Engine is the voice-call collaborator: two imperative calls plus an event
// stream. Its transport and audio pipeline are opaque to callers. Events are
// delivered in emission order, one at a time.
type Engine interface {
	Connect(ctx context.Context, target string, variables map[string]string, h Handler) error
	Disconnect() error
}
