// Package wire implements the supervisor's agent-facing transport: a
// length-prefixed, JSON-framed codec carrying correlator-tagged request and
// response payloads over a single TCP connection.
//
// Grounded on tcp_server/tcp_message.go's accept-loop-plus-per-connection-
// goroutine shape and on network/fernbedienung/mod.rs's
// LengthDelimitedCodec + SymmetricallyFramed JSON framing (the authoritative
// protocol this supervisor speaks).
package wire

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Envelope is the unit exchanged in both directions: a 128-bit correlator
// plus a tagged-union payload. The correlator is optional on the response
// side — a nil ID marks an advisory frame (spec.md §6.1), logged by the
// receive loop and never matched to a response sink.
type Envelope struct {
	ID      *uuid.UUID      `json:"id,omitempty"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request payload kinds (spec.md §6.1).
const (
	KindUpload           = "upload"
	KindProcessRun       = "process_run"
	KindProcessTerminate = "process_terminate"
	KindProcessStdin     = "process_stdin"
	KindStreamStart      = "stream_start"
	KindStreamStop       = "stream_stop"
)

// Response payload kinds (spec.md §6.1).
const (
	KindOk               = "ok"
	KindError            = "error"
	KindProcessTerminated = "process_terminated"
	KindProcessStdout    = "process_stdout"
	KindProcessStderr    = "process_stderr"
	KindStreamFrame      = "stream_frame"
)

type UploadPayload struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Bytes    []byte `json:"bytes"`
}

type RunPayload struct {
	Target     string   `json:"target"`
	WorkingDir string   `json:"working_dir"`
	Args       []string `json:"args"`
}

type StdinPayload struct {
	Bytes []byte `json:"bytes"`
}

type StreamStartPayload struct {
	Kind string `json:"stream_kind"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type TerminatedPayload struct {
	ExitOK bool `json:"exit_ok"`
}

type OutputPayload struct {
	Bytes []byte `json:"bytes"`
}

type FramePayload struct {
	Bytes []byte `json:"bytes"`
}

// NewRequest builds an Envelope for a newly minted correlator, JSON-encoding
// payload into the envelope's Payload field.
func NewRequest(id uuid.UUID, kind string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{ID: &id, Kind: kind, Payload: raw}, nil
}

func NewAdvisoryResponse(kind string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: kind, Payload: raw}, nil
}

func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}
