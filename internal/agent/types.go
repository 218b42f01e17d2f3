// Package agent implements the framed multiplex client (spec.md §4.1): one
// TCP connection to a running agent process, carrying many concurrent
// operations (uploads, process runs, camera streams) multiplexed by
// correlator over a single pair of reader/writer goroutines.
//
// Grounded on network/fernbedienung/mod.rs's Device actor — a supervisor
// task owning the correlator table, request and response frames flowing
// through a length-delimited JSON codec (internal/wire) — and on
// tcp_server/tcp_server.go's accept-loop-plus-per-connection-goroutine
// structure for how the connection itself is owned and torn down.
package agent

import (
	"net"
	"sync"

	"swarmctl/internal/datastructures"
	"swarmctl/internal/wire"

	"github.com/google/uuid"
)

// Handle owns one TCP connection to an agent. Many operations may run
// concurrently on a single Handle; each gets its own correlator and
// response sink, registered for the operation's lifetime and released when
// it completes or is cancelled.
type Handle struct {
	conn   net.Conn
	writer *wire.Writer
	reader *wire.Reader

	outbox chan wire.Envelope

	correlators *datastructures.SafeMap[uuid.UUID, *datastructures.SafeQueue[wire.Envelope]]

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
	closeMu   sync.Mutex
}

// RunRequest describes a remote process invocation (spec.md §6.1's
// Process(Run) request kind). Stdin, Terminate, Stdout, and Stderr are all
// optional; a nil channel is simply never selected on.
type RunRequest struct {
	Target     string
	WorkingDir string
	Args       []string

	// Stdin, when non-nil, is drained and forwarded as StandardInput
	// frames until closed.
	Stdin <-chan []byte

	// Terminate, when it fires, causes the driver to send a Process
	// Terminate request and keep waiting for the terminal response
	// (spec.md §9: cancellation is cooperative).
	Terminate <-chan struct{}

	// Stdout and Stderr, when non-nil, receive each StandardOutput /
	// StandardError frame as it arrives. The caller owns these channels
	// and must keep draining them; Run never closes them.
	Stdout chan<- []byte
	Stderr chan<- []byte
}

// StreamRequest describes a remote camera/sensor stream (spec.md §6.1's
// Stream(Stream) request kind).
type StreamRequest struct {
	Kind string

	// Stop, when it fires, causes the driver to send a Stream Stop
	// request and keep delivering frames until the response channel
	// closes or the context is cancelled.
	Stop <-chan struct{}

	// Frames receives each Stream(Frame) payload as it arrives. Caller-
	// owned; Stream never closes it.
	Frames chan<- []byte
}
