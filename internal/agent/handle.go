package agent

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"swarmctl/internal/datastructures"
	"swarmctl/internal/logging"
	"swarmctl/internal/swarmerr"
	"swarmctl/internal/wire"

	"github.com/google/uuid"
)

// outboxSize bounds how many unsent frames a Handle will buffer before Send
// starts blocking the caller; generous enough that a burst of stdin chunks
// or concurrent uploads never stalls on a momentarily busy writer goroutine.
const outboxSize = 64

// Dial opens a new agent connection and starts its reader/writer tasks.
// Grounded on fernbedienung's Device::new, which spawns exactly one
// supervisor task per TCP connection to own the split read/write halves.
func Dial(ctx context.Context, addr string) (*Handle, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("agent: dial %s: %w", addr, err)
	}
	return newHandle(conn), nil
}

func newHandle(conn net.Conn) *Handle {
	h := &Handle{
		conn:        conn,
		writer:      wire.NewWriter(conn),
		reader:      wire.NewReader(conn),
		outbox:      make(chan wire.Envelope, outboxSize),
		correlators: datastructures.NewSafeMap[uuid.UUID, *datastructures.SafeQueue[wire.Envelope]](),
		closed:      make(chan struct{}),
	}
	go h.writeLoop()
	go h.readLoop()
	return h
}

// Close tears down the connection. Every operation blocked reading a
// response unblocks and fails with swarmerr.ErrResponse, since its response
// channel closes without a terminal frame.
func (h *Handle) Close() error {
	h.closeWith(nil)
	return h.closeErr
}

func (h *Handle) closeWith(cause error) {
	h.closeOnce.Do(func() {
		h.closeMu.Lock()
		if cause != nil {
			h.closeErr = cause
		}
		h.closeMu.Unlock()
		close(h.closed)
		h.conn.Close()
	})
}

func (h *Handle) writeLoop() {
	for {
		select {
		case env := <-h.outbox:
			if err := h.writer.WriteEnvelope(env); err != nil {
				logging.Errorf(fmt.Errorf("agent: write: %w", err))
				h.closeWith(swarmerr.ErrTransport)
				return
			}
		case <-h.closed:
			return
		}
	}
}

// readLoop demultiplexes incoming frames by correlator. A frame with no
// correlator, or one matching no registered sink, is advisory — logged and
// discarded rather than treated as fatal (spec.md §4.1).
func (h *Handle) readLoop() {
	for {
		env, err := h.reader.ReadEnvelope()
		if err != nil {
			if err != io.EOF {
				logging.Errorf(fmt.Errorf("agent: read: %w", err))
			}
			h.closeWith(swarmerr.ErrTransport)
			return
		}
		if env.ID == nil {
			logging.Debugf("agent: advisory frame kind=%s", env.Kind)
			continue
		}
		sink, ok := h.correlators.Get(*env.ID)
		if !ok {
			logging.Debugf("agent: frame for unknown correlator %s discarded", *env.ID)
			continue
		}
		sink.Enqueue(env)
	}
}

func (h *Handle) registerCorrelator(id uuid.UUID) *datastructures.SafeQueue[wire.Envelope] {
	sink := datastructures.NewSafeQueue[wire.Envelope](true)
	h.correlators.Set(id, sink)
	return sink
}

// releaseCorrelator removes id's entry from the table and closes its sink,
// unblocking any goroutine still parked in a Read call for it.
func (h *Handle) releaseCorrelator(id uuid.UUID) {
	if sink, ok := h.correlators.Pop(id); ok {
		sink.Close()
	}
}

// send enqueues an outgoing frame, failing with swarmerr.ErrRequest if the
// writer task has already exited (spec.md §7: "Request — could not
// enqueue").
func (h *Handle) send(env wire.Envelope) error {
	select {
	case h.outbox <- env:
		return nil
	case <-h.closed:
		return swarmerr.ErrRequest
	}
}

// recvLoop adapts a SafeQueue's blocking Read into a channel so it can be
// selected on alongside context cancellation and cooperative-cancel
// signals. The returned channel is closed once the sink is closed (either
// by releaseCorrelator or by the handle itself shutting down).
func recvLoop(sink *datastructures.SafeQueue[wire.Envelope], closed <-chan struct{}) <-chan wire.Envelope {
	out := make(chan wire.Envelope)
	go func() {
		defer close(out)
		for {
			env, ok := sink.Read(true, closed)
			if !ok {
				return
			}
			select {
			case out <- env:
			case <-closed:
				return
			}
		}
	}()
	return out
}

// DialWithTimeout is exposed so discovery's probe engine can share the same
// 500ms bound spec.md §4.3 mandates for each link attempt.
func DialWithTimeout(addr string, timeout time.Duration) (*Handle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Dial(ctx, addr)
}
