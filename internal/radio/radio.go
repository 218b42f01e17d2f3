// Package radio implements the radio link client (spec.md §4.2): a thin
// command/response client against the robot's radio coprocessor. Its wire
// protocol is out of scope for this supervisor — all it needs to expose is
// a bounded-timeout connect and a liveness probe, since discovery only
// needs to know that *something* answered on the radio link.
//
// Grounded on mqtt_server's simple connect/publish/subscribe dial shape for
// "thin client that owns one connection and a short liveness check", since
// the teacher never implements a radio-specific protocol itself.
package radio

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Handle owns one connection to a radio coprocessor.
type Handle struct {
	conn net.Conn
	addr string
}

// Connect performs a TCP handshake with addr within timeout, the bounded
// dial spec.md §4.3 calls T_radio.
func Connect(ctx context.Context, addr string, timeout time.Duration) (*Handle, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("radio: connect %s: %w", addr, err)
	}
	return &Handle{conn: conn, addr: addr}, nil
}

// IsAlive probes the link with a short read/write round trip, reporting
// whether the coprocessor still answers. Discovery does not call it: a
// successful Connect alone classifies an address as a radio link.
func (h *Handle) IsAlive(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(500 * time.Millisecond)
	}
	if err := h.conn.SetDeadline(deadline); err != nil {
		return false
	}
	defer h.conn.SetDeadline(time.Time{})

	if _, err := h.conn.Write([]byte("PING\n")); err != nil {
		return false
	}
	buf := make([]byte, 16)
	n, err := h.conn.Read(buf)
	return err == nil && n > 0
}

func (h *Handle) Close() error {
	return h.conn.Close()
}

func (h *Handle) Addr() string {
	return h.addr
}
