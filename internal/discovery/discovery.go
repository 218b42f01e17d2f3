// Package discovery implements the probe engine (spec.md §4.3, component
// C): for each address pulled from the pool, race a radio-link dial
// against a bounded timeout, then an agent-link dial against a bounded
// timeout, emitting a classified device on success or re-queueing the
// address with a retry delay on silence.
//
// Grounded on network/mod.rs's probe/associate/new loop (the order and
// timeout structure of the two-dialer race comes directly from there) and
// on tcp_server/tcp_server.go's accept-loop shape, inverted: dial instead
// of accept. Bounded in-flight concurrency uses golang.org/x/sync/semaphore,
// a teacher-pack transitive dependency (pulled in via mongo-driver in the
// pack) promoted here to a direct, deliberate wire-in — this probe loop is
// exactly the bounded-worker-pool shape that package exists for.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"swarmctl/internal/agent"
	"swarmctl/internal/logging"
	"swarmctl/internal/pool"
	"swarmctl/internal/radio"
	"swarmctl/internal/swarmerr"
)

const (
	KindRadioLink = "radio_link"
	KindAgentLink = "agent_link"
)

// Device is a classified probe result handed to the arena.
type Device struct {
	Addr  string
	Kind  string
	Radio *radio.Handle
	Agent *agent.Handle
}

// Config holds the engine's tunables, all named directly after spec.md
// §4.3's symbols.
type Config struct {
	RadioPort   int
	AgentPort   int
	TRadio      time.Duration // T_radio, default 500ms
	TAgent      time.Duration // T_agent, default 500ms
	DRetry      time.Duration // D_retry, default 1s
	Concurrency int64         // max in-flight probes
}

func DefaultConfig() Config {
	return Config{
		RadioPort:   17654,
		AgentPort:   17653,
		TRadio:      500 * time.Millisecond,
		TAgent:      500 * time.Millisecond,
		DRetry:      time.Second,
		Concurrency: 16,
	}
}

// Engine pulls addresses from a pool and races the two link dialers
// against each, emitting classified devices onto Devices.
type Engine struct {
	cfg     Config
	pool    *pool.Pool
	sem     *semaphore.Weighted
	Devices chan Device
}

func New(p *pool.Pool, cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		pool:    p,
		sem:     semaphore.NewWeighted(cfg.Concurrency),
		Devices: make(chan Device, int(cfg.Concurrency)),
	}
}

// Run pulls addresses until ctx is cancelled, probing each within a
// semaphore-bounded goroutine. It returns once ctx is done and every
// in-flight probe has finished.
func (e *Engine) Run(ctx context.Context) error {
	end := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(end)
	}()

	for {
		addr, ok := e.pool.Take(end)
		if !ok {
			break
		}
		if err := e.sem.Acquire(ctx, 1); err != nil {
			e.pool.Release(addr)
			break
		}
		go func(addr string) {
			defer e.sem.Release(1)
			e.probe(ctx, addr)
		}(addr)
	}

	// Drain remaining capacity so Run doesn't return while probes are
	// still touching e.pool or e.Devices.
	_ = e.sem.Acquire(context.Background(), e.cfg.Concurrency)
	return ctx.Err()
}

// probe implements spec.md §4.3's algorithm step for one address: race the
// radio dialer first (an offline companion still answers TCP briefly after
// its radio is present, so radio-first avoids misclassifying it as dead),
// then the agent dialer, then requeue with the retry delay.
func (e *Engine) probe(ctx context.Context, addr string) {
	radioAddr := net.JoinHostPort(addr, fmt.Sprint(e.cfg.RadioPort))
	h, radioErr := radio.Connect(ctx, radioAddr, e.cfg.TRadio)
	if radioErr == nil {
		e.emit(ctx, Device{Addr: addr, Kind: KindRadioLink, Radio: h})
		return
	}

	agentAddr := net.JoinHostPort(addr, fmt.Sprint(e.cfg.AgentPort))
	ah, agentErr := agent.DialWithTimeout(agentAddr, e.cfg.TAgent)
	if agentErr == nil {
		e.emit(ctx, Device{Addr: addr, Kind: KindAgentLink, Agent: ah})
		return
	}

	logging.Debugf("discovery: %s silent (%s), requeueing after %s", addr, probeFailureReason(radioErr, agentErr), e.cfg.DRetry)
	time.AfterFunc(e.cfg.DRetry, func() {
		e.pool.Release(addr)
	})
}

// probeFailureReason distinguishes a bounded dial that ran out its T_radio/
// T_agent clock from one the peer actively refused, so the requeue log
// carries swarmerr.ErrProbeTimeout when that's actually why the address
// went silent this round.
func probeFailureReason(radioErr, agentErr error) error {
	var ne net.Error
	if errors.As(radioErr, &ne) && ne.Timeout() {
		return swarmerr.ErrProbeTimeout
	}
	if errors.As(agentErr, &ne) && ne.Timeout() {
		return swarmerr.ErrProbeTimeout
	}
	return agentErr
}

// emit hands a classified device to the single consumer. The send blocks
// rather than dropping on a full channel: by the time emit runs, the
// address has already left the pool (Take) and the probe's semaphore slot
// is about to be released, so a dropped device would vanish from every
// bucket spec.md §3's invariant counts (queued/in-probe/held-by-robot). The
// only acceptable way out of the blocking send is the engine shutting
// down, in which case the address and its handles are returned rather than
// leaked.
func (e *Engine) emit(ctx context.Context, d Device) {
	select {
	case e.Devices <- d:
	case <-ctx.Done():
		logging.Debugf("discovery: shutting down, releasing %s back to pool unclassified", d.Addr)
		if d.Radio != nil {
			d.Radio.Close()
		}
		if d.Agent != nil {
			d.Agent.Close()
		}
		e.pool.Release(d.Addr)
	}
}
