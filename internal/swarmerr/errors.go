// Package swarmerr defines the supervisor's error taxonomy (spec.md §7).
//
// Sentinel errors are categorized by functional area, following the
// convention of shared/errors.go: one exported var per distinct failure
// mode, wrapped at the call site with fmt.Errorf("...: %w", ...) so callers
// can still errors.Is against the sentinel.
package swarmerr

import "errors"

// Transport errors — the agent connection itself is gone or unusable.
// A Handle records it as its close cause when its reader or writer fails;
// the operations outstanding on that Handle fail with ErrResponse.
var ErrTransport = errors.New("transport: connection lost or unusable")

// Request indicates the driver could not enqueue an outgoing frame because
// the handle's writer task has already exited.
var ErrRequest = errors.New("request: could not enqueue, writer task gone")

// Response indicates the peer closed the connection without sending a
// terminal frame for an in-flight operation. Callers may retry at their
// discretion (spec.md §7).
var ErrResponse = errors.New("response: peer closed without terminal frame")

// Decode indicates agent stdout was not in the form an operation expected;
// LinkStrength returns it when no signal line can be parsed.
var ErrDecode = errors.New("decode: output was not valid text")

// Execute indicates the remote process reported a non-zero exit.
var ErrExecute = errors.New("execute: remote command exited non-zero")

// BadRequest indicates a robot's state machine rejected a command as
// inadmissible in its current state. The robot's state is left unchanged.
var ErrBadRequest = errors.New("bad request: command not admissible in current state")

// ProbeTimeout distinguishes a dial that ran out its bounded T_radio/T_agent
// clock (spec.md §4.3) from one the peer actively refused; discovery logs
// it on requeue rather than returning it, since a probe never has a caller
// to report to.
var ErrProbeTimeout = errors.New("discovery: probe timed out")

// Arena/robot lifecycle conditions.
var (
	ErrRobotNotFound       = errors.New("arena: robot not found")
	ErrRobotAlreadyPresent = errors.New("arena: robot already present in fleet")
	ErrExperimentNotIdle   = errors.New("arena: experiment is not idle")
	ErrInvalidRobotKind    = errors.New("arena: invalid robot kind")
)
