// Package ui implements the UI adapter (spec.md §4.7/§6.2, component G):
// a chi router serving one WebSocket endpoint that translates client
// messages into arena commands and sends tabular card-list snapshots back
// in reply. The process-level interrupt-to-shutdown wiring is in main.go.
//
// Grounded on http_server/http_server.go (chi router + graceful
// http.Server.Shutdown) and http_server/http_events/* (per-client
// struct + send-loop + hub map), adapted from Server-Sent-Events to the
// gorilla/websocket connection http_server/robot.go stubs an Upgrader
// for but never wires up — this package finishes that wiring. Message
// shapes are grounded on webui.rs's Request/Reply/Card/Content enums,
// translated from Rust tagged enums into Go tagged-JSON structs the way
// chi/gorilla code elsewhere in the pack does it.
package ui

import "swarmctl/internal/robot"

// Client→server message kinds, spec.md §6.2.
const (
	MsgUpdate       = "update"
	MsgCommand      = "command"
	MsgExperiment   = "experiment"
	MsgEmergency    = "emergency"
	MsgUploadBundle = "upload_bundle"
	MsgClearBundle  = "clear_bundle"
)

// ClientMessage is the single tagged-union shape every inbound WebSocket
// frame decodes into; only the fields relevant to Type are populated —
// the Go rendering of webui.rs's Request enum, since Go has no sum types.
type ClientMessage struct {
	Type        string `json:"type"`
	Tab         string `json:"tab,omitempty"`
	RobotID     string `json:"robot_id,omitempty"`
	Action      string `json:"action,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Base64Bytes string `json:"base64_bytes,omitempty"`
}

// Card is one row of the tabular snapshot spec.md §6.2 names —
// purely derived, carries no commands.
type Card struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	State string `json:"state"`
}

// Snapshot is the only server→client message shape.
type Snapshot struct {
	Type  string `json:"type"`
	Cards []Card `json:"cards"`
}

func cardsFromRecords(records []robot.Record) []Card {
	cards := make([]Card, 0, len(records))
	for _, r := range records {
		cards = append(cards, Card{ID: r.ID, Kind: string(r.Kind), State: string(r.State)})
	}
	return cards
}
