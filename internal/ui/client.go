package ui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"swarmctl/internal/arena"
	"swarmctl/internal/datastructures"
	"swarmctl/internal/logging"
	"swarmctl/internal/robot"
)

// client is one connected WebSocket peer: a read loop parsing inbound
// ClientMessage frames and a write loop draining a per-client send
// queue, grounded on http_server/http_events's EventsClient
// msgQueue-plus-ReadMsgQueue shape (there SSE, here WebSocket).
type client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   *datastructures.SafeQueue[[]byte]
	done   chan struct{}
}

func newClient(id string, conn *websocket.Conn, s *Server) *client {
	return &client{
		id:     id,
		conn:   conn,
		server: s,
		send:   datastructures.NewSafeQueue[[]byte](true),
		done:   make(chan struct{}),
	}
}

func (c *client) start() {
	go c.writeLoop()
	go c.readLoop()
}

func (c *client) cleanup() {
	select {
	case <-c.done:
		return
	default:
	}
	close(c.done)
	c.send.Close()
	c.conn.Close()
	c.server.clients.Delete(c.id)
}

func (c *client) writeLoop() {
	for {
		msg, ok := c.send.Read(true, c.done)
		if !ok {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logging.Errorf(fmt.Errorf("ui: write to client %s: %w", c.id, err))
			c.cleanup()
			return
		}
	}
}

func (c *client) readLoop() {
	defer c.cleanup()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Errorf(fmt.Errorf("ui: decode client message: %w", err))
			continue
		}
		c.handle(msg)
	}
}

func (c *client) handle(msg ClientMessage) {
	ctx := context.Background()
	switch msg.Type {
	case MsgUpdate:
		c.sendSnapshot(ctx)
	case MsgCommand:
		err := c.server.arena.Command(ctx, msg.RobotID, robot.Command{Action: robot.Action(msg.Action)})
		if err != nil {
			logging.Errorf(fmt.Errorf("ui: command %s/%s: %w", msg.RobotID, msg.Action, err))
		}
		c.sendSnapshot(ctx)
	case MsgExperiment:
		if err := c.server.arena.Experiment(ctx, arena.ExperimentAction(msg.Action)); err != nil {
			logging.Errorf(fmt.Errorf("ui: experiment %s: %w", msg.Action, err))
		}
		c.sendSnapshot(ctx)
	case MsgEmergency:
		if err := c.server.arena.Experiment(ctx, arena.ActionEmergency); err != nil {
			logging.Errorf(fmt.Errorf("ui: emergency: %w", err))
		}
		c.sendSnapshot(ctx)
	case MsgUploadBundle:
		c.handleUploadBundle(ctx, msg)
	case MsgClearBundle:
		c.handleClearBundle(ctx, msg)
	default:
		logging.Errorf(fmt.Errorf("ui: unknown message type %q", msg.Type))
	}
}

// handleUploadBundle routes an upload to every record when scope is
// "all", or to a single robot id otherwise — spec.md §6.2 names
// UploadBundle{scope, filename, base64_bytes} without defining scope's
// exact values; "all" vs a single robot id is this session's reading,
// decided as an Open Question and recorded in DESIGN.md.
func (c *client) handleUploadBundle(ctx context.Context, msg ClientMessage) {
	contents, err := base64.StdEncoding.DecodeString(msg.Base64Bytes)
	if err != nil {
		logging.Errorf(fmt.Errorf("ui: decode upload bundle: %w", err))
		return
	}
	bundle := robot.UploadBundle{Dir: "/tmp", Filename: msg.Filename, Contents: contents}

	if msg.Scope == "all" {
		recs, err := c.server.arena.Records(ctx)
		if err != nil {
			return
		}
		for _, r := range recs {
			c.server.arena.Command(ctx, r.ID, robot.Command{Action: robot.ActionUpload, Upload: bundle})
		}
		c.sendSnapshot(ctx)
		return
	}
	if err := c.server.arena.Command(ctx, msg.Scope, robot.Command{Action: robot.ActionUpload, Upload: bundle}); err != nil {
		logging.Errorf(fmt.Errorf("ui: upload to %s: %w", msg.Scope, err))
	}
	c.sendSnapshot(ctx)
}

func (c *client) handleClearBundle(ctx context.Context, msg ClientMessage) {
	if msg.Scope == "all" {
		recs, err := c.server.arena.Records(ctx)
		if err != nil {
			return
		}
		for _, r := range recs {
			c.server.arena.Command(ctx, r.ID, robot.Command{Action: robot.ActionClear, ClearDir: "/tmp"})
		}
		c.sendSnapshot(ctx)
		return
	}
	if err := c.server.arena.Command(ctx, msg.Scope, robot.Command{Action: robot.ActionClear, ClearDir: "/tmp"}); err != nil {
		logging.Errorf(fmt.Errorf("ui: clear on %s: %w", msg.Scope, err))
	}
	c.sendSnapshot(ctx)
}

func (c *client) sendSnapshot(ctx context.Context) {
	recs, err := c.server.arena.Records(ctx)
	if err != nil {
		return
	}
	snap := Snapshot{Type: "snapshot", Cards: cardsFromRecords(recs)}
	data, err := json.Marshal(snap)
	if err != nil {
		logging.Errorf(fmt.Errorf("ui: marshal snapshot: %w", err))
		return
	}
	c.send.Enqueue(data)
}
