package ui

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"swarmctl/internal/arena"
	"swarmctl/internal/datastructures"
	"swarmctl/internal/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server owns the chi router, the WebSocket upgrade endpoint, and every
// connected client's send queue.
type Server struct {
	arena   *arena.Arena
	addr    string
	router  *chi.Mux
	srv     *http.Server
	clients *datastructures.SafeMap[string, *client]
}

func New(a *arena.Arena, addr string) *Server {
	s := &Server{
		arena:   a,
		addr:    addr,
		router:  chi.NewRouter(),
		clients: datastructures.NewSafeMap[string, *client](),
	}
	s.router.Get("/ws", s.wsHandler)
	s.srv = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully — the same accept-then-select-on-ctx.Done shape
// http_server.Start uses.
func (s *Server) Start(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		logging.Debugf("ui: listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("ui: listen: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		return s.srv.Shutdown(context.Background())
	}
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Errorf(fmt.Errorf("ui: upgrade: %w", err))
		return
	}

	id := uuid.New().String()
	c := newClient(id, conn, s)
	s.clients.Set(id, c)
	c.start()
}
