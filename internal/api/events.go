package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEventsWS streams aggregation events over a websocket. An optional
// student_id query parameter narrows the stream to one student.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		respondError(w, http.StatusServiceUnavailable, "events_unavailable", "event streaming is not enabled")
		return
	}

	studentFilter := r.URL.Query().Get("student_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("event stream connected", "remote_addr", r.RemoteAddr, "student_filter", studentFilter)

	// The request context carries the router's timeout and would cancel the
	// stream after a minute; the subscription lives on its own context and
	// ends when either pump stops.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, stop := s.bus.Subscribe(ctx)
	defer stop()

	var wg sync.WaitGroup

	// Read from bus -> send to WebSocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		// Closing the connection unblocks the read pump below
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if studentFilter != "" && ev.StudentID != studentFilter {
					continue
				}

				payload, err := json.Marshal(ev)
				if err != nil {
					slog.Debug("failed to marshal event", "error", err)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					slog.Debug("failed to send event", "error", err)
					return
				}
			}
		}
	}()

	// Read from WebSocket only to detect the client going away
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	wg.Wait()
	slog.Info("event stream disconnected", "remote_addr", r.RemoteAddr)
}
