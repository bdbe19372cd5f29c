package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsFrame is one server-to-client message on the query websocket.
type wsFrame struct {
	Type  string `json:"type"` // "stage" or "result"
	Stage string `json:"stage,omitempty"`
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleQueryWebSocket accepts {query} messages and, for each, streams a
// "stage" frame as every pipeline stage starts, followed by one "result"
// frame with the final response.
func (s *Server) handleQueryWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	// Serialize writes: the stage observer and the result write race
	// otherwise.
	var mu sync.Mutex
	send := func(f wsFrame) error {
		mu.Lock()
		defer mu.Unlock()
		ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return ws.WriteJSON(f)
	}

	for {
		var req QueryRequest
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			slog.Error("WebSocket read error", "error", err)
			return
		}
		if req.Query == "" {
			if err := send(wsFrame{Type: "result", Error: "query must not be empty"}); err != nil {
				return
			}
			continue
		}

		start := time.Now()
		st := s.engine.RunObserved(r.Context(), req.Query, func(stage string) {
			if err := send(wsFrame{Type: "stage", Stage: stage}); err != nil {
				slog.Debug("Dropping stage frame", "stage", stage, "error", err)
			}
		})
		s.record(r.Context(), req.Query, st, time.Since(start))

		resp := st.Response()
		if err := send(wsFrame{Type: "result", Text: resp.Text, Image: resp.Image, Error: resp.Error}); err != nil {
			return
		}
	}
}
