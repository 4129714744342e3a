package sessions

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketWriter relays stream events over a WebSocket connection. It is the
// alternate transport to SSE; the event sequence is identical.
type WebSocketWriter struct {
	Conn             *websocket.Conn
	Logger           *log.Logger
	StartTime        time.Time
	FirstTokenLogged bool
	mu               sync.Mutex
}

// NewWebSocketWriter wraps a connection for stream relaying.
func NewWebSocketWriter(conn *websocket.Conn, logger *log.Logger) *WebSocketWriter {
	if logger == nil {
		logger = log.Default()
	}
	return &WebSocketWriter{Conn: conn, Logger: logger, StartTime: time.Now()}
}

func (w *WebSocketWriter) WriteEvent(event StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Track time to first token
	if !w.FirstTokenLogged && !w.StartTime.IsZero() {
		w.Logger.Printf("Time to first event: %v", time.Since(w.StartTime))
		w.FirstTokenLogged = true
	}
	return w.Conn.WriteJSON(event)
}

// Flush is a no-op; WriteJSON sends a complete frame per event.
func (w *WebSocketWriter) Flush() {}

// WriteError sends an error frame to the client.
func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"error": message})
}

// WriteDone signals the end of the session to the client.
func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "done"})
}
