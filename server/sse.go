package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Desarso/chatstream/sessions"
)

// GinSSEWriter relays stream events as server-sent events over a gin
// response. Each event is one `data:` frame carrying the JSON-encoded
// StreamEvent.
type GinSSEWriter struct {
	ctx     *gin.Context
	flusher http.Flusher
}

// NewGinSSEWriter sets the SSE headers and wraps the response writer.
func NewGinSSEWriter(c *gin.Context) *GinSSEWriter {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, _ := c.Writer.(http.Flusher)
	return &GinSSEWriter{ctx: c, flusher: flusher}
}

func (w *GinSSEWriter) WriteEvent(event sessions.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(w.ctx.Writer, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write SSE frame: %w", err)
	}
	return nil
}

func (w *GinSSEWriter) Flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}
