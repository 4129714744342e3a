package sessions

import (
	"fmt"
	"sync"
)

// Event kinds carried on the data stream. Each event reaches the client
// tagged with its kind, in the exact order it was written.
const (
	EventUserMessageID     = "user-message-id"
	EventID                = "id"
	EventTitle             = "title"
	EventKind              = "kind"
	EventClear             = "clear"
	EventTextDelta         = "text-delta"
	EventCodeDelta         = "code-delta"
	EventFinish            = "finish"
	EventSuggestion        = "suggestion"
	EventMessageAnnotation = "message-annotation"
)

// StreamEvent is one tagged event on the data stream.
type StreamEvent struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// EventWriter is the transport a DataStream flushes events to. Implementations
// exist for SSE (server), WebSocket (sessions) and an in-memory buffer (tests).
type EventWriter interface {
	WriteEvent(event StreamEvent) error
	Flush()
}

// DataStream is the single-writer, append-only, ordered event channel opened
// for the duration of one chat turn. It only relays: tool-triggered
// sub-streams interleave with the top-level text stream in whatever order
// they are written. States are open -> (writes) -> closed; no event may be
// written after Close.
type DataStream struct {
	writer EventWriter

	mu     sync.Mutex
	closed bool
	count  int
}

// NewDataStream opens a stream over the given transport.
func NewDataStream(writer EventWriter) *DataStream {
	return &DataStream{writer: writer}
}

// Write appends one event to the stream and forwards it to the transport.
func (s *DataStream) Write(eventType string, content interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("write of %s event on closed stream", eventType)
	}

	if err := s.writer.WriteEvent(StreamEvent{Type: eventType, Content: content}); err != nil {
		return fmt.Errorf("failed to write %s event: %w", eventType, err)
	}
	s.writer.Flush()
	s.count++
	return nil
}

// Close seals the stream. Further writes fail. Closing twice is an error on
// the second call.
func (s *DataStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("stream already closed")
	}
	s.closed = true
	return nil
}

// Closed reports whether the stream has been sealed.
func (s *DataStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// EventCount returns the number of events written so far.
func (s *DataStream) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// BufferWriter is an in-memory EventWriter. Used by tests and by callers that
// want to inspect the event sequence a turn produced.
type BufferWriter struct {
	mu     sync.Mutex
	Events []StreamEvent
}

func (w *BufferWriter) WriteEvent(event StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Events = append(w.Events, event)
	return nil
}

func (w *BufferWriter) Flush() {}

// EventsOfType returns the events matching the given kind, in write order.
func (w *BufferWriter) EventsOfType(eventType string) []StreamEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []StreamEvent
	for _, e := range w.Events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
