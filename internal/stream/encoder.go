// Package stream serializes run events as server-sent events.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/example/draft-agent/internal/orchestrator"
)

// Encoder writes one "data: <json>" frame per event and flushes after each.
type Encoder struct {
	mu    sync.Mutex
	w     io.Writer
	flush func() error
}

// NewEncoder writes frames to w without flushing.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, flush: func() error { return nil }}
}

// NewHTTPEncoder sets the event-stream headers on w, disables its write
// deadline and flushes after every frame. Headers are sent on the first
// frame, so callers may still add their own before that.
func NewHTTPEncoder(w http.ResponseWriter) *Encoder {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	return &Encoder{w: w, flush: rc.Flush}
}

// Emit writes ev as one frame. It satisfies orchestrator.Emitter.
func (e *Encoder) Emit(ev orchestrator.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", b); err != nil {
		return err
	}
	return e.flush()
}

// Comment writes an SSE comment line, used as a keep-alive.
func (e *Encoder) Comment(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintf(e.w, ": %s\n\n", text); err != nil {
		return err
	}
	return e.flush()
}
