package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/state"
)

// EventType names an event on the run stream. Consumers ignore types they
// do not know.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResearch EventType = "research"
	EventAnalysis EventType = "analysis"
	EventDraft    EventType = "draft"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// Event is one message on the run stream. Node is empty for complete and
// for fatal failures.
type Event struct {
	Type      EventType    `json:"type"`
	Node      models.Stage `json:"node,omitempty"`
	Data      any          `json:"data"`
	Timestamp int64        `json:"timestamp"`
}

// Emitter receives events in emission order. A non-nil error stops the run.
type Emitter func(Event) error

// Discard is an Emitter that drops every event.
func Discard(Event) error { return nil }

// Collect returns an Emitter appending to *out.
func Collect(out *[]Event) Emitter {
	return func(ev Event) error {
		*out = append(*out, ev)
		return nil
	}
}

func newEvent(t EventType, node models.Stage, data any, at time.Time) Event {
	return Event{Type: t, Node: node, Data: data, Timestamp: at.UnixMilli()}
}

// FailureEvent is the fatal error event sent when the runner itself fails.
func FailureEvent(msg string, at time.Time) Event {
	return newEvent(EventError, "", msg, at)
}

// Fold applies one event to s. Data may be the typed payload the runner
// emitted or raw JSON read back from the wire.
func Fold(s *state.State, ev Event) error {
	switch ev.Type {
	case EventProgress:
		var p models.Progress
		if err := decodeData(ev.Data, &p); err != nil {
			return err
		}
		state.Apply(s, state.Update{Stage: ev.Node, Progress: p})
	case EventResearch:
		var r models.ResearchResult
		if err := decodeData(ev.Data, &r); err != nil {
			return err
		}
		state.Apply(s, state.Update{Stage: ev.Node, Research: &r})
	case EventAnalysis:
		var a models.AnalysisResult
		if err := decodeData(ev.Data, &a); err != nil {
			return err
		}
		state.Apply(s, state.Update{Stage: ev.Node, Analysis: &a})
	case EventDraft:
		var d models.Draft
		if err := decodeData(ev.Data, &d); err != nil {
			return err
		}
		state.Apply(s, state.Update{Stage: ev.Node, Draft: &d})
	case EventError:
		var msgs []string
		if err := decodeData(ev.Data, &msgs); err != nil {
			var msg string
			if err := decodeData(ev.Data, &msg); err != nil {
				return err
			}
			msgs = []string{msg}
		}
		state.Apply(s, state.Update{Stage: ev.Node, Errors: msgs})
	}
	return nil
}

// Replay folds events in order into a fresh state seeded from in.
func Replay(in models.Input, events []Event) (*state.State, error) {
	s := state.New(in)
	for i, ev := range events {
		if err := Fold(s, ev); err != nil {
			return nil, fmt.Errorf("replay event %d (%s): %w", i, ev.Type, err)
		}
	}
	return s, nil
}

func decodeData(data, out any) error {
	raw, ok := data.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = b
	}
	return json.Unmarshal(raw, out)
}
