package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/orchestrator"
)

const maxFrameBytes = 4 << 20

// Decoder reads frames written by Encoder. Event data is left as
// json.RawMessage for orchestrator.Fold.
type Decoder struct {
	sc *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	return &Decoder{sc: sc}
}

type wireEvent struct {
	Type      orchestrator.EventType `json:"type"`
	Node      models.Stage           `json:"node"`
	Data      json.RawMessage        `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Next returns the next event, or io.EOF at the end of the stream. Comment
// lines and fields other than data are skipped.
func (d *Decoder) Next() (orchestrator.Event, error) {
	var data []string
	for d.sc.Scan() {
		line := d.sc.Text()
		switch {
		case line == "":
			if len(data) == 0 {
				continue
			}
			return decodeFrame(strings.Join(data, "\n"))
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := d.sc.Err(); err != nil {
		return orchestrator.Event{}, err
	}
	if len(data) > 0 {
		return decodeFrame(strings.Join(data, "\n"))
	}
	return orchestrator.Event{}, io.EOF
}

// ReadAll decodes every remaining event.
func (d *Decoder) ReadAll() ([]orchestrator.Event, error) {
	var out []orchestrator.Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func decodeFrame(payload string) (orchestrator.Event, error) {
	var w wireEvent
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return orchestrator.Event{}, fmt.Errorf("decode frame: %w", err)
	}
	return orchestrator.Event{Type: w.Type, Node: w.Node, Data: w.Data, Timestamp: w.Timestamp}, nil
}
