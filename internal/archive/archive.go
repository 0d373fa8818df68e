// Package archive keeps finished runs so they can be fetched by id after the
// stream has closed.
package archive

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/state"
)

var ErrNotFound = errors.New("archive: run not found")

// Record is a finished run.
type Record struct {
	RunID      string         `json:"runId"`
	SessionID  string         `json:"sessionId,omitempty"`
	Outcome    models.Outcome `json:"outcome"`
	State      *state.State   `json:"state"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// Store persists run records.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, runID string) (Record, error)
	Close() error
}

// Memory keeps the most recent runs in process. The oldest record is
// dropped once limit is reached; limit <= 0 means unbounded.
type Memory struct {
	mu    sync.RWMutex
	limit int
	order []string
	runs  map[string]Record
}

func NewMemory(limit int) *Memory {
	return &Memory{limit: limit, runs: map[string]Record{}}
}

func (m *Memory) Save(_ context.Context, rec Record) error {
	if rec.State != nil {
		rec.State = rec.State.Snapshot()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[rec.RunID]; !ok {
		m.order = append(m.order, rec.RunID)
	}
	m.runs[rec.RunID] = rec
	for m.limit > 0 && len(m.order) > m.limit {
		delete(m.runs, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *Memory) Get(_ context.Context, runID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.runs[runID]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.State != nil {
		rec.State = rec.State.Snapshot()
	}
	return rec, nil
}

func (m *Memory) Close() error { return nil }
