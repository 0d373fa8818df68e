package orchestrator

import (
	"context"
	"sync"
)

// Sessions keeps at most one live run per caller session.
type Sessions struct {
	mu   sync.Mutex
	runs map[string]*liveRun
}

type liveRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSessions() *Sessions {
	return &Sessions{runs: map[string]*liveRun{}}
}

// Begin registers a new run for sessionID, cancelling any run already live
// for it and waiting until that run has released. The returned release must
// be called when the run ends; it is safe to call more than once. An empty
// sessionID is never registered.
func (m *Sessions) Begin(ctx context.Context, sessionID string) (context.Context, func(), error) {
	if sessionID == "" {
		runCtx, cancel := context.WithCancel(ctx)
		return runCtx, cancel, nil
	}
	for {
		m.mu.Lock()
		prev, ok := m.runs[sessionID]
		if !ok {
			runCtx, cancel := context.WithCancel(ctx)
			run := &liveRun{cancel: cancel, done: make(chan struct{})}
			m.runs[sessionID] = run
			m.mu.Unlock()
			return runCtx, m.releaser(sessionID, run), nil
		}
		m.mu.Unlock()

		prev.cancel()
		select {
		case <-prev.done:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

func (m *Sessions) releaser(sessionID string, run *liveRun) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			run.cancel()
			m.mu.Lock()
			if m.runs[sessionID] == run {
				delete(m.runs, sessionID)
			}
			m.mu.Unlock()
			close(run.done)
		})
	}
}

// Cancel cancels the live run of sessionID and reports whether there was one.
func (m *Sessions) Cancel(sessionID string) bool {
	m.mu.Lock()
	run, ok := m.runs[sessionID]
	m.mu.Unlock()
	if ok {
		run.cancel()
	}
	return ok
}

// Active returns the number of registered runs.
func (m *Sessions) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}
