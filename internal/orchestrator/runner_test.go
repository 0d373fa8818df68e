package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/draft-agent/internal/agents"
	"github.com/example/draft-agent/internal/catalog"
	"github.com/example/draft-agent/internal/fetch"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/providers/llm"
	"github.com/example/draft-agent/internal/state"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func input(company string) models.Input {
	return models.Input{
		Contact: models.Contact{ID: "c1", Email: "jane@acme.com", Name: "Jane Doe", Company: company},
		Signals: []models.Signal{{
			ID: "s1", Type: models.SignalFunding, Title: "Series B", Description: "$75M raised",
			Confidence: 90, DetectedAt: fixedNow,
		}},
	}
}

func pipeline(gen llm.Generator) []agents.Stage {
	cat := catalog.Default()
	opts := []agents.Option{agents.WithClock(fixedClock), agents.WithTimeout(5 * time.Second)}
	return []agents.Stage{
		agents.NewResearcher(fetch.NewCatalogFetcher(cat, 0), cat, opts...),
		agents.NewAnalyst(gen, cat, opts...),
		agents.NewCopywriter(gen, cat, opts...),
	}
}

func mockGenerator() llm.Generator {
	return llm.NewMockGenerator(agents.MockFixtures(catalog.Default()), 0)
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, llm.Schema, string, any) error {
	return errors.New("provider unavailable")
}

// blockingGenerator parks until the run context ends.
type blockingGenerator struct{ entered chan struct{} }

func (g blockingGenerator) Generate(ctx context.Context, _ llm.Schema, _ string, _ any) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

type funcStage struct {
	name models.Stage
	fn   func(ctx context.Context, s *state.State) state.Update
}

func (f funcStage) Name() models.Stage { return f.name }

func (f funcStage) Execute(ctx context.Context, s *state.State) state.Update { return f.fn(ctx, s) }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

type step struct {
	Type EventType
	Node models.Stage
}

func steps(events []Event) []step {
	out := make([]step, len(events))
	for i, ev := range events {
		out[i] = step{ev.Type, ev.Node}
	}
	return out
}

func TestRunEmitsEventsInStageOrder(t *testing.T) {
	var rec recorder
	r := NewRunner(pipeline(mockGenerator()), Options{Clock: fixedClock})

	st, outcome, err := r.Run(context.Background(), input("Acme Corp"), rec.emit)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, outcome)

	assert.Equal(t, []step{
		{EventProgress, models.StageResearch},
		{EventProgress, models.StageResearch},
		{EventResearch, models.StageResearch},
		{EventProgress, models.StageAnalyze},
		{EventProgress, models.StageAnalyze},
		{EventAnalysis, models.StageAnalyze},
		{EventProgress, models.StageCompose},
		{EventProgress, models.StageCompose},
		{EventDraft, models.StageCompose},
		{EventComplete, ""},
	}, steps(rec.snapshot()))

	for _, stage := range models.Stages {
		assert.Equal(t, models.StatusCompleted, st.Status(stage))
	}
	assert.Empty(t, st.Errors)
	assert.Equal(t, fixedNow.UnixMilli(), rec.snapshot()[0].Timestamp)
}

func TestRunningProgressPrecedesStageWork(t *testing.T) {
	var rec recorder
	var seen models.Progress
	probe := funcStage{name: models.StageResearch, fn: func(_ context.Context, s *state.State) state.Update {
		seen = rec.snapshot()[0].Data.(models.Progress)
		return state.Update{Progress: models.Progress{models.StageResearch: models.StatusCompleted}}
	}}

	_, _, err := NewRunner([]agents.Stage{probe}, Options{}).Run(context.Background(), input("Acme Corp"), rec.emit)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, seen[models.StageResearch])
	assert.Equal(t, models.StatusPending, seen[models.StageAnalyze])
}

func TestReplayReconstructsFinalState(t *testing.T) {
	var rec recorder
	in := input("Startup.io")
	st, _, err := NewRunner(pipeline(failingGenerator{}), Options{Clock: fixedClock}).Run(context.Background(), in, rec.emit)
	require.NoError(t, err)

	want, err := json.Marshal(st)
	require.NoError(t, err)

	typed, err := Replay(in, rec.snapshot())
	require.NoError(t, err)
	got, err := json.Marshal(typed)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))

	// Round trip through the wire representation.
	var wire []Event
	for _, ev := range rec.snapshot() {
		b, err := json.Marshal(ev)
		require.NoError(t, err)
		var decoded struct {
			Type      EventType       `json:"type"`
			Node      models.Stage    `json:"node"`
			Data      json.RawMessage `json:"data"`
			Timestamp int64           `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(b, &decoded))
		wire = append(wire, Event{Type: decoded.Type, Node: decoded.Node, Data: decoded.Data, Timestamp: decoded.Timestamp})
	}
	wire = append(wire, Event{Type: "future-type", Data: json.RawMessage(`{"x":1}`)})

	replayed, err := Replay(in, wire)
	require.NoError(t, err)
	got, err = json.Marshal(replayed)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestRunWithoutCompany(t *testing.T) {
	var rec recorder
	st, outcome, err := NewRunner(pipeline(mockGenerator()), Options{}).Run(context.Background(), input(""), rec.emit)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, outcome)

	assert.Equal(t, models.StatusCompleted, st.Status(models.StageResearch))
	require.NotNil(t, st.Research)
	require.NotNil(t, st.Research.Error)
	assert.Equal(t, agents.NoCompanyMessage, *st.Research.Error)
	assert.Empty(t, st.Errors)
	assert.Equal(t, models.StatusCompleted, st.Status(models.StageAnalyze))
	assert.Equal(t, models.StatusCompleted, st.Status(models.StageCompose))

	events := rec.snapshot()
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestRunWithFailingGenerator(t *testing.T) {
	var rec recorder
	st, outcome, err := NewRunner(pipeline(failingGenerator{}), Options{}).Run(context.Background(), input("Acme Corp"), rec.emit)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, outcome)

	assert.Equal(t, catalog.Default().Draft(catalog.DefaultName), st.Draft)
	assert.Len(t, st.Errors, 2)
	assert.Equal(t, models.StatusCompleted, st.Status(models.StageResearch))
	assert.Equal(t, models.StatusError, st.Status(models.StageAnalyze))
	assert.Equal(t, models.StatusError, st.Status(models.StageCompose))

	var errorEvents []Event
	for _, ev := range rec.snapshot() {
		if ev.Type == EventError {
			errorEvents = append(errorEvents, ev)
		}
	}
	require.Len(t, errorEvents, 2)
	assert.Equal(t, models.StageAnalyze, errorEvents[0].Node)
	assert.Len(t, errorEvents[0].Data, 1)
	assert.Equal(t, models.StageCompose, errorEvents[1].Node)

	events := rec.snapshot()
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestRunCancelledMidStage(t *testing.T) {
	var rec recorder
	gen := blockingGenerator{entered: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		outcome models.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		_, outcome, err := NewRunner(pipeline(gen), Options{}).Run(ctx, input("Acme Corp"), rec.emit)
		done <- result{outcome, err}
	}()

	<-gen.entered
	atCancel := len(rec.snapshot())
	cancel()

	res := <-done
	assert.NoError(t, res.err)
	assert.Equal(t, models.OutcomeCancelled, res.outcome)

	events := rec.snapshot()
	assert.Len(t, events, atCancel, "no events after cancellation")
	for _, ev := range events {
		assert.NotEqual(t, EventComplete, ev.Type)
		assert.NotEqual(t, EventError, ev.Type)
	}
	last := events[len(events)-1]
	assert.Equal(t, step{EventProgress, models.StageAnalyze}, step{last.Type, last.Node})
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rec recorder
	_, outcome, err := NewRunner(pipeline(mockGenerator()), Options{}).Run(ctx, input("Acme Corp"), rec.emit)
	assert.NoError(t, err)
	assert.Equal(t, models.OutcomeCancelled, outcome)
	assert.Empty(t, rec.snapshot())
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, llm.Schema, string, any) error {
	panic("sdk: nil response")
}

func TestRunStagePanicDegradesStage(t *testing.T) {
	var rec recorder
	boom := funcStage{name: models.StageAnalyze, fn: func(context.Context, *state.State) state.Update {
		panic("nil map write")
	}}
	stages := pipeline(mockGenerator())
	stages[1] = boom

	st, outcome, err := NewRunner(stages, Options{}).Run(context.Background(), input("Acme Corp"), rec.emit)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, outcome)

	assert.Equal(t, models.StatusError, st.Status(models.StageAnalyze))
	assert.Equal(t, models.StatusCompleted, st.Status(models.StageCompose))
	assert.Nil(t, st.Analysis)
	assert.NotNil(t, st.Draft)
	require.Len(t, st.Errors, 1)
	assert.Contains(t, st.Errors[0], "nil map write")

	events := rec.snapshot()
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
	for _, ev := range events {
		if ev.Type == EventError {
			assert.Equal(t, models.StageAnalyze, ev.Node)
		}
	}
}

func TestRunGeneratorPanicFallsBack(t *testing.T) {
	var rec recorder
	st, outcome, err := NewRunner(pipeline(panickingGenerator{}), Options{}).Run(context.Background(), input("Acme Corp"), rec.emit)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, outcome)

	assert.Equal(t, models.StatusError, st.Status(models.StageAnalyze))
	assert.Equal(t, models.StatusError, st.Status(models.StageCompose))
	assert.Equal(t, catalog.Default().Draft(catalog.DefaultName), st.Draft)
	assert.Len(t, st.Errors, 2)

	events := rec.snapshot()
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestRunEmitterPanicIsRunnerFailure(t *testing.T) {
	calls := 0
	emit := func(ev Event) error {
		calls++
		if calls == 3 {
			panic("closed channel")
		}
		return nil
	}

	_, outcome, err := NewRunner(pipeline(mockGenerator()), Options{}).Run(context.Background(), input("Acme Corp"), emit)
	require.ErrorIs(t, err, ErrRunnerFailure)
	assert.Contains(t, err.Error(), "closed channel")
	assert.Equal(t, models.OutcomeFailed, outcome)
}

func TestRunCoercesMissingTerminalStatus(t *testing.T) {
	lazy := funcStage{name: models.StageResearch, fn: func(context.Context, *state.State) state.Update {
		return state.Update{Progress: models.Progress{models.StageResearch: models.StatusRunning}}
	}}

	st, outcome, err := NewRunner([]agents.Stage{lazy}, Options{}).Run(context.Background(), input("Acme Corp"), Discard)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, outcome)
	assert.Equal(t, models.StatusError, st.Status(models.StageResearch))
	require.Len(t, st.Errors, 1)
	assert.Contains(t, st.Errors[0], "without a terminal status")
}

func TestRunStopsWhenEmitterFails(t *testing.T) {
	calls := 0
	emit := func(Event) error {
		calls++
		if calls == 2 {
			return errors.New("broken pipe")
		}
		return nil
	}

	_, outcome, err := NewRunner(pipeline(mockGenerator()), Options{}).Run(context.Background(), input("Acme Corp"), emit)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRunnerFailure)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Equal(t, models.OutcomeFailed, outcome)
	assert.Equal(t, 2, calls)
}

func TestRunHooks(t *testing.T) {
	var (
		started  []models.Stage
		ended    = map[models.Stage]models.NodeStatus{}
		runStart int
		outcomes []models.Outcome
	)
	hooks := Hooks{
		OnRunStart:   func() { runStart++ },
		OnStageStart: func(s models.Stage) { started = append(started, s) },
		OnStageEnd: func(s models.Stage, st models.NodeStatus, elapsed time.Duration) {
			ended[s] = st
			assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		},
		OnRunEnd: func(o models.Outcome) { outcomes = append(outcomes, o) },
	}
	var second int
	chained := ChainHooks(hooks, Hooks{OnRunStart: func() { second++ }})

	_, _, err := NewRunner(pipeline(failingGenerator{}), Options{Hooks: chained}).Run(context.Background(), input("Acme Corp"), Discard)
	require.NoError(t, err)

	assert.Equal(t, 1, runStart)
	assert.Equal(t, 1, second)
	assert.Equal(t, models.Stages, started)
	assert.Equal(t, map[models.Stage]models.NodeStatus{
		models.StageResearch: models.StatusCompleted,
		models.StageAnalyze:  models.StatusError,
		models.StageCompose:  models.StatusError,
	}, ended)
	assert.Equal(t, []models.Outcome{models.OutcomeCompleted}, outcomes)
}

func TestFoldErrorEventShapes(t *testing.T) {
	s := state.New(input("Acme Corp"))
	require.NoError(t, Fold(s, Event{Type: EventError, Data: []string{"a", "b"}}))
	require.NoError(t, Fold(s, FailureEvent("fatal", fixedNow)))
	require.NoError(t, Fold(s, Event{Type: EventComplete}))
	assert.Equal(t, []string{"a", "b", "fatal"}, s.Errors)

	assert.Error(t, Fold(s, Event{Type: EventProgress, Data: json.RawMessage(`[1,2]`)}))
}
