// Package orchestrator runs the stages of a draft pipeline in order against a
// single state and streams what changed after each one.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/example/draft-agent/internal/agents"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/state"
)

// ErrRunnerFailure marks a fault in the runner's own bookkeeping. A panic
// inside a stage is not one: the stage is marked error and the run goes on.
var ErrRunnerFailure = errors.New("runner failure")

var errCancelled = errors.New("run cancelled")

type Options struct {
	Hooks  Hooks
	Logger *logging.Logger
	Clock  func() time.Time
}

type Runner struct {
	stages []agents.Stage
	hooks  Hooks
	log    *logging.Logger
	now    func() time.Time
}

func NewRunner(stages []agents.Stage, opts Options) *Runner {
	r := &Runner{
		stages: append([]agents.Stage{}, stages...),
		hooks:  opts.Hooks,
		log:    opts.Logger,
		now:    opts.Clock,
	}
	if r.log == nil {
		r.log = logging.NewNop()
	}
	if r.now == nil {
		r.now = agents.UTCNow
	}
	return r
}

// Run executes every stage once, in order, and returns the final state.
// Cancellation is not an error: the outcome is cancelled, the error nil and
// no complete event is sent. A stage reporting error does not stop the run.
func (r *Runner) Run(ctx context.Context, in models.Input, emit Emitter) (st *state.State, outcome models.Outcome, err error) {
	if emit == nil {
		emit = Discard
	}
	st = state.New(in)
	out := &sink{ctx: ctx, emit: emit, now: r.now}

	r.hooks.runStart()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRunnerFailure, p)
			outcome = models.OutcomeFailed
			r.log.Error("run aborted", map[string]interface{}{
				logging.FieldError: err,
				"stack":            string(debug.Stack()),
			})
			if ctx.Err() == nil {
				_ = emit(FailureEvent(err.Error(), r.now()))
			}
		}
		r.hooks.runEnd(outcome)
	}()

	for _, stage := range r.stages {
		if err := r.step(ctx, st, stage, out); err != nil {
			return r.stopped(ctx, st, err)
		}
	}
	if err := out.send(EventComplete, "", nil); err != nil {
		return r.stopped(ctx, st, err)
	}
	return st, models.OutcomeCompleted, nil
}

func (r *Runner) stopped(ctx context.Context, st *state.State, err error) (*state.State, models.Outcome, error) {
	if errors.Is(err, errCancelled) || ctx.Err() != nil {
		r.log.Debug("run cancelled")
		return st, models.OutcomeCancelled, nil
	}
	r.log.Error("run stopped", map[string]interface{}{logging.FieldError: err})
	return st, models.OutcomeFailed, err
}

func (r *Runner) step(ctx context.Context, st *state.State, stage agents.Stage, out *sink) error {
	name := stage.Name()
	if ctx.Err() != nil {
		return errCancelled
	}

	r.hooks.stageStart(name)
	start := time.Now()
	log := r.log.WithFields(map[string]interface{}{logging.FieldStage: string(name)})
	log.Debug("stage started")

	running := state.Update{Stage: name, Progress: models.Progress{name: models.StatusRunning}}
	if changed := state.Apply(st, running); len(changed) > 0 {
		if err := out.send(EventProgress, name, st.Progress.Clone()); err != nil {
			return err
		}
	}

	u, perr := execute(ctx, stage, st.Snapshot(), log)
	if ctx.Err() != nil {
		return errCancelled
	}
	switch status, ok := u.StatusFor(name); {
	case perr != nil:
		u = state.Update{Stage: name}.WithStatus(name, models.StatusError)
		u.Errors = []string{fmt.Sprintf("%s: %v", name, perr)}
	case !ok || !status.Terminal():
		msg := fmt.Sprintf("%s: stage finished without a terminal status", name)
		u = u.WithStatus(name, models.StatusError)
		u.Errors = append(append([]string{}, u.Errors...), msg)
	}

	before := len(st.Errors)
	changed := state.Apply(st, u)
	status := st.Status(name)
	elapsed := time.Since(start)
	r.hooks.stageEnd(name, status, elapsed)
	fields := map[string]interface{}{logging.FieldStatus: string(status), logging.FieldDuration: elapsed.Milliseconds()}
	if status == models.StatusError {
		log.Warn("stage degraded to fallback", fields)
	} else {
		log.Debug("stage finished", fields)
	}

	for _, f := range changed {
		var err error
		switch f {
		case state.FieldProgress:
			err = out.send(EventProgress, name, st.Progress.Clone())
		case state.FieldResearch:
			err = out.send(EventResearch, name, st.Research.Clone())
		case state.FieldAnalysis:
			err = out.send(EventAnalysis, name, st.Analysis.Clone())
		case state.FieldDraft:
			err = out.send(EventDraft, name, st.Draft.Clone())
		case state.FieldErrors:
			err = out.send(EventError, name, append([]string{}, st.Errors[before:]...))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// execute calls the stage and turns a panic into an error.
func execute(ctx context.Context, stage agents.Stage, s *state.State, log *logging.Logger) (u state.Update, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("stage panicked: %v", p)
			log.Error("stage panicked", map[string]interface{}{
				logging.FieldError: err,
				"stack":            string(debug.Stack()),
			})
		}
	}()
	return stage.Execute(ctx, s), nil
}

// sink stamps events and refuses to emit once the run is cancelled.
type sink struct {
	ctx  context.Context
	emit Emitter
	now  func() time.Time
}

func (s *sink) send(t EventType, node models.Stage, data any) error {
	if s.ctx.Err() != nil {
		return errCancelled
	}
	if err := s.emit(newEvent(t, node, data, s.now())); err != nil {
		return fmt.Errorf("emit %s event: %w", t, err)
	}
	return nil
}
