// Package agents implements the pipeline stages. Every stage owns its
// capability failures: it never returns an error, only an update that
// carries either a real result or a canned fallback.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/example/draft-agent/internal/catalog"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/state"
)

// Stage is one named unit of pipeline work. Execute reads a snapshot of
// the run state and returns a partial update for the runner to merge.
type Stage interface {
	Name() models.Stage
	Execute(ctx context.Context, s *state.State) state.Update
}

// Clock returns the current time.
type Clock func() time.Time

// UTCNow is the default clock. The UTC conversion drops the monotonic
// reading so timestamps survive a JSON round trip unchanged.
func UTCNow() time.Time { return time.Now().UTC() }

const (
	defaultTimeout         = 45 * time.Second
	defaultMaxContentBytes = 8000
)

type options struct {
	timeout         time.Duration
	maxContentBytes int
	now             Clock
	log             *logging.Logger
}

// Option configures a stage.
type Option func(*options)

// WithTimeout bounds the stage's single capability call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxContentBytes caps fetched content kept in the run state.
func WithMaxContentBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxContentBytes = n
		}
	}
}

func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.now = c
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(stage models.Stage, opts []Option) options {
	o := options{
		timeout:         defaultTimeout,
		maxContentBytes: defaultMaxContentBytes,
		now:             UTCNow,
		log:             logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.WithFields(map[string]interface{}{logging.FieldStage: string(stage)})
	return o
}

// guard runs a capability call and reports a panic inside it as an error.
func guard(call func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("capability panicked: %v", p)
		}
	}()
	return call()
}

func succeeded(stage models.Stage) models.Progress {
	return models.Progress{stage: models.StatusCompleted}
}

func failed(stage models.Stage) models.Progress {
	return models.Progress{stage: models.StatusError}
}

// MockFixtures maps generator schema names to catalog defaults for the
// mock generator.
func MockFixtures(cat *catalog.Catalog) map[string]any {
	return map[string]any{
		AnalysisSchema.Name: cat.Analysis(catalog.DefaultName),
		DraftSchema.Name:    cat.Draft(catalog.DefaultName),
	}
}
