package agents

import (
	"context"
	"fmt"

	"github.com/example/draft-agent/internal/catalog"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/providers/llm"
	"github.com/example/draft-agent/internal/state"
)

// Copywriter composes the outreach draft.
type Copywriter struct {
	gen     llm.Generator
	catalog *catalog.Catalog
	opts    options
}

func NewCopywriter(gen llm.Generator, cat *catalog.Catalog, opts ...Option) *Copywriter {
	return &Copywriter{gen: gen, catalog: cat, opts: newOptions(models.StageCompose, opts)}
}

func (c *Copywriter) Name() models.Stage { return models.StageCompose }

func (c *Copywriter) Execute(ctx context.Context, s *state.State) state.Update {
	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	var draft models.Draft
	err := guard(func() error { return c.gen.Generate(ctx, DraftSchema, draftPrompt(s, mergedSignals(s)), &draft) })
	if err == nil {
		return state.Update{
			Stage:    models.StageCompose,
			Progress: succeeded(models.StageCompose),
			Draft:    &draft,
		}
	}

	msg := fmt.Sprintf("draft generation failed: %v", err)
	c.opts.log.Warn("draft fell back to catalog", map[string]interface{}{logging.FieldError: err})
	return state.Update{
		Stage:    models.StageCompose,
		Progress: failed(models.StageCompose),
		Draft:    c.catalog.Draft(catalog.DefaultName),
		Errors:   []string{msg},
	}
}

// mergedSignals lists caller signals first, then extracted ones.
func mergedSignals(s *state.State) []models.Signal {
	out := append([]models.Signal{}, s.Input.Signals...)
	if s.Analysis != nil {
		out = append(out, s.Analysis.ExtractedSignals...)
	}
	return out
}
