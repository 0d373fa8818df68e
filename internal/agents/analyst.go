package agents

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/example/draft-agent/internal/catalog"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/providers/llm"
	"github.com/example/draft-agent/internal/state"
)

// Analyst extracts signals, tone and insights from the research content.
type Analyst struct {
	gen     llm.Generator
	catalog *catalog.Catalog
	opts    options
}

func NewAnalyst(gen llm.Generator, cat *catalog.Catalog, opts ...Option) *Analyst {
	return &Analyst{gen: gen, catalog: cat, opts: newOptions(models.StageAnalyze, opts)}
}

func (a *Analyst) Name() models.Stage { return models.StageAnalyze }

func (a *Analyst) Execute(ctx context.Context, s *state.State) state.Update {
	ctx, cancel := context.WithTimeout(ctx, a.opts.timeout)
	defer cancel()

	var report models.AnalysisReport
	err := guard(func() error { return a.gen.Generate(ctx, AnalysisSchema, analysisPrompt(s), &report) })
	now := a.opts.now()
	if err == nil {
		return state.Update{
			Stage:    models.StageAnalyze,
			Progress: succeeded(models.StageAnalyze),
			Analysis: toAnalysis(report, now),
		}
	}

	msg := fmt.Sprintf("analysis failed: %v", err)
	a.opts.log.Warn("analysis fell back to catalog", map[string]interface{}{logging.FieldError: err})
	return state.Update{
		Stage:    models.StageAnalyze,
		Progress: failed(models.StageAnalyze),
		Analysis: toAnalysis(a.catalog.Analysis(catalog.DefaultName), now),
		Errors:   []string{msg},
	}
}

// toAnalysis assigns ids extracted-<i> and the detection time, and clamps
// confidence to an integer percentage.
func toAnalysis(r models.AnalysisReport, detectedAt time.Time) *models.AnalysisResult {
	signals := make([]models.Signal, 0, len(r.Signals))
	for i, rs := range r.Signals {
		signals = append(signals, models.Signal{
			ID:          fmt.Sprintf("extracted-%d", i),
			Type:        rs.Type,
			Title:       rs.Title,
			Description: rs.Description,
			Confidence:  clampConfidence(rs.Confidence),
			DetectedAt:  detectedAt,
		})
	}
	insights := append([]string{}, r.KeyInsights...)
	return &models.AnalysisResult{
		ExtractedSignals: signals,
		CompanyContext:   r.CompanyContext,
		RecommendedTone:  r.RecommendedTone,
		KeyInsights:      insights,
	}
}

func clampConfidence(c float64) int {
	if math.IsNaN(c) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(c))))
}
