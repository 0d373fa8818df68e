package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/draft-agent/internal/catalog"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/providers/llm"
	"github.com/example/draft-agent/internal/state"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type stubFetcher struct {
	content string
	err     error
	block   bool
	gotURL  string
}

func (f *stubFetcher) Name() string { return "stub" }

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.gotURL = url
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.content, f.err
}

type stubGenerator struct {
	reply   any
	err     error
	prompts map[string]string
}

func (g *stubGenerator) Generate(_ context.Context, schema llm.Schema, prompt string, out any) error {
	if g.prompts == nil {
		g.prompts = map[string]string{}
	}
	g.prompts[schema.Name] = prompt
	if g.err != nil {
		return g.err
	}
	b, err := json.Marshal(g.reply)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func seedState(company string) *state.State {
	return state.New(models.Input{
		Contact: models.Contact{ID: "c1", Email: "jane@acme.com", Name: "Jane Doe", Company: company, Title: "VP Engineering"},
		Signals: []models.Signal{{
			ID: "s1", Type: models.SignalHiring, Title: "Hiring engineers", Description: "15 open roles",
			Confidence: 90, DetectedAt: fixedNow,
		}},
		Context: "Met at KubeCon",
	})
}

func TestResearcherSuccess(t *testing.T) {
	f := &stubFetcher{content: strings.Repeat("a", 50)}
	r := NewResearcher(f, catalog.Default(), WithClock(fixedClock), WithMaxContentBytes(10))

	u := r.Execute(context.Background(), seedState("Acme Corp"))

	assert.Equal(t, "https://acme.com", f.gotURL)
	assert.Equal(t, models.StatusCompleted, u.Progress[models.StageResearch])
	assert.Empty(t, u.Errors)
	require.NotNil(t, u.Research)
	assert.Equal(t, "acme", u.Research.CompanyKey)
	assert.Equal(t, "https://acme.com", u.Research.CompanyURL)
	assert.Equal(t, "aaaaaaaaaa", u.Research.Content())
	assert.Equal(t, fixedNow, *u.Research.ScrapedAt)
	assert.Nil(t, u.Research.Error)
	assert.Equal(t, "stub", u.Research.Source)
}

func TestResearcherNoCompany(t *testing.T) {
	f := &stubFetcher{content: "unused"}
	u := NewResearcher(f, catalog.Default()).Execute(context.Background(), seedState("  "))

	assert.Empty(t, f.gotURL, "no fetch without a company")
	assert.Equal(t, models.StatusCompleted, u.Progress[models.StageResearch])
	assert.Empty(t, u.Errors)
	require.NotNil(t, u.Research)
	require.NotNil(t, u.Research.Error)
	assert.Equal(t, NoCompanyMessage, *u.Research.Error)
	assert.Empty(t, u.Research.CompanyURL)
	assert.Nil(t, u.Research.ScrapedContent)
}

func TestResearcherCompanyWithoutLookupKey(t *testing.T) {
	for _, company := range []string{"!!!", "---", "***"} {
		t.Run(company, func(t *testing.T) {
			f := &stubFetcher{err: errors.New("unreachable")}
			u := NewResearcher(f, catalog.Default()).Execute(context.Background(), seedState(company))

			assert.Empty(t, f.gotURL, "no fetch without a lookup key")
			assert.Equal(t, models.StatusCompleted, u.Progress[models.StageResearch])
			assert.Empty(t, u.Errors)
			require.NotNil(t, u.Research)
			require.NotNil(t, u.Research.Error)
			assert.Equal(t, NoCompanyMessage, *u.Research.Error)
		})
	}
}

type panickingFetcher struct{}

func (panickingFetcher) Name() string { return "panicky" }

func (panickingFetcher) Fetch(context.Context, string) (string, error) {
	panic("nil response body")
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, llm.Schema, string, any) error {
	panic("sdk: nil response")
}

func TestStagesFallBackWhenCapabilityPanics(t *testing.T) {
	cat := catalog.Default()
	s := seedState("Acme Corp")

	u := NewResearcher(panickingFetcher{}, cat).Execute(context.Background(), s)
	assert.Equal(t, models.StatusError, u.Progress[models.StageResearch])
	require.Len(t, u.Errors, 1)
	assert.Contains(t, u.Errors[0], "nil response body")
	assert.Equal(t, "catalog", u.Research.Source)

	u = NewAnalyst(panickingGenerator{}, cat, WithClock(fixedClock)).Execute(context.Background(), s)
	assert.Equal(t, models.StatusError, u.Progress[models.StageAnalyze])
	require.Len(t, u.Errors, 1)
	assert.Contains(t, u.Errors[0], "sdk: nil response")
	assert.NotNil(t, u.Analysis)

	u = NewCopywriter(panickingGenerator{}, cat).Execute(context.Background(), s)
	assert.Equal(t, models.StatusError, u.Progress[models.StageCompose])
	require.Len(t, u.Errors, 1)
	assert.Equal(t, cat.Draft(catalog.DefaultName), u.Draft)
}

func TestResearcherFallsBackToCatalog(t *testing.T) {
	cat := catalog.Default()
	f := &stubFetcher{err: errors.New("connection refused")}
	u := NewResearcher(f, cat, WithClock(fixedClock)).Execute(context.Background(), seedState("Acme Corp"))

	assert.Equal(t, models.StatusError, u.Progress[models.StageResearch])
	require.Len(t, u.Errors, 1)
	assert.True(t, strings.HasPrefix(u.Errors[0], "research failed:"), u.Errors[0])
	assert.Contains(t, u.Errors[0], "connection refused")

	require.NotNil(t, u.Research)
	entry := cat.Research("Acme Corp")
	assert.Equal(t, entry.Content, u.Research.Content())
	assert.Equal(t, entry.URL, u.Research.CompanyURL)
	assert.Equal(t, "catalog", u.Research.Source)
	require.NotNil(t, u.Research.Error)
	assert.Equal(t, u.Errors[0], *u.Research.Error)
}

func TestResearcherEmptyContentIsFailure(t *testing.T) {
	f := &stubFetcher{content: "  \n "}
	u := NewResearcher(f, catalog.Default()).Execute(context.Background(), seedState("Startup.io"))

	assert.Equal(t, models.StatusError, u.Progress[models.StageResearch])
	require.Len(t, u.Errors, 1)
	assert.Contains(t, u.Errors[0], "empty content")
}

func TestResearcherTimeout(t *testing.T) {
	f := &stubFetcher{block: true}
	r := NewResearcher(f, catalog.Default(), WithTimeout(20*time.Millisecond))

	start := time.Now()
	u := r.Execute(context.Background(), seedState("Acme Corp"))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, models.StatusError, u.Progress[models.StageResearch])
	require.Len(t, u.Errors, 1)
	assert.Contains(t, u.Errors[0], context.DeadlineExceeded.Error())
}

func TestAnalystSuccess(t *testing.T) {
	s := seedState("Acme Corp")
	content := "Acme raised $75M"
	s.Research = &models.ResearchResult{CompanyURL: "https://acme.com", ScrapedContent: &content}

	gen := &stubGenerator{reply: models.AnalysisReport{
		Signals: []models.ReportedSignal{
			{Type: models.SignalFunding, Title: "Series B", Description: "$75M", Confidence: 87.6},
			{Type: models.SignalExpansion, Title: "NYC office", Description: "New office", Confidence: 140},
		},
		CompanyContext:  "Growing enterprise vendor",
		RecommendedTone: models.ToneFormal,
		KeyInsights:     []string{"Fresh funding"},
	}}
	u := NewAnalyst(gen, catalog.Default(), WithClock(fixedClock)).Execute(context.Background(), s)

	assert.Equal(t, models.StatusCompleted, u.Progress[models.StageAnalyze])
	assert.Empty(t, u.Errors)
	require.NotNil(t, u.Analysis)
	require.Len(t, u.Analysis.ExtractedSignals, 2)
	assert.Equal(t, "extracted-0", u.Analysis.ExtractedSignals[0].ID)
	assert.Equal(t, 88, u.Analysis.ExtractedSignals[0].Confidence)
	assert.Equal(t, "extracted-1", u.Analysis.ExtractedSignals[1].ID)
	assert.Equal(t, 100, u.Analysis.ExtractedSignals[1].Confidence)
	assert.Equal(t, fixedNow, u.Analysis.ExtractedSignals[0].DetectedAt)
	assert.Equal(t, models.ToneFormal, u.Analysis.RecommendedTone)

	prompt := gen.prompts[AnalysisSchema.Name]
	assert.Contains(t, prompt, content)
	assert.Contains(t, prompt, "hiring: Hiring engineers")
	assert.Contains(t, prompt, "Met at KubeCon")
}

func TestAnalystFallsBackToCatalog(t *testing.T) {
	cat := catalog.Default()
	gen := &stubGenerator{err: llm.ErrSchemaViolation}
	u := NewAnalyst(gen, cat, WithClock(fixedClock)).Execute(context.Background(), seedState("Acme Corp"))

	assert.Equal(t, models.StatusError, u.Progress[models.StageAnalyze])
	require.Len(t, u.Errors, 1)
	assert.True(t, strings.HasPrefix(u.Errors[0], "analysis failed:"), u.Errors[0])
	assert.Equal(t, toAnalysis(cat.Analysis(catalog.DefaultName), fixedNow), u.Analysis)
	assert.Contains(t, gen.prompts[AnalysisSchema.Name], "No content available")
}

func TestCopywriterMergesSignals(t *testing.T) {
	s := seedState("Acme Corp")
	s.Analysis = &models.AnalysisResult{
		ExtractedSignals: []models.Signal{{ID: "extracted-0", Type: models.SignalFunding, Title: "Series B", Description: "$75M", Confidence: 88}},
		CompanyContext:   "Growing enterprise vendor",
		RecommendedTone:  models.ToneUrgent,
		KeyInsights:      []string{"Fresh funding"},
	}
	want := &models.Draft{
		Intent: models.Intent{Tone: models.ToneUrgent, Objective: "Book a call"},
		Email:  models.Email{Subject: "Congrats on the Series B", Body: "Hi Jane", CallToAction: "15 minutes Thursday?"},
	}
	gen := &stubGenerator{reply: want}

	u := NewCopywriter(gen, catalog.Default()).Execute(context.Background(), s)

	assert.Equal(t, models.StatusCompleted, u.Progress[models.StageCompose])
	assert.Empty(t, u.Errors)
	assert.Equal(t, want.Email, u.Draft.Email)

	prompt := gen.prompts[DraftSchema.Name]
	hiring := strings.Index(prompt, "HIRING: Hiring engineers")
	funding := strings.Index(prompt, "FUNDING: Series B")
	require.GreaterOrEqual(t, hiring, 0)
	require.GreaterOrEqual(t, funding, 0)
	assert.Less(t, hiring, funding, "caller signals come first")
	assert.Contains(t, prompt, "TONE: urgent")
	assert.Contains(t, prompt, "- Fresh funding")
}

func TestCopywriterDefaultsToFriendlyTone(t *testing.T) {
	gen := &stubGenerator{err: errors.New("boom")}
	NewCopywriter(gen, catalog.Default()).Execute(context.Background(), seedState("Acme Corp"))

	assert.Contains(t, gen.prompts[DraftSchema.Name], "TONE: friendly")
}

func TestCopywriterFallsBackToCatalog(t *testing.T) {
	cat := catalog.Default()
	gen := &stubGenerator{err: llm.ErrEmptyResponse}
	u := NewCopywriter(gen, cat).Execute(context.Background(), seedState("Acme Corp"))

	assert.Equal(t, models.StatusError, u.Progress[models.StageCompose])
	require.Len(t, u.Errors, 1)
	assert.True(t, strings.HasPrefix(u.Errors[0], "draft generation failed:"), u.Errors[0])
	assert.Equal(t, cat.Draft(catalog.DefaultName), u.Draft)
}

func TestMockFixturesSatisfyStages(t *testing.T) {
	cat := catalog.Default()
	gen := llm.NewMockGenerator(MockFixtures(cat), 0)

	a := NewAnalyst(gen, cat).Execute(context.Background(), seedState("Acme Corp"))
	assert.Equal(t, models.StatusCompleted, a.Progress[models.StageAnalyze])

	c := NewCopywriter(gen, cat).Execute(context.Background(), seedState("Acme Corp"))
	assert.Equal(t, models.StatusCompleted, c.Progress[models.StageCompose])
	assert.Equal(t, cat.Draft(catalog.DefaultName), c.Draft)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0, clampConfidence(-4))
	assert.Equal(t, 50, clampConfidence(49.5))
	assert.Equal(t, 100, clampConfidence(100.2))
}
