package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/draft-agent/internal/catalog"
	"github.com/example/draft-agent/internal/fetch"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/state"
)

// NoCompanyMessage marks a research result for a contact whose company
// yields no lookup key.
const NoCompanyMessage = "No company information available"

// Researcher fetches content about the contact's company.
type Researcher struct {
	fetcher fetch.Fetcher
	catalog *catalog.Catalog
	opts    options
}

func NewResearcher(f fetch.Fetcher, cat *catalog.Catalog, opts ...Option) *Researcher {
	return &Researcher{fetcher: f, catalog: cat, opts: newOptions(models.StageResearch, opts)}
}

func (r *Researcher) Name() models.Stage { return models.StageResearch }

func (r *Researcher) Execute(ctx context.Context, s *state.State) state.Update {
	company := strings.TrimSpace(s.Input.Contact.Company)
	key := catalog.CompanyKey(company)
	if key == "" {
		msg := NoCompanyMessage
		return state.Update{
			Stage:    models.StageResearch,
			Progress: succeeded(models.StageResearch),
			Research: &models.ResearchResult{Error: &msg},
		}
	}

	url := catalog.CompanyURL(key)
	content, err := r.fetch(ctx, url)
	now := r.opts.now()
	if err == nil {
		content = fetch.Truncate(content, r.opts.maxContentBytes)
		return state.Update{
			Stage:    models.StageResearch,
			Progress: succeeded(models.StageResearch),
			Research: &models.ResearchResult{
				CompanyKey:     key,
				CompanyURL:     url,
				ScrapedContent: &content,
				ScrapedAt:      &now,
				Source:         r.fetcher.Name(),
			},
		}
	}

	msg := fmt.Sprintf("research failed: %v", err)
	r.opts.log.Warn("research fell back to catalog", map[string]interface{}{
		logging.FieldError: err,
		"company":          company,
		"url":              url,
	})
	entry := r.catalog.Research(company)
	fallback := fetch.Truncate(entry.Content, r.opts.maxContentBytes)
	return state.Update{
		Stage:    models.StageResearch,
		Progress: failed(models.StageResearch),
		Research: &models.ResearchResult{
			CompanyKey:     key,
			CompanyURL:     entry.URL,
			ScrapedContent: &fallback,
			ScrapedAt:      &now,
			Error:          &msg,
			Source:         "catalog",
		},
		Errors: []string{msg},
	}
}

func (r *Researcher) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()

	var content string
	err := guard(func() (err error) {
		content, err = r.fetcher.Fetch(ctx, url)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", r.fetcher.Name(), url, err)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s %s: %w", r.fetcher.Name(), url, fetch.ErrEmptyContent)
	}
	return content, nil
}
