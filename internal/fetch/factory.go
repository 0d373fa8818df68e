package fetch

import (
	"fmt"
	"net/http"

	"github.com/example/draft-agent/internal/catalog"
	"github.com/example/draft-agent/internal/config"
)

// New selects a Fetcher. With provider "auto" Firecrawl is used when its key
// is present, otherwise the catalog.
func New(cfg config.ResearchConfig, creds config.Credentials, cat *catalog.Catalog, mock config.MockConfig) (Fetcher, error) {
	provider := cfg.Provider
	if provider == "" || provider == config.ProviderAuto {
		provider = config.ProviderMock
		if creds.FirecrawlKey != "" {
			provider = config.ProviderFirecrawl
		}
	}
	client := &http.Client{Timeout: cfg.Timeout}

	switch provider {
	case config.ProviderMock:
		return NewCatalogFetcher(cat, mock.Delay), nil
	case config.ProviderFirecrawl:
		if creds.FirecrawlKey == "" {
			return nil, fmt.Errorf("fetch: provider firecrawl selected but FIRECRAWL_API_KEY is not set")
		}
		return NewFirecrawlFetcher(creds.FirecrawlKey, cfg.BaseURL, client), nil
	case config.ProviderHTTP:
		return NewHTTPFetcher(client, cfg.UserAgent), nil
	default:
		return nil, fmt.Errorf("fetch: unknown provider %q", provider)
	}
}
