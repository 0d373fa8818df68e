package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultFirecrawlBase = "https://api.firecrawl.dev"

// FirecrawlFetcher scrapes pages to markdown through the Firecrawl API.
type FirecrawlFetcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewFirecrawlFetcher(apiKey, baseURL string, client *http.Client) *FirecrawlFetcher {
	if baseURL == "" {
		baseURL = defaultFirecrawlBase
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FirecrawlFetcher{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (f *FirecrawlFetcher) Name() string { return "firecrawl" }

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

func (f *FirecrawlFetcher) Fetch(ctx context.Context, url string) (string, error) {
	b, err := json.Marshal(scrapeRequest{URL: url, Formats: []string{"markdown"}, OnlyMainContent: true})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/scrape", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("firecrawl scrape %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("firecrawl scrape %s: status %d: %s", url, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("firecrawl decode: %w", err)
	}
	if !out.Success {
		if out.Error == "" {
			out.Error = "unsuccessful scrape"
		}
		return "", fmt.Errorf("firecrawl scrape %s: %s", url, out.Error)
	}
	return nonEmpty(out.Data.Markdown)
}
