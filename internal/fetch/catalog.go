package fetch

import (
	"context"
	"time"

	"github.com/example/draft-agent/internal/catalog"
)

// CatalogFetcher serves canned content after a simulated network delay.
// Unknown URLs get the catalog's default entry.
type CatalogFetcher struct {
	cat   *catalog.Catalog
	delay time.Duration
}

func NewCatalogFetcher(cat *catalog.Catalog, delay time.Duration) *CatalogFetcher {
	return &CatalogFetcher{cat: cat, delay: delay}
}

func (c *CatalogFetcher) Name() string { return "catalog" }

func (c *CatalogFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}
	return nonEmpty(c.cat.ResearchByURL(url).Content)
}
