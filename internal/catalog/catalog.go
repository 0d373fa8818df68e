// Package catalog serves canned research content, analyses and drafts. The
// entries back the mock capabilities and every stage fallback.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/validation"
)

// DefaultName keys the entry used when nothing else matches.
const DefaultName = "default"

//go:embed catalog.yaml
var embedded []byte

// ResearchEntry is canned scraped content for one organization.
type ResearchEntry struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Content string `yaml:"content"`
}

type document struct {
	Research []ResearchEntry                 `yaml:"research"`
	Analyses map[string]models.AnalysisReport `yaml:"analyses"`
	Drafts   map[string]models.Draft          `yaml:"drafts"`
}

// Catalog is read-only after Load and safe for concurrent use.
type Catalog struct {
	research []ResearchEntry
	fallback ResearchEntry
	analyses map[string]models.AnalysisReport
	drafts   map[string]models.Draft
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(bytes.NewReader(embedded))
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", defaultErr))
	}
	return defaultCat
}

// Load parses a catalog document and checks every entry against the output
// schemas. Each section needs a default entry.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{analyses: doc.Analyses, drafts: doc.Drafts}
	found := false
	for _, e := range doc.Research {
		if e.Name == DefaultName {
			c.fallback = e
			found = true
			continue
		}
		c.research = append(c.research, e)
	}
	if !found {
		return nil, fmt.Errorf("catalog: research section has no %q entry", DefaultName)
	}
	if _, ok := c.analyses[DefaultName]; !ok {
		return nil, fmt.Errorf("catalog: analyses section has no %q entry", DefaultName)
	}
	if _, ok := c.drafts[DefaultName]; !ok {
		return nil, fmt.Errorf("catalog: drafts section has no %q entry", DefaultName)
	}
	for name, a := range c.analyses {
		if err := validation.Struct(a); err != nil {
			return nil, fmt.Errorf("catalog: analysis %q: %w", name, err)
		}
	}
	for name, d := range c.drafts {
		if err := validation.Struct(d); err != nil {
			return nil, fmt.Errorf("catalog: draft %q: %w", name, err)
		}
	}
	return c, nil
}

// Research returns the entry for company: exact name, then case-insensitive
// name, then equal company key, else the default entry.
func (c *Catalog) Research(company string) ResearchEntry {
	for _, e := range c.research {
		if e.Name == company {
			return e
		}
	}
	for _, e := range c.research {
		if strings.EqualFold(e.Name, company) {
			return e
		}
	}
	if key := CompanyKey(company); key != "" {
		for _, e := range c.research {
			if CompanyKey(e.Name) == key {
				return e
			}
		}
	}
	return c.fallback
}

// ResearchByURL returns the entry whose URL or host matches rawURL, else the
// default entry.
func (c *Catalog) ResearchByURL(rawURL string) ResearchEntry {
	want := hostOf(rawURL)
	for _, e := range c.research {
		if e.URL == rawURL || (want != "" && hostOf(e.URL) == want) {
			return e
		}
	}
	if want != "" {
		label := strings.TrimPrefix(want, "www.")
		if i := strings.IndexByte(label, '.'); i > 0 {
			label = label[:i]
		}
		for _, e := range c.research {
			if CompanyKey(e.Name) == label {
				return e
			}
		}
	}
	return c.fallback
}

// Analysis returns a copy of the named analysis, or the default one.
func (c *Catalog) Analysis(name string) models.AnalysisReport {
	if a, ok := c.analyses[name]; ok {
		return a.Clone()
	}
	return c.analyses[DefaultName].Clone()
}

// Draft returns a copy of the named draft, or the default one.
func (c *Catalog) Draft(name string) *models.Draft {
	d, ok := c.drafts[name]
	if !ok {
		d = c.drafts[DefaultName]
	}
	return d.Clone()
}

var (
	legalSuffix = regexp.MustCompile(`\s+(inc|corp|llc|ltd|co)\.?$`)
	nonKey      = regexp.MustCompile(`[^a-z0-9]`)
)

// CompanyKey derives the canonical lookup key of an organization name:
// lowercase, one trailing legal suffix removed, only [a-z0-9] kept.
// "Acme Corp" becomes "acme".
func CompanyKey(company string) string {
	k := strings.ToLower(strings.TrimSpace(company))
	k = legalSuffix.ReplaceAllString(k, "")
	return nonKey.ReplaceAllString(k, "")
}

// CompanyURL is the website guessed for a company key.
func CompanyURL(key string) string {
	if key == "" {
		return ""
	}
	return "https://" + key + ".com"
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
