package models

import "time"

// ResearchResult is written by the research stage.
type ResearchResult struct {
	CompanyKey     string     `json:"companyKey,omitempty"`
	CompanyURL     string     `json:"companyUrl"`
	ScrapedContent *string    `json:"scrapedContent"`
	ScrapedAt      *time.Time `json:"scrapedAt"`
	Error          *string    `json:"error"`
	Source         string     `json:"source,omitempty"`
}

// Clone returns a copy that shares no pointers with r.
func (r *ResearchResult) Clone() *ResearchResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.ScrapedContent != nil {
		out.ScrapedContent = ptr(*r.ScrapedContent)
	}
	if r.ScrapedAt != nil {
		out.ScrapedAt = ptr(*r.ScrapedAt)
	}
	if r.Error != nil {
		out.Error = ptr(*r.Error)
	}
	return &out
}

// Content returns the scraped content or "".
func (r *ResearchResult) Content() string {
	if r == nil || r.ScrapedContent == nil {
		return ""
	}
	return *r.ScrapedContent
}

// AnalysisResult is written by the analyze stage.
type AnalysisResult struct {
	ExtractedSignals []Signal `json:"extractedSignals"`
	CompanyContext   string   `json:"companyContext"`
	RecommendedTone  Tone     `json:"recommendedTone"`
	KeyInsights      []string `json:"keyInsights"`
}

// Clone returns a deep copy.
func (a *AnalysisResult) Clone() *AnalysisResult {
	if a == nil {
		return nil
	}
	out := *a
	if a.ExtractedSignals != nil {
		out.ExtractedSignals = make([]Signal, len(a.ExtractedSignals))
		for i, s := range a.ExtractedSignals {
			out.ExtractedSignals[i] = s.clone()
		}
	}
	if a.KeyInsights != nil {
		out.KeyInsights = append([]string{}, a.KeyInsights...)
	}
	return &out
}

// AnalysisReport is the structured object the generator returns for the
// analyze stage.
type AnalysisReport struct {
	Signals         []ReportedSignal `json:"signals" yaml:"signals" validate:"dive"`
	CompanyContext  string           `json:"companyContext" yaml:"companyContext" validate:"required"`
	RecommendedTone Tone             `json:"recommendedTone" yaml:"recommendedTone" validate:"required,oneof=formal casual friendly urgent"`
	KeyInsights     []string         `json:"keyInsights" yaml:"keyInsights" validate:"dive,required"`
}

// ReportedSignal is a signal as described by the generator, before ids and
// detection times are assigned.
type ReportedSignal struct {
	Type        SignalType `json:"type" yaml:"type" validate:"required,oneof=hiring funding techstack expansion news"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	Description string     `json:"description" yaml:"description"`
	Confidence  float64    `json:"confidence" yaml:"confidence" validate:"min=0,max=100"`
}

// Clone returns a deep copy.
func (r AnalysisReport) Clone() AnalysisReport {
	if r.Signals != nil {
		r.Signals = append([]ReportedSignal{}, r.Signals...)
	}
	if r.KeyInsights != nil {
		r.KeyInsights = append([]string{}, r.KeyInsights...)
	}
	return r
}

func ptr[T any](v T) *T { return &v }
