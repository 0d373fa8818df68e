// Package state holds the per-run working memory of the pipeline and the
// rules for merging stage updates into it.
package state

import (
	"github.com/example/draft-agent/internal/models"
)

// State is owned by exactly one run.
type State struct {
	Input    models.Input           `json:"input"`
	Research *models.ResearchResult `json:"research"`
	Analysis *models.AnalysisResult `json:"analysis"`
	Draft    *models.Draft          `json:"draft"`
	Progress models.Progress        `json:"progress"`
	Errors   []string               `json:"errors"`
}

// New seeds a state from caller input with every stage pending.
func New(in models.Input) *State {
	return &State{
		Input:    in.Clone(),
		Progress: models.NewProgress(),
		Errors:   []string{},
	}
}

// Snapshot returns a deep copy that stages may read without touching s.
func (s *State) Snapshot() *State {
	return &State{
		Input:    s.Input.Clone(),
		Research: s.Research.Clone(),
		Analysis: s.Analysis.Clone(),
		Draft:    s.Draft.Clone(),
		Progress: s.Progress.Clone(),
		Errors:   append([]string{}, s.Errors...),
	}
}

// Status returns the progress status of stage, pending if unknown.
func (s *State) Status(stage models.Stage) models.NodeStatus {
	if st, ok := s.Progress[stage]; ok {
		return st
	}
	return models.StatusPending
}

// Update is the partial state a stage returns. Nil and empty fields are
// absent and leave the state untouched.
type Update struct {
	Stage    models.Stage
	Progress models.Progress
	Research *models.ResearchResult
	Analysis *models.AnalysisResult
	Draft    *models.Draft
	Errors   []string
}

// StatusFor returns the status the update reports for its own stage.
func (u Update) StatusFor(stage models.Stage) (models.NodeStatus, bool) {
	st, ok := u.Progress[stage]
	return st, ok
}

// WithStatus returns a copy of u with stage's progress set to status.
func (u Update) WithStatus(stage models.Stage, status models.NodeStatus) Update {
	p := u.Progress.Clone()
	if p == nil {
		p = models.Progress{}
	}
	p[stage] = status
	u.Progress = p
	return u
}
