package state

import "github.com/example/draft-agent/internal/models"

// Field names a State field as it appears on the wire.
type Field string

const (
	FieldProgress Field = "progress"
	FieldResearch Field = "research"
	FieldAnalysis Field = "analysis"
	FieldDraft    Field = "draft"
	FieldErrors   Field = "errors"
)

// Strategy is how an update value combines with the existing field.
type Strategy string

const (
	Replace      Strategy = "replace"
	ShallowMerge Strategy = "shallow-merge"
	Append       Strategy = "append"
)

type rule struct {
	field    Field
	strategy Strategy
	merge    func(s *State, u *Update) bool
}

// rules is applied in order; Apply reports changed fields in this order.
var rules = []rule{
	{FieldProgress, ShallowMerge, mergeProgress},
	{FieldResearch, Replace, func(s *State, u *Update) bool {
		if u.Research == nil {
			return false
		}
		s.Research = u.Research.Clone()
		return true
	}},
	{FieldAnalysis, Replace, func(s *State, u *Update) bool {
		if u.Analysis == nil {
			return false
		}
		s.Analysis = u.Analysis.Clone()
		return true
	}},
	{FieldDraft, Replace, func(s *State, u *Update) bool {
		if u.Draft == nil {
			return false
		}
		s.Draft = u.Draft.Clone()
		return true
	}},
	{FieldErrors, Append, func(s *State, u *Update) bool {
		if len(u.Errors) == 0 {
			return false
		}
		s.Errors = append(s.Errors, u.Errors...)
		return true
	}},
}

// StrategyFor returns the merge strategy declared for f.
func StrategyFor(f Field) (Strategy, bool) {
	for _, r := range rules {
		if r.field == f {
			return r.strategy, true
		}
	}
	return "", false
}

// Apply merges u into s and returns the fields that changed. It never fails;
// an update with nothing recognisable is a no-op.
func Apply(s *State, u Update) []Field {
	if s == nil {
		return nil
	}
	var changed []Field
	for _, r := range rules {
		if r.merge(s, &u) {
			changed = append(changed, r.field)
		}
	}
	return changed
}

// mergeProgress overwrites only the keys present in the update. A status
// never moves backwards and a terminal status is final.
func mergeProgress(s *State, u *Update) bool {
	if len(u.Progress) == 0 {
		return false
	}
	if s.Progress == nil {
		s.Progress = models.Progress{}
	}
	changed := false
	for stage, next := range u.Progress {
		if next.Rank() < 0 {
			continue
		}
		cur, ok := s.Progress[stage]
		if ok && (cur.Terminal() || next.Rank() < cur.Rank()) {
			continue
		}
		if ok && cur == next {
			continue
		}
		s.Progress[stage] = next
		changed = true
	}
	return changed
}
