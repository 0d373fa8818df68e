package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Contact identifies the recipient of a draft.
type Contact struct {
	ID      string `json:"id" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"required"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
}

// Signal is a pre-existing or extracted buying signal.
type Signal struct {
	ID          string         `json:"id" validate:"required"`
	Type        SignalType     `json:"type" validate:"required,oneof=hiring funding techstack expansion news"`
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description" validate:"required"`
	Source      string         `json:"source,omitempty"`
	SourceURL   string         `json:"sourceUrl,omitempty" validate:"omitempty,url"`
	Confidence  int            `json:"confidence" validate:"min=0,max=100"`
	DetectedAt  time.Time      `json:"detectedAt" validate:"required"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Input seeds a run. It is never modified after seeding.
type Input struct {
	Contact Contact  `json:"contact"`
	Signals []Signal `json:"signals"`
	Context string   `json:"context,omitempty"`
}

// Clone returns a copy that shares no slices with in. Signal metadata maps
// are shallow-copied.
func (in Input) Clone() Input {
	out := in
	if in.Signals != nil {
		out.Signals = make([]Signal, len(in.Signals))
		for i, s := range in.Signals {
			out.Signals[i] = s.clone()
		}
	}
	return out
}

func (s Signal) clone() Signal {
	if s.Metadata != nil {
		md := make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			md[k] = v
		}
		s.Metadata = md
	}
	return s
}

// Submission is the request body of a draft run.
type Submission struct {
	Contact   Contact  `json:"contact"`
	Signals   []Signal `json:"signals" validate:"unique=ID,dive"`
	Context   string   `json:"context,omitempty" validate:"max=4000"`
	SessionID string   `json:"sessionId,omitempty" validate:"max=128"`
}

// DecodeSubmission reads exactly one submission object from r. Unknown
// fields and trailing data are rejected.
func DecodeSubmission(r io.Reader) (Submission, error) {
	var sub Submission
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sub); err != nil {
		return Submission{}, fmt.Errorf("decode submission: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Submission{}, errors.New("decode submission: unexpected data after the object")
	}
	return sub, nil
}

// Input returns the run input carried by the submission.
func (s Submission) Input() Input {
	signals := s.Signals
	if signals == nil {
		signals = []Signal{}
	}
	return Input{Contact: s.Contact, Signals: signals, Context: s.Context}.Clone()
}
