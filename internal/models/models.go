package models

// Stage names a pipeline stage. The value doubles as the progress key and
// the node name on streamed events.
type Stage string

const (
	StageResearch Stage = "research"
	StageAnalyze  Stage = "analyze"
	StageCompose  Stage = "compose"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageResearch, StageAnalyze, StageCompose}

// NodeStatus is the lifecycle status of one stage within a run.
type NodeStatus string

const (
	StatusPending   NodeStatus = "pending"
	StatusRunning   NodeStatus = "running"
	StatusCompleted NodeStatus = "completed"
	StatusError     NodeStatus = "error"
)

// Rank orders statuses along pending -> running -> {completed, error}.
// Unknown statuses rank below pending.
func (s NodeStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusError:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether s ends a stage.
func (s NodeStatus) Terminal() bool { return s == StatusCompleted || s == StatusError }

// Progress maps each stage to its status.
type Progress map[Stage]NodeStatus

// NewProgress returns a progress map with every stage pending.
func NewProgress() Progress {
	p := make(Progress, len(Stages))
	for _, s := range Stages {
		p[s] = StatusPending
	}
	return p
}

// Clone returns an independent copy.
func (p Progress) Clone() Progress {
	if p == nil {
		return nil
	}
	out := make(Progress, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// SignalType is the category of a buying signal.
type SignalType string

const (
	SignalHiring    SignalType = "hiring"
	SignalFunding   SignalType = "funding"
	SignalTechstack SignalType = "techstack"
	SignalExpansion SignalType = "expansion"
	SignalNews      SignalType = "news"
)

// Tone is the register of an outreach email.
type Tone string

const (
	ToneFormal   Tone = "formal"
	ToneCasual   Tone = "casual"
	ToneFriendly Tone = "friendly"
	ToneUrgent   Tone = "urgent"
)
