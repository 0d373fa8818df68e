package orchestrator

import (
	"time"

	"github.com/example/draft-agent/internal/models"
)

// Hooks observe a run. Every field is optional.
type Hooks struct {
	OnRunStart   func()
	OnStageStart func(stage models.Stage)
	OnStageEnd   func(stage models.Stage, status models.NodeStatus, elapsed time.Duration)
	OnRunEnd     func(outcome models.Outcome)
}

// ChainHooks calls each hook set in order.
func ChainHooks(hs ...Hooks) Hooks {
	return Hooks{
		OnRunStart: func() {
			for _, h := range hs {
				h.runStart()
			}
		},
		OnStageStart: func(stage models.Stage) {
			for _, h := range hs {
				h.stageStart(stage)
			}
		},
		OnStageEnd: func(stage models.Stage, status models.NodeStatus, elapsed time.Duration) {
			for _, h := range hs {
				h.stageEnd(stage, status, elapsed)
			}
		},
		OnRunEnd: func(outcome models.Outcome) {
			for _, h := range hs {
				h.runEnd(outcome)
			}
		},
	}
}

func (h Hooks) runStart() {
	if h.OnRunStart != nil {
		h.OnRunStart()
	}
}

func (h Hooks) stageStart(stage models.Stage) {
	if h.OnStageStart != nil {
		h.OnStageStart(stage)
	}
}

func (h Hooks) stageEnd(stage models.Stage, status models.NodeStatus, elapsed time.Duration) {
	if h.OnStageEnd != nil {
		h.OnStageEnd(stage, status, elapsed)
	}
}

func (h Hooks) runEnd(outcome models.Outcome) {
	if h.OnRunEnd != nil {
		h.OnRunEnd(outcome)
	}
}
