package pipeline

import (
	"fmt"

	"github.com/ppiankov/claimlens/internal/model"
)

// Phase is the orchestrator state
type Phase string

const (
	PhaseGathering   Phase = "gathering"
	PhaseJudging     Phase = "judging"
	PhaseAggregating Phase = "aggregating"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Terminal reports whether no further transition is possible
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

var transitions = map[Phase][]Phase{
	PhaseGathering:   {PhaseJudging, PhaseFailed},
	PhaseJudging:     {PhaseAggregating, PhaseFailed},
	PhaseAggregating: {PhaseDone, PhaseFailed},
}

// RunState is the mutable state of one run. It is owned by a single goroutine.
type RunState struct {
	ID       string
	Phase    Phase
	Evidence model.Evidence
	Reviews  []model.SentenceReview
	Err      *model.ErrorInfo
}

// NewRunState starts a run in the gathering phase
func NewRunState(id string) *RunState {
	return &RunState{ID: id, Phase: PhaseGathering}
}

// Transition moves to the next phase
func (s *RunState) Transition(to Phase) error {
	for _, allowed := range transitions[s.Phase] {
		if allowed == to {
			s.Phase = to
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s -> %s", s.Phase, to)
}

// Fail records info and moves to the failed phase from any non-terminal phase
func (s *RunState) Fail(info model.ErrorInfo) {
	if s.Phase.Terminal() {
		return
	}
	s.Err = &info
	s.Phase = PhaseFailed
}

// Append adds the next review. Reviews must arrive in sentence order.
func (s *RunState) Append(review model.SentenceReview) error {
	if s.Phase != PhaseJudging {
		return fmt.Errorf("append review in phase %s", s.Phase)
	}
	if review.SentenceIndex != len(s.Reviews) {
		return fmt.Errorf("review for sentence %d out of order, expected %d", review.SentenceIndex, len(s.Reviews))
	}
	s.Reviews = append(s.Reviews, review)
	return nil
}

// Release drops the evidence held by the run
func (s *RunState) Release() {
	s.Evidence = nil
}
