package plan

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/steerfolio/steerfolio/internal/validate"
)

// PhaseKind labels the three execution phases.
type PhaseKind string

const (
	PhaseImmediate PhaseKind = "immediate"
	PhaseStaged    PhaseKind = "staged"
	PhaseSkipped   PhaseKind = "skipped"
)

// maxImmediateForStaged is how many phase-1 items may execute before the
// staged phase is deferred to a later session.
const maxImmediateForStaged = 3

// immediateMinAbsChange is the minimum absolute change for the immediate
// phase.
const immediateMinAbsChange = 5.0

// Phase is one ordered batch of changes.
type Phase struct {
	Kind    PhaseKind         `json:"kind"`
	Changes []validate.Change `json:"changes"`
	// Deferred marks a phase planned but not dispatched this session.
	Deferred bool   `json:"deferred"`
	Note     string `json:"note,omitempty"`
}

// Plan is the phased execution of a validated change set.
type Plan struct {
	ID           string  `json:"id"`
	Executable   bool    `json:"executable"`
	Phases       []Phase `json:"phases"`
	TotalChanges int     `json:"total_changes"`
}

// Planner converts a validation result into ordered phases.
type Planner struct{}

// NewPlanner returns a planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Build phases the validated change set by priority. An invalid result
// yields a non-executable plan with empty phases so callers still get a
// well-formed answer.
func (p *Planner) Build(res validate.Result) Plan {
	plan := Plan{ID: uuid.NewString()}
	if !res.Valid {
		log.Debug().Str("plan", plan.ID).Msg("validation failed, emitting non-executable plan")
		return plan
	}

	immediate := Phase{Kind: PhaseImmediate}
	staged := Phase{Kind: PhaseStaged}
	skipped := Phase{Kind: PhaseSkipped, Note: "below minimum order size, informational only"}

	for _, ch := range res.Changes {
		switch {
		case ch.SkipReason != "":
			skipped.Changes = append(skipped.Changes, ch)
		case ch.Priority == validate.PriorityHigh && ch.AbsoluteChange > immediateMinAbsChange:
			immediate.Changes = append(immediate.Changes, ch)
		case ch.Priority == validate.PriorityMedium:
			staged.Changes = append(staged.Changes, ch)
		}
	}

	// The staged phase executes now only when the immediate batch is
	// small enough; otherwise it waits for the next session.
	if len(immediate.Changes) > maxImmediateForStaged {
		staged.Deferred = true
		staged.Note = "deferred: immediate phase already carries enough turnover"
	}

	plan.Phases = []Phase{immediate, staged, skipped}
	plan.TotalChanges = len(immediate.Changes) + len(staged.Changes)
	plan.Executable = plan.TotalChanges > 0

	log.Info().
		Str("plan", plan.ID).
		Int("immediate", len(immediate.Changes)).
		Int("staged", len(staged.Changes)).
		Int("skipped", len(skipped.Changes)).
		Bool("staged_deferred", staged.Deferred).
		Msg("execution plan built")

	return plan
}
