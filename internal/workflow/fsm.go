package workflow

import (
	"careflow/internal/stage"
	dErrors "careflow/pkg/domain-errors"
)

// stageEntered maps each stage to the state its acceptance enters. The
// chain order is fixed; skips are impossible because Advance derives the
// stage to run from the current state.
var stageEntered = map[stage.Name]State{
	stage.Scribe:       StateScribed,
	stage.Symptoms:     StateSymptomsExtracted,
	stage.Planner:      StatePlansReady,
	stage.Prescription: StatePrescriptionDrafted,
	stage.Safety:       StateSafetyChecked,
}

// stageAfter maps each non-terminal working state to the stage Advance
// runs next. States absent from the map have no runnable stage.
var stageAfter = map[State]stage.Name{
	StateAwaitingTranscript:  stage.Scribe,
	StateScribed:             stage.Symptoms,
	StateSymptomsExtracted:   stage.Planner,
	StatePlansReady:          stage.Prescription,
	StatePrescriptionDrafted: stage.Safety,
}

// nextStage returns the stage to run from the given state, or an
// invalid_transition error when the state has none.
func nextStage(from State) (stage.Name, error) {
	if from.Terminal() {
		return "", dErrors.Newf(dErrors.CodeInvalidTransition, "session is terminal in state %s", from)
	}
	name, ok := stageAfter[from]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidTransition, "no stage to run from state %s", from)
	}
	return name, nil
}

// stageEnteringState returns the stage whose acceptance enters the given
// state, if any. Used by recovery to tell whether an audited stage
// transition actually persisted its result.
func stageEnteringState(st State) (stage.Name, bool) {
	for name, entered := range stageEntered {
		if entered == st {
			return name, true
		}
	}
	return "", false
}

// guardTransition validates a requested non-stage transition. Stage
// transitions are derived, not requested, so they never pass through
// here.
func guardTransition(from, to State) error {
	if from.Terminal() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "session is terminal in state %s", from)
	}
	switch to {
	case StateAwaitingTranscript:
		if from != StateCreated {
			return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot verify from state %s", from)
		}
	case StateApproved:
		if from != StateSafetyChecked {
			return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot approve from state %s", from)
		}
	case StateAborted, StateRejected:
		// Reachable from any non-terminal state.
	default:
		return dErrors.Newf(dErrors.CodeInvalidTransition, "transition %s -> %s is not requestable", from, to)
	}
	return nil
}
