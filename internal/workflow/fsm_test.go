package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careflow/internal/stage"
	dErrors "careflow/pkg/domain-errors"
)

func TestNextStage_FollowsChainOrder(t *testing.T) {
	cases := []struct {
		from State
		want stage.Name
	}{
		{StateAwaitingTranscript, stage.Scribe},
		{StateScribed, stage.Symptoms},
		{StateSymptomsExtracted, stage.Planner},
		{StatePlansReady, stage.Prescription},
		{StatePrescriptionDrafted, stage.Safety},
	}
	for _, tc := range cases {
		got, err := nextStage(tc.from)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestNextStage_NoStageFromCreatedOrTerminal(t *testing.T) {
	for _, from := range []State{StateCreated, StateSafetyChecked, StateApproved, StateAborted, StateRejected} {
		_, err := nextStage(from)
		require.Error(t, err, "state %s", from)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	}
}

func TestGuardTransition_ApproveOnlyFromSafetyChecked(t *testing.T) {
	require.NoError(t, guardTransition(StateSafetyChecked, StateApproved))

	for _, from := range []State{StateCreated, StateScribed, StatePlansReady, StatePrescriptionDrafted} {
		err := guardTransition(from, StateApproved)
		require.Error(t, err, "state %s", from)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	}
}

func TestGuardTransition_TerminalStatesAcceptNothing(t *testing.T) {
	for _, from := range []State{StateApproved, StateAborted, StateRejected} {
		for _, to := range []State{StateAwaitingTranscript, StateApproved, StateAborted, StateRejected} {
			err := guardTransition(from, to)
			require.Error(t, err, "%s -> %s", from, to)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		}
	}
}

func TestGuardTransition_RejectReachableFromAnyWorkingState(t *testing.T) {
	for _, from := range []State{StateCreated, StateAwaitingTranscript, StateScribed, StateSymptomsExtracted, StatePlansReady, StatePrescriptionDrafted, StateSafetyChecked} {
		assert.NoError(t, guardTransition(from, StateRejected), "state %s", from)
		assert.NoError(t, guardTransition(from, StateAborted), "state %s", from)
	}
}

func TestGuardTransition_StageStatesNotRequestable(t *testing.T) {
	err := guardTransition(StateScribed, StatePlansReady)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateApproved.Terminal())
	assert.True(t, StateAborted.Terminal())
	assert.True(t, StateRejected.Terminal())
	assert.False(t, StateCreated.Terminal())
	assert.False(t, StateSafetyChecked.Terminal())
}
