package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunSafety_FlagsEmergencyKeywords(t *testing.T) {
	report := RunSafety(Note{Summary: "patient reports severe chest pain since last night"})

	assert.True(t, report.HasRedFlags())
	assert.Equal(t, []string{"Red flag detected: severe chest pain"}, report.RedFlags)
}

func TestRunSafety_ScansTranscriptToo(t *testing.T) {
	report := RunSafety(Note{
		Summary:    "follow-up visit",
		Transcript: "mentioned a possible stroke last year and new shortness of breath",
	})

	assert.Len(t, report.RedFlags, 2)
	assert.Contains(t, report.RedFlags, "Red flag detected: stroke")
	assert.Contains(t, report.RedFlags, "Red flag detected: shortness of breath")
}

func TestRunSafety_CleanNoteHasNoFlags(t *testing.T) {
	report := RunSafety(Note{Summary: "mild fever and cough for two days"})

	assert.False(t, report.HasRedFlags())
	assert.Empty(t, report.RedFlags)
}

func TestRunSafety_CaseInsensitive(t *testing.T) {
	report := RunSafety(Note{Summary: "Patient felt SUICIDAL last week"})
	assert.True(t, report.HasRedFlags())
}
