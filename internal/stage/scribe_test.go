package stage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunScribe_ShortTranscriptIsItsOwnSummary(t *testing.T) {
	note := RunScribe("  patient reports fever for 3 days  ")

	assert.Equal(t, "patient reports fever for 3 days", note.Transcript)
	assert.Equal(t, note.Transcript, note.Summary)
}

func TestRunScribe_LongTranscriptIsTruncatedToSummaryLimit(t *testing.T) {
	long := strings.Repeat("patient reports ongoing symptoms. ", 20)
	note := RunScribe(long)

	assert.Len(t, note.Summary, summaryLimit)
	assert.True(t, strings.HasPrefix(note.Transcript, note.Summary))
}

func TestRunScribe_Deterministic(t *testing.T) {
	first := RunScribe("same transcript")
	second := RunScribe("same transcript")
	assert.Equal(t, first, second)
}
