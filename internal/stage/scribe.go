package stage

import "strings"

// summaryLimit bounds the naive summary taken from the transcript head.
const summaryLimit = 250

// RunScribe turns a raw transcript into a note. Until a richer
// summarizer is plugged in, the summary is the leading portion of the
// transcript.
func RunScribe(transcript string) Note {
	transcript = strings.TrimSpace(transcript)
	summary := transcript
	if len(summary) > summaryLimit {
		summary = summary[:summaryLimit]
	}
	return Note{
		Transcript: transcript,
		Summary:    summary,
	}
}
