package stage

import "strings"

// redFlagKeywords are emergency patterns. Any hit aborts the workflow;
// these cases need a clinician now, not a drafted plan.
var redFlagKeywords = []string{
	"severe chest pain",
	"shortness of breath",
	"loss of consciousness",
	"suicidal",
	"stroke",
}

// RunSafety scans the note summary and transcript for red-flag patterns.
func RunSafety(note Note) SafetyReport {
	text := strings.ToLower(note.Summary + " " + note.Transcript)

	var flags []string
	for _, kw := range redFlagKeywords {
		if strings.Contains(text, kw) {
			flags = append(flags, "Red flag detected: "+kw)
		}
	}
	return SafetyReport{RedFlags: flags}
}
