package stage

import (
	"fmt"
	"strings"
)

// RunPrescription drafts a provisional prescription from the extracted
// symptoms and note summary. Medication choice stays with the physician;
// the draft is a reviewed artifact, never dispatched unreviewed.
func RunPrescription(report SymptomReport, note Note) Draft {
	symptoms := "unspecified symptoms"
	if len(report.Symptoms) > 0 {
		symptoms = strings.Join(report.Symptoms, ", ")
	}

	summary := note.Summary
	if len(summary) > 200 {
		summary = summary[:200]
	}

	draft := fmt.Sprintf(
		"Provisional prescription for %s.\n"+
			"Note summary: %s...\n\n"+
			"Medications:\n"+
			"- (To be decided by physician)\n\n"+
			"Instructions:\n"+
			"- Follow up if symptoms worsen.\n",
		symptoms, summary,
	)

	return Draft{Prescription: draft}
}
