// Package stage holds the clinical reasoning logic for each workflow
// stage. Everything here is pure domain logic - no I/O, no side effects -
// so stage execution is deterministic and retries are safe by
// construction. Adapter calls (speech-to-text, guideline search) happen
// in the orchestrator before these functions run.
package stage

import "careflow/internal/guideline"

// Name identifies a workflow stage.
type Name string

const (
	Scribe       Name = "scribe"
	Symptoms     Name = "symptom-extraction"
	Planner      Name = "planner"
	Prescription Name = "prescription"
	Safety       Name = "safety"
)

// Chain is the fixed stage order. A stage cannot run before its
// predecessor's result is accepted.
var Chain = []Name{Scribe, Symptoms, Planner, Prescription, Safety}

// Note is the Scribe stage output.
type Note struct {
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

// SymptomReport is the Symptom-Extraction stage output: canonical
// symptoms in first-seen order.
type SymptomReport struct {
	Symptoms []string `json:"symptoms"`
}

// Plan is the Planner stage output. GuidelineHits records the advisory
// passages the plan drew on.
type Plan struct {
	SuggestedTests []string            `json:"suggested_tests"`
	GuidelineHits  []guideline.Passage `json:"guideline_hits,omitempty"`
}

// Draft is the Prescription stage output.
type Draft struct {
	Prescription string `json:"prescription"`
}

// SafetyReport is the Safety stage output. Any red flag forces the
// session into its terminal aborted state.
type SafetyReport struct {
	RedFlags []string `json:"red_flags,omitempty"`
}

// HasRedFlags reports whether the safety check found anything.
func (r SafetyReport) HasRedFlags() bool { return len(r.RedFlags) > 0 }
