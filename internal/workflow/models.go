// Package workflow orchestrates a clinical session through the fixed
// stage chain. It owns the session state machine, per-session write
// serialization, stage retry policy, and the audit-before-commit rule.
package workflow

import (
	"encoding/json"
	"time"

	"careflow/internal/identity"
	"careflow/internal/stage"
	id "careflow/pkg/domain"
)

// State is a session's position in the workflow.
type State string

const (
	StateCreated             State = "created"
	StateAwaitingTranscript  State = "awaiting_transcript"
	StateScribed             State = "scribed"
	StateSymptomsExtracted   State = "symptoms_extracted"
	StatePlansReady          State = "plans_ready"
	StatePrescriptionDrafted State = "prescription_drafted"
	StateSafetyChecked       State = "safety_checked"
	StateApproved            State = "approved"
	StateAborted             State = "aborted"
	StateRejected            State = "rejected"
)

// Terminal reports whether the state accepts no further transitions.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateAborted || s == StateRejected
}

// ValidationStatus tracks reviewer disposition of a stage result.
type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "pending"
	ValidationAccepted ValidationStatus = "accepted"
	ValidationRejected ValidationStatus = "rejected"
)

// Session is one patient encounter moving through the chain.
type Session struct {
	ID           id.SessionID                `json:"id"`
	PatientID    id.PatientID                `json:"patient_id"`
	State        State                       `json:"state"`
	Verification identity.VerificationStatus `json:"verification"`

	// Transcript is set once by AttachTranscript and consumed by the
	// scribe stage.
	Transcript string `json:"transcript,omitempty"`

	// TokenExpiresAt bounds the gate token minted at verification. A
	// session whose token has lapsed degrades to expired and must
	// re-verify; it never advances on a stale token.
	TokenExpiresAt time.Time `json:"token_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageResult is one stage's output for a session. InputHash ties the
// result to the exact input it was computed from; once accepted the
// result is immutable.
type StageResult struct {
	SessionID  id.SessionID     `json:"session_id"`
	Stage      stage.Name       `json:"stage"`
	InputHash  string           `json:"input_hash"`
	OutputHash string           `json:"output_hash"`
	Payload    json.RawMessage  `json:"payload"`
	Agent      string           `json:"agent,omitempty"`
	Status     ValidationStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}
