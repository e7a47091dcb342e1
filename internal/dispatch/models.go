// Package dispatch commits approved sessions to downstream systems: the
// EMR store and the pharmacy. Both targets are append-only and
// deduplicate by session, so re-driving an approval after a crash or a
// double-click cannot produce a second record or order.
package dispatch

import (
	"time"

	id "careflow/pkg/domain"
)

// EMRRecord is one committed clinical record. Records are never updated;
// a correction is a new record referencing the original via Supersedes.
type EMRRecord struct {
	ID         id.RecordID       `json:"id"`
	PatientID  id.PatientID      `json:"patient_id"`
	SessionID  id.SessionID      `json:"session_id"`
	Results    map[string]string `json:"results"`
	ApprovedAt time.Time         `json:"approved_at"`
	Supersedes id.RecordID       `json:"supersedes,omitempty"`
}

// PharmacyOrder is one dispatched prescription order, bound to the EMR
// record it was approved under.
type PharmacyOrder struct {
	ID           id.OrderID   `json:"id"`
	RecordID     id.RecordID  `json:"record_id"`
	SessionID    id.SessionID `json:"session_id"`
	PatientID    id.PatientID `json:"patient_id"`
	Prescription string       `json:"prescription"`
	DispatchedAt time.Time    `json:"dispatched_at"`
}
