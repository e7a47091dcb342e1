package identity

import (
	"time"

	id "careflow/pkg/domain"
)

// VerificationStatus is the gate outcome attached to a session.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusVerified   VerificationStatus = "verified"
	StatusExpired    VerificationStatus = "expired"
)

// Template is a stored biometric reference for one patient: a fixed-size
// vector of normalized intensities in [0,1]. How image bytes become a
// template is the decoder adapter's concern.
type Template []float32

// Sample is a raw biometric capture plus the claimed patient.
type Sample struct {
	PatientID id.PatientID
	Data      []byte
}

// VerificationResult is the gate's answer for one sample.
type VerificationResult struct {
	Status     VerificationStatus
	Confidence float64
	Token      string
	ExpiresAt  time.Time
}

// Enrollment records a stored template.
type Enrollment struct {
	PatientID  id.PatientID
	Template   Template
	EnrolledAt time.Time
}
