package httptransport

import (
	"time"

	"careflow/internal/audit"
	"careflow/internal/identity"
)

type verifyResponse struct {
	Status     identity.VerificationStatus `json:"status"`
	Confidence float64                     `json:"confidence"`
	Token      string                      `json:"token,omitempty"`
	ExpiresAt  time.Time                   `json:"expires_at,omitempty"`
}

type auditEntryResponse struct {
	Seq        uint64    `json:"seq"`
	Stage      string    `json:"stage"`
	PriorState string    `json:"prior_state"`
	NewState   string    `json:"new_state"`
	Actor      string    `json:"actor"`
	InputHash  string    `json:"input_hash,omitempty"`
	OutputHash string    `json:"output_hash,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason,omitempty"`
}

func toAuditResponse(entries []audit.Entry) []auditEntryResponse {
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			Seq:        e.Seq,
			Stage:      e.Stage,
			PriorState: e.PriorState,
			NewState:   e.NewState,
			Actor:      e.Actor,
			InputHash:  e.InputHash,
			OutputHash: e.OutputHash,
			Timestamp:  e.Timestamp,
			Kind:       string(e.Kind),
			Reason:     e.Reason,
		})
	}
	return out
}
