package audit

import (
	"time"

	id "careflow/pkg/domain"
)

// Kind distinguishes committed state transitions from surfaced failures.
// Failures are observable but are not transitions: the session state did
// not change.
type Kind string

const (
	KindTransition Kind = "transition"
	KindFailure    Kind = "failure"
)

// Entry is one append-only audit record. Entries are never mutated or
// deleted; Seq totally orders entries within a session even when wall
// clocks collide.
type Entry struct {
	SessionID  id.SessionID
	Seq        uint64
	Stage      string
	PriorState string
	NewState   string
	Actor      string
	InputHash  string
	OutputHash string
	Timestamp  time.Time
	Kind       Kind
	Reason     string
}
