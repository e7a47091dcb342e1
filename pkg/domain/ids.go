// Package domain defines the typed identifiers shared across careflow.
//
// IDs are distinct types over uuid.UUID so a SessionID can never be passed
// where a PatientID is expected. Parse functions enforce the trust-boundary
// invariant: IDs must be valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "careflow/pkg/domain-errors"
)

type (
	// SessionID identifies one consultation workflow instance.
	SessionID uuid.UUID
	// PatientID identifies an enrolled patient.
	PatientID uuid.UUID
	// ResultID identifies a single stage result within a session.
	ResultID uuid.UUID
	// RecordID identifies a committed EMR record.
	RecordID uuid.UUID
	// OrderID identifies a dispatched pharmacy order.
	OrderID uuid.UUID
)

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id PatientID) String() string { return uuid.UUID(id).String() }
func (id ResultID) String() string  { return uuid.UUID(id).String() }
func (id RecordID) String() string  { return uuid.UUID(id).String() }
func (id OrderID) String() string   { return uuid.UUID(id).String() }

func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PatientID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ResultID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id OrderID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// IDs travel as their canonical UUID string on the wire.
func (id SessionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id PatientID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ResultID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id RecordID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id OrderID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PatientID) UnmarshalText(b []byte) error {
	parsed, err := ParsePatientID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ResultID) UnmarshalText(b []byte) error {
	parsed, err := ParseResultID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RecordID) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *OrderID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewPatientID returns a fresh random patient ID.
func NewPatientID() PatientID { return PatientID(uuid.New()) }

// NewResultID returns a fresh random stage result ID.
func NewResultID() ResultID { return ResultID(uuid.New()) }

// NewRecordID returns a fresh random EMR record ID.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewOrderID returns a fresh random pharmacy order ID.
func NewOrderID() OrderID { return OrderID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseSessionID parses and validates a session ID from its string form.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(parsed), nil
}

// ParsePatientID parses and validates a patient ID from its string form.
func ParsePatientID(raw string) (PatientID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return PatientID{}, err
	}
	return PatientID(parsed), nil
}

// ParseResultID parses and validates a stage result ID from its string form.
func ParseResultID(raw string) (ResultID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return ResultID{}, err
	}
	return ResultID(parsed), nil
}

// ParseRecordID parses and validates an EMR record ID from its string form.
func ParseRecordID(raw string) (RecordID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return RecordID{}, err
	}
	return RecordID(parsed), nil
}

// ParseOrderID parses and validates a pharmacy order ID from its string form.
func ParseOrderID(raw string) (OrderID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return OrderID{}, err
	}
	return OrderID(parsed), nil
}
