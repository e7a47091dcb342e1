package emr

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"careflow/internal/dispatch"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

// Table emr_records is append-only: inserts only, and a partial unique
// index on session_id where supersedes_id is null enforces one original
// commit per session. Corrections insert further rows carrying
// supersedes_id; reads by session return the newest row.
const (
	insertRecord = `
		INSERT INTO emr_records
			(record_id, session_id, patient_id, results, approved_at, supersedes_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectBySession = `
		SELECT record_id, session_id, patient_id, results, approved_at, supersedes_id
		FROM emr_records
		WHERE session_id = $1
		ORDER BY pos DESC
		LIMIT 1`

	selectByPatient = `
		SELECT record_id, session_id, patient_id, results, approved_at, supersedes_id
		FROM emr_records
		WHERE patient_id = $1
		ORDER BY pos ASC`

	existsForSession = `
		SELECT EXISTS (SELECT 1 FROM emr_records WHERE session_id = $1)`
)

// PostgresStore is the PostgreSQL-backed EMR record store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record dispatch.EMRRecord) error {
	err := s.insert(ctx, record, nil)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("EMR record for session %s: %w", record.SessionID, sentinel.ErrDuplicate)
		}
		return fmt.Errorf("append EMR record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Supersede(ctx context.Context, record dispatch.EMRRecord) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, existsForSession, record.SessionID.String()).Scan(&exists); err != nil {
		return fmt.Errorf("check EMR record exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("EMR record for session %s: %w", record.SessionID, sentinel.ErrNotFound)
	}
	supersedes := record.Supersedes.String()
	if err := s.insert(ctx, record, &supersedes); err != nil {
		return fmt.Errorf("append EMR correction: %w", err)
	}
	return nil
}

func (s *PostgresStore) insert(ctx context.Context, record dispatch.EMRRecord, supersedes *string) error {
	results, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	_, err = s.db.ExecContext(ctx, insertRecord,
		record.ID.String(),
		record.SessionID.String(),
		record.PatientID.String(),
		results,
		record.ApprovedAt.UTC(),
		supersedes,
	)
	return err
}

func (s *PostgresStore) FindBySession(ctx context.Context, sessionID id.SessionID) (dispatch.EMRRecord, error) {
	record, err := scanRecord(s.db.QueryRowContext(ctx, selectBySession, sessionID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dispatch.EMRRecord{}, fmt.Errorf("EMR record for session %s: %w", sessionID, sentinel.ErrNotFound)
		}
		return dispatch.EMRRecord{}, err
	}
	return record, nil
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID id.PatientID) ([]dispatch.EMRRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectByPatient, patientID.String())
	if err != nil {
		return nil, fmt.Errorf("list EMR records: %w", err)
	}
	defer rows.Close()

	var records []dispatch.EMRRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (dispatch.EMRRecord, error) {
	var (
		record        dispatch.EMRRecord
		rawRecord     string
		rawSession    string
		rawPatient    string
		rawResults    []byte
		approvedAt    time.Time
		rawSupersedes sql.NullString
	)
	if err := row.Scan(&rawRecord, &rawSession, &rawPatient, &rawResults, &approvedAt, &rawSupersedes); err != nil {
		return dispatch.EMRRecord{}, err
	}

	recordID, err := id.ParseRecordID(rawRecord)
	if err != nil {
		return dispatch.EMRRecord{}, fmt.Errorf("corrupt record id in EMR row: %w", err)
	}
	sessionID, err := id.ParseSessionID(rawSession)
	if err != nil {
		return dispatch.EMRRecord{}, fmt.Errorf("corrupt session id in EMR row: %w", err)
	}
	patientID, err := id.ParsePatientID(rawPatient)
	if err != nil {
		return dispatch.EMRRecord{}, fmt.Errorf("corrupt patient id in EMR row: %w", err)
	}
	if err := json.Unmarshal(rawResults, &record.Results); err != nil {
		return dispatch.EMRRecord{}, fmt.Errorf("decode results: %w", err)
	}
	if rawSupersedes.Valid {
		supersedes, err := id.ParseRecordID(rawSupersedes.String)
		if err != nil {
			return dispatch.EMRRecord{}, fmt.Errorf("corrupt supersedes id in EMR row: %w", err)
		}
		record.Supersedes = supersedes
	}

	record.ID = recordID
	record.SessionID = sessionID
	record.PatientID = patientID
	record.ApprovedAt = approvedAt
	return record, nil
}
