// Package postgres implements the audit store on PostgreSQL. The table is
// append-only: inserts only, a unique (session_id, seq) constraint
// rejects gaps racing in from a second writer, and nothing ever updates
// or deletes rows.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"careflow/internal/audit"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

const (
	insertEntry = `
		INSERT INTO audit_entries
			(session_id, seq, stage, prior_state, new_state, actor, input_hash, output_hash, occurred_at, kind, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	selectSession = `
		SELECT session_id, seq, stage, prior_state, new_state, actor, input_hash, output_hash, occurred_at, kind, reason
		FROM audit_entries
		WHERE session_id = $1
		ORDER BY seq ASC`

	selectLastSeq = `
		SELECT COALESCE(MAX(seq), 0)
		FROM audit_entries
		WHERE session_id = $1`
)

// Store is the PostgreSQL-backed audit store.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	_, err := s.db.ExecContext(ctx, insertEntry,
		entry.SessionID.String(),
		entry.Seq,
		entry.Stage,
		entry.PriorState,
		entry.NewState,
		entry.Actor,
		entry.InputHash,
		entry.OutputHash,
		entry.Timestamp.UTC(),
		string(entry.Kind),
		entry.Reason,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("audit entry seq %d already exists for session %s: %w",
				entry.Seq, entry.SessionID, sentinel.ErrConflict)
		}
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ReadSession(ctx context.Context, sessionID id.SessionID) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectSession, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("read audit session: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry      audit.Entry
			rawSession string
			rawKind    string
			occurredAt time.Time
		)
		if err := rows.Scan(
			&rawSession,
			&entry.Seq,
			&entry.Stage,
			&entry.PriorState,
			&entry.NewState,
			&entry.Actor,
			&entry.InputHash,
			&entry.OutputHash,
			&occurredAt,
			&rawKind,
			&entry.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		parsed, err := id.ParseSessionID(rawSession)
		if err != nil {
			return nil, fmt.Errorf("corrupt session id in audit row: %w", err)
		}
		entry.SessionID = parsed
		entry.Kind = audit.Kind(rawKind)
		entry.Timestamp = occurredAt
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) LastSeq(ctx context.Context, sessionID id.SessionID) (uint64, error) {
	var last uint64
	if err := s.db.QueryRowContext(ctx, selectLastSeq, sessionID.String()).Scan(&last); err != nil {
		return 0, fmt.Errorf("read last audit seq: %w", err)
	}
	return last, nil
}
