package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"careflow/internal/dispatch"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

// Table pharmacy_orders is append-only with a unique session_id, so the
// database enforces at-most-once dispatch even with concurrent writers.
const (
	insertOrder = `
		INSERT INTO pharmacy_orders
			(order_id, record_id, session_id, patient_id, prescription, dispatched_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectBySession = `
		SELECT order_id, record_id, session_id, patient_id, prescription, dispatched_at
		FROM pharmacy_orders
		WHERE session_id = $1`

	selectByPatient = `
		SELECT order_id, record_id, session_id, patient_id, prescription, dispatched_at
		FROM pharmacy_orders
		WHERE patient_id = $1
		ORDER BY pos ASC`
)

// PostgresStore is the PostgreSQL-backed pharmacy order store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, order dispatch.PharmacyOrder) error {
	_, err := s.db.ExecContext(ctx, insertOrder,
		order.ID.String(),
		order.RecordID.String(),
		order.SessionID.String(),
		order.PatientID.String(),
		order.Prescription,
		order.DispatchedAt.UTC(),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("pharmacy order for session %s: %w", order.SessionID, sentinel.ErrDuplicate)
		}
		return fmt.Errorf("append pharmacy order: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindBySession(ctx context.Context, sessionID id.SessionID) (dispatch.PharmacyOrder, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, selectBySession, sessionID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dispatch.PharmacyOrder{}, fmt.Errorf("pharmacy order for session %s: %w", sessionID, sentinel.ErrNotFound)
		}
		return dispatch.PharmacyOrder{}, err
	}
	return order, nil
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID id.PatientID) ([]dispatch.PharmacyOrder, error) {
	rows, err := s.db.QueryContext(ctx, selectByPatient, patientID.String())
	if err != nil {
		return nil, fmt.Errorf("list pharmacy orders: %w", err)
	}
	defer rows.Close()

	var orders []dispatch.PharmacyOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (dispatch.PharmacyOrder, error) {
	var (
		order        dispatch.PharmacyOrder
		rawOrder     string
		rawRecord    string
		rawSession   string
		rawPatient   string
		dispatchedAt time.Time
	)
	if err := row.Scan(&rawOrder, &rawRecord, &rawSession, &rawPatient, &order.Prescription, &dispatchedAt); err != nil {
		return dispatch.PharmacyOrder{}, err
	}

	orderID, err := id.ParseOrderID(rawOrder)
	if err != nil {
		return dispatch.PharmacyOrder{}, fmt.Errorf("corrupt order id in pharmacy row: %w", err)
	}
	recordID, err := id.ParseRecordID(rawRecord)
	if err != nil {
		return dispatch.PharmacyOrder{}, fmt.Errorf("corrupt record id in pharmacy row: %w", err)
	}
	sessionID, err := id.ParseSessionID(rawSession)
	if err != nil {
		return dispatch.PharmacyOrder{}, fmt.Errorf("corrupt session id in pharmacy row: %w", err)
	}
	patientID, err := id.ParsePatientID(rawPatient)
	if err != nil {
		return dispatch.PharmacyOrder{}, fmt.Errorf("corrupt patient id in pharmacy row: %w", err)
	}

	order.ID = orderID
	order.RecordID = recordID
	order.SessionID = sessionID
	order.PatientID = patientID
	order.DispatchedAt = dispatchedAt
	return order, nil
}
