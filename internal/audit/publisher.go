// Package audit is the append-only record of every stage transition. A
// transition is not committed until its entry is durably appended, so the
// log is the source of truth for crash recovery.
package audit

import (
	"context"
	"fmt"
	"time"

	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
)

// Publisher assigns per-session sequence numbers and appends entries
// synchronously. It is the only writer to the store.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit stamps the next sequence number and appends the entry. Callers
// hold the session's single-writer lock, which serializes the
// read-increment-append path per session without a global lock.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.SessionID.IsNil() {
		return fmt.Errorf("audit entry without session id: %w", sentinel.ErrInvalidState)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Kind == "" {
		entry.Kind = KindTransition
	}

	last, err := p.store.LastSeq(ctx, entry.SessionID)
	if err != nil {
		return err
	}
	entry.Seq = last + 1
	return p.store.Append(ctx, entry)
}

// ReadSession returns the session's entries ordered by sequence.
func (p *Publisher) ReadSession(ctx context.Context, sessionID id.SessionID) ([]Entry, error) {
	return p.store.ReadSession(ctx, sessionID)
}

// Last returns the most recent entry for a session, or ErrNotFound when
// the session has no entries yet.
func (p *Publisher) Last(ctx context.Context, sessionID id.SessionID) (Entry, error) {
	entries, err := p.store.ReadSession(ctx, sessionID)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, sentinel.ErrNotFound
	}
	return entries[len(entries)-1], nil
}
