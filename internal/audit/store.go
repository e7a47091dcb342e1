package audit

import (
	"context"

	id "careflow/pkg/domain"
)

// Store persists audit entries. Append is the only write; ReadSession the
// only structured read. Implementations must reject sequence gaps and
// duplicates so the per-session order stays verifiable.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ReadSession(ctx context.Context, sessionID id.SessionID) ([]Entry, error)
	// LastSeq returns the highest sequence appended for the session, 0 when
	// the session has no entries.
	LastSeq(ctx context.Context, sessionID id.SessionID) (uint64, error)
}
