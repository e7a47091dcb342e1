// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing any
// net/http code. Tests inject fixed values (notably time) the same way.
package requestcontext

import (
	"context"
	"time"

	id "careflow/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	patientIDKey   struct{}
	sessionIDKey   struct{}
	actorKey       struct{}
	tokenJTIKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyPatientID   = patientIDKey{}
	ContextKeySessionID   = sessionIDKey{}
	ContextKeyActor       = actorKey{}
	ContextKeyTokenJTI    = tokenJTIKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// PatientID retrieves the gate-verified patient ID from the context.
// Returns the zero value if the request carries no verified token.
func PatientID(ctx context.Context) id.PatientID {
	if patientID, ok := ctx.Value(ContextKeyPatientID).(id.PatientID); ok {
		return patientID
	}
	return id.PatientID{}
}

// WithPatientID stores the gate-verified patient ID in the context.
func WithPatientID(ctx context.Context, patientID id.PatientID) context.Context {
	return context.WithValue(ctx, ContextKeyPatientID, patientID)
}

// SessionID retrieves the token-bound session ID from the context.
func SessionID(ctx context.Context) id.SessionID {
	if sessionID, ok := ctx.Value(ContextKeySessionID).(id.SessionID); ok {
		return sessionID
	}
	return id.SessionID{}
}

// WithSessionID stores the token-bound session ID in the context.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// Actor retrieves the acting agent or reviewer name from the context.
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActor).(string); ok {
		return actor
	}
	return ""
}

// WithActor stores the acting agent or reviewer name in the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// TokenJTI retrieves the gate token's JTI from the context so session
// termination can revoke it.
func TokenJTI(ctx context.Context) string {
	if jti, ok := ctx.Value(ContextKeyTokenJTI).(string); ok {
		return jti
	}
	return ""
}

// WithTokenJTI stores the gate token's JTI in the context.
func WithTokenJTI(ctx context.Context, jti string) context.Context {
	return context.WithValue(ctx, ContextKeyTokenJTI, jti)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID stores the request correlation ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the injected request time when present, falling back to
// time.Now. Services use this so tests can pin the clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time in the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
