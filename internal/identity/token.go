package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "careflow/pkg/domain"
	dErrors "careflow/pkg/domain-errors"
	authmw "careflow/pkg/platform/middleware/auth"
)

// Claims are the JWT claims carried by a gate token.
type Claims struct {
	PatientID string `json:"patient_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// RevocationList tracks revoked token JTIs until their natural expiry.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenService mints and validates gate tokens. Tokens are stateless to
// verify (signed) with a server-held revocation list so termination can
// revoke them before expiry.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	revocation RevocationList
}

func NewTokenService(signingKey string, issuer string, ttl time.Duration, revocation RevocationList) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		revocation: revocation,
	}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Generate mints a gate token bound to the patient and session.
func (s *TokenService) Generate(patientID id.PatientID, sessionID id.SessionID, now time.Time) (token string, jti string, expiresAt time.Time, err error) {
	jti = uuid.NewString()
	expiresAt = now.Add(s.ttl)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PatientID: patientID.String(),
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})

	token, err = newToken.SignedString(s.signingKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiresAt, nil
}

// ValidateToken parses and verifies a gate token.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "gate token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid gate token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid gate token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid gate token claims")
	}

	return claims, nil
}

// Revoke marks the token's JTI revoked for the remainder of its lifetime.
func (s *TokenService) Revoke(ctx context.Context, jti string) error {
	if jti == "" {
		return nil
	}
	return s.revocation.RevokeToken(ctx, jti, s.ttl)
}

// IsTokenRevoked satisfies the middleware RevocationChecker interface.
func (s *TokenService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revocation.IsRevoked(ctx, jti)
}

// MiddlewareAdapter exposes the token service to the gate middleware
// without leaking JWT types into the transport layer.
type MiddlewareAdapter struct {
	service *TokenService
}

func NewMiddlewareAdapter(service *TokenService) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) Validate(tokenString string) (*authmw.GateClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	patientID, err := id.ParsePatientID(claims.PatientID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid gate token claims")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid gate token claims")
	}
	return &authmw.GateClaims{
		PatientID: patientID,
		SessionID: sessionID,
		JTI:       claims.ID,
	}, nil
}
