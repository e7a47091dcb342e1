// Package identity implements the Identity Gate: biometric verification
// that mints the session token gating all EMR-affecting work.
package identity

import (
	"context"
	"errors"
	"log/slog"

	id "careflow/pkg/domain"
	dErrors "careflow/pkg/domain-errors"
	"careflow/pkg/platform/sentinel"
	"careflow/pkg/requestcontext"
)

// TemplateStore persists enrolled biometric templates keyed by patient.
type TemplateStore interface {
	Save(ctx context.Context, enrollment Enrollment) error
	FindByPatient(ctx context.Context, patientID id.PatientID) (Enrollment, error)
}

// Service runs enrollment and verification. The matcher and decoder are
// adapters around the biometric library; the service owns thresholding
// and token minting.
type Service struct {
	templates TemplateStore
	decoder   Decoder
	matcher   Matcher
	tokens    *TokenService
	threshold float64
	logger    *slog.Logger
}

func NewService(templates TemplateStore, decoder Decoder, matcher Matcher, tokens *TokenService, threshold float64, logger *slog.Logger) *Service {
	return &Service{
		templates: templates,
		decoder:   decoder,
		matcher:   matcher,
		tokens:    tokens,
		threshold: threshold,
		logger:    logger,
	}
}

// Enroll decodes the sample and stores it as the patient's reference
// template, replacing any previous enrollment.
func (s *Service) Enroll(ctx context.Context, sample Sample) error {
	if sample.PatientID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "patient_id is required")
	}

	template, err := s.decoder.Decode(sample.Data)
	if err != nil {
		return decodeError(err)
	}

	enrollment := Enrollment{
		PatientID:  sample.PatientID,
		Template:   template,
		EnrolledAt: requestcontext.Now(ctx),
	}
	if err := s.templates.Save(ctx, enrollment); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to store template", err)
	}

	s.logger.InfoContext(ctx, "patient enrolled",
		"request_id", requestcontext.RequestID(ctx),
		"patient_id", sample.PatientID,
	)
	return nil
}

// Verify compares the sample against the patient's stored template and,
// on a match within the threshold, mints a gate token bound to the
// patient and session.
func (s *Service) Verify(ctx context.Context, sessionID id.SessionID, sample Sample) (VerificationResult, error) {
	enrollment, err := s.templates.FindByPatient(ctx, sample.PatientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return VerificationResult{Status: StatusUnverified},
				dErrors.New(dErrors.CodeNoEnrollment, "no stored template for patient")
		}
		return VerificationResult{Status: StatusUnverified},
			dErrors.Wrap(dErrors.CodeInternal, "failed to load template", err)
	}

	candidate, err := s.decoder.Decode(sample.Data)
	if err != nil {
		return VerificationResult{Status: StatusUnverified}, decodeError(err)
	}

	distance, err := s.matcher.Compare(enrollment.Template, candidate)
	if err != nil {
		return VerificationResult{Status: StatusUnverified}, decodeError(err)
	}

	confidence := 1 - distance
	if confidence < 0 {
		confidence = 0
	}

	if distance > s.threshold {
		s.logger.WarnContext(ctx, "identity mismatch",
			"request_id", requestcontext.RequestID(ctx),
			"patient_id", sample.PatientID,
			"distance", distance,
			"threshold", s.threshold,
		)
		return VerificationResult{Status: StatusUnverified, Confidence: confidence},
			dErrors.New(dErrors.CodeIdentityMismatch, "sample does not match stored template")
	}

	now := requestcontext.Now(ctx)
	token, _, expiresAt, err := s.tokens.Generate(sample.PatientID, sessionID, now)
	if err != nil {
		return VerificationResult{Status: StatusUnverified},
			dErrors.Wrap(dErrors.CodeInternal, "failed to mint gate token", err)
	}

	s.logger.InfoContext(ctx, "identity verified",
		"request_id", requestcontext.RequestID(ctx),
		"patient_id", sample.PatientID,
		"session_id", sessionID,
		"confidence", confidence,
	)
	return VerificationResult{
		Status:     StatusVerified,
		Confidence: confidence,
		Token:      token,
		ExpiresAt:  expiresAt,
	}, nil
}

// RevokeToken releases a gate token on session termination.
func (s *Service) RevokeToken(ctx context.Context, jti string) error {
	return s.tokens.Revoke(ctx, jti)
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, ErrSampleUndecodable):
		return dErrors.Wrap(dErrors.CodeSampleInvalid, "sample could not be decoded", err)
	case errors.Is(err, ErrNoFace):
		return dErrors.Wrap(dErrors.CodeSampleInvalid, "no face detected in sample", err)
	default:
		return dErrors.Wrap(dErrors.CodeSampleInvalid, "malformed biometric sample", err)
	}
}
