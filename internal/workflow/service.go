package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"careflow/internal/audit"
	"careflow/internal/dispatch"
	"careflow/internal/guideline"
	"careflow/internal/identity"
	"careflow/internal/platform/metrics"
	"careflow/internal/stage"
	"careflow/internal/transcript"
	id "careflow/pkg/domain"
	dErrors "careflow/pkg/domain-errors"
	"careflow/pkg/platform/circuit"
	"careflow/pkg/platform/sentinel"
	"careflow/pkg/requestcontext"
)

// plannerTopK bounds how many guideline passages the planner consults.
const plannerTopK = 3

// SessionStore persists sessions.
type SessionStore interface {
	Save(ctx context.Context, sess Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (Session, error)
	List(ctx context.Context) ([]Session, error)
}

// ResultStore persists stage results. Save must reject overwriting an
// accepted result.
type ResultStore interface {
	Save(ctx context.Context, res StageResult) error
	FindBySessionAndStage(ctx context.Context, sessionID id.SessionID, name stage.Name) (StageResult, error)
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]StageResult, error)
}

// Deps bundles the orchestrator's collaborators. Embedder and Retriever
// are optional; without them the planner works from symptoms and note
// text alone.
type Deps struct {
	Sessions    SessionStore
	Results     ResultStore
	Audit       *audit.Publisher
	Gate        *identity.Service
	Transcripts transcript.Source
	Embedder    guideline.Embedder
	Retriever   guideline.Retriever
	EMR         *dispatch.EMRWriter
	Pharmacy    *dispatch.PharmacyDispatcher
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	StageRetries int
	BaseBackoff  time.Duration
}

// Service is the workflow orchestrator. All session mutations go through
// it; it serializes writers per session and guarantees every state
// transition is audited before it is committed.
type Service struct {
	sessions    SessionStore
	results     ResultStore
	audit       *audit.Publisher
	gate        *identity.Service
	transcripts transcript.Source
	embedder    guideline.Embedder
	retriever   guideline.Retriever
	emr         *dispatch.EMRWriter
	pharmacy    *dispatch.PharmacyDispatcher
	metrics     *metrics.Metrics
	logger      *slog.Logger

	retry             retryPolicy
	transcriptBreaker *circuit.Breaker
	guidelineBreaker  *circuit.Breaker

	// locks holds one mutex per session; independent sessions never
	// contend.
	locks sync.Map
}

func NewService(d Deps) *Service {
	retries := d.StageRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := d.BaseBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &Service{
		sessions:          d.Sessions,
		results:           d.Results,
		audit:             d.Audit,
		gate:              d.Gate,
		transcripts:       d.Transcripts,
		embedder:          d.Embedder,
		retriever:         d.Retriever,
		emr:               d.EMR,
		pharmacy:          d.Pharmacy,
		metrics:           d.Metrics,
		logger:            d.Logger,
		retry:             retryPolicy{attempts: retries, base: backoff},
		transcriptBreaker: circuit.New("transcript-engine", circuit.WithFailureThreshold(5)),
		guidelineBreaker:  circuit.New("guideline-index", circuit.WithFailureThreshold(5)),
	}
}

func (s *Service) lockSession(sessionID id.SessionID) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Start creates a session in the Created state. Nothing beyond the gate
// is reachable until Verify succeeds.
func (s *Service) Start(ctx context.Context, patientID id.PatientID) (Session, error) {
	if patientID.IsNil() {
		return Session{}, dErrors.New(dErrors.CodeInvalidInput, "patient_id is required")
	}

	now := requestcontext.Now(ctx)
	sess := Session{
		ID:           id.NewSessionID(),
		PatientID:    patientID,
		State:        StateCreated,
		Verification: identity.StatusUnverified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.emitTransition(ctx, sess.ID, "session", "", StateCreated, "", "", ""); err != nil {
		return Session{}, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Session{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save session", err)
	}

	s.metrics.SessionsStarted.Inc()
	s.logger.InfoContext(ctx, "session started",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"patient_id", patientID,
	)
	return sess, nil
}

// Verify runs the Identity Gate for the session. On a match it attaches
// the gate token and moves the session to AwaitingTranscript; on any
// failure the session stays in Created.
func (s *Service) Verify(ctx context.Context, sessionID id.SessionID, sample identity.Sample) (identity.VerificationResult, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return identity.VerificationResult{}, err
	}
	if err := guardTransition(sess.State, StateAwaitingTranscript); err != nil {
		return identity.VerificationResult{}, err
	}

	// The sample is always matched against the session's patient; a
	// caller-supplied patient id cannot redirect verification.
	sample.PatientID = sess.PatientID

	result, err := s.gate.Verify(ctx, sessionID, sample)
	if err != nil {
		s.metrics.GateVerifications.WithLabelValues("rejected").Inc()
		s.emitFailure(ctx, sess, "identity-gate", string(dErrors.CodeOf(err)))
		return result, err
	}

	if err := s.emitTransition(ctx, sess.ID, "identity-gate", sess.State, StateAwaitingTranscript, "", "", ""); err != nil {
		return identity.VerificationResult{}, err
	}

	sess.State = StateAwaitingTranscript
	sess.Verification = identity.StatusVerified
	sess.TokenExpiresAt = result.ExpiresAt
	sess.UpdatedAt = requestcontext.Now(ctx)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return identity.VerificationResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save session", err)
	}

	s.metrics.GateVerifications.WithLabelValues("verified").Inc()
	return result, nil
}

// TranscriptInput is either raw note text or an audio recording to run
// through the transcript engine.
type TranscriptInput struct {
	Text  string
	Audio *transcript.Audio
}

// AttachTranscript stores the encounter transcript on a verified session
// awaiting one. Audio input is transcribed through the adapter with the
// stage retry policy; the session lock is not held during the call.
func (s *Service) AttachTranscript(ctx context.Context, sessionID id.SessionID, input TranscriptInput) error {
	if input.Text == "" && input.Audio == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "transcript text or audio is required")
	}

	unlock := s.lockSession(sessionID)
	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		unlock()
		return err
	}
	if err := s.requireGate(ctx, &sess); err != nil {
		unlock()
		return err
	}
	if sess.State != StateAwaitingTranscript {
		unlock()
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot attach transcript in state %s", sess.State)
	}
	unlock()

	text := input.Text
	if input.Audio != nil {
		var result transcript.Transcript
		err := s.retry.run(ctx, s.transcriptBreaker, func(ctx context.Context) error {
			var tErr error
			result, tErr = s.transcripts.Transcribe(ctx, *input.Audio)
			return tErr
		})
		if err != nil {
			unlock := s.lockSession(sessionID)
			s.emitFailure(ctx, sess, "transcript", err.Error())
			unlock()
			return dErrors.Wrap(dErrors.CodeStageUnavailable, "transcript engine unavailable", err)
		}
		text = result.Text
	}
	if strings.TrimSpace(text) == "" {
		text = transcript.UnintelligibleText
	}

	unlock = s.lockSession(sessionID)
	defer unlock()

	sess, err = s.findSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.State != StateAwaitingTranscript {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot attach transcript in state %s", sess.State)
	}

	sess.Transcript = text
	sess.UpdatedAt = requestcontext.Now(ctx)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to save session", err)
	}
	return nil
}

// Advance runs the next stage in the chain. Deterministic stage results
// are auto-accepted; the safety result is surfaced for reviewer action
// unless it carries red flags, in which case the session aborts
// unconditionally.
func (s *Service) Advance(ctx context.Context, sessionID id.SessionID) (StageResult, error) {
	unlock := s.lockSession(sessionID)

	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		unlock()
		return StageResult{}, err
	}
	if err := s.requireGate(ctx, &sess); err != nil {
		unlock()
		return StageResult{}, err
	}
	name, err := nextStage(sess.State)
	if err != nil {
		unlock()
		return StageResult{}, err
	}

	inputs, err := s.loadStageInputs(ctx, sess, name)
	if err != nil {
		unlock()
		return StageResult{}, err
	}
	priorState := sess.State
	unlock()

	// Adapter calls run outside the session lock.
	if name == stage.Planner {
		inputs.passages, err = s.retrievePassages(ctx, inputs.report, inputs.note)
		if err != nil {
			unlock := s.lockSession(sessionID)
			s.emitFailure(ctx, sess, string(name), err.Error())
			unlock()
			s.metrics.StageExecutions.WithLabelValues(string(name), "unavailable").Inc()
			return StageResult{}, dErrors.Wrap(dErrors.CodeStageUnavailable, "guideline retrieval unavailable", err)
		}
	}

	payload, err := runStage(name, inputs)
	if err != nil {
		return StageResult{}, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return StageResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to encode stage payload", err)
	}

	unlock = s.lockSession(sessionID)
	defer unlock()

	sess, err = s.findSession(ctx, sessionID)
	if err != nil {
		return StageResult{}, err
	}
	if sess.State != priorState {
		return StageResult{}, dErrors.Newf(dErrors.CodeInvalidTransition, "session moved to %s during stage execution", sess.State)
	}

	result := StageResult{
		SessionID:  sess.ID,
		Stage:      name,
		InputHash:  inputs.inputHash,
		OutputHash: hashBytes(raw),
		Payload:    raw,
		Agent:      actorOrSystem(ctx),
		Status:     ValidationAccepted,
		CreatedAt:  requestcontext.Now(ctx),
	}

	newState := stageEntered[name]
	reason := ""
	outcome := "ok"

	if name == stage.Safety {
		report, ok := payload.(stage.SafetyReport)
		if ok && report.HasRedFlags() {
			newState = StateAborted
			reason = "red flags: " + strings.Join(report.RedFlags, "; ")
			outcome = "aborted"
		} else {
			// Safety requires explicit reviewer acceptance.
			result.Status = ValidationPending
		}
	}

	if err := s.emitTransition(ctx, sess.ID, string(name), sess.State, newState, result.InputHash, result.OutputHash, reason); err != nil {
		return StageResult{}, err
	}
	if err := s.results.Save(ctx, result); err != nil {
		return StageResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save stage result", err)
	}

	sess.State = newState
	sess.UpdatedAt = requestcontext.Now(ctx)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return StageResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save session", err)
	}

	if newState == StateAborted {
		s.metrics.SessionsAborted.Inc()
		s.revokeGateToken(ctx)
		s.logger.WarnContext(ctx, "session aborted by safety check",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sess.ID,
			"reason", reason,
		)
	}

	s.metrics.StageExecutions.WithLabelValues(string(name), outcome).Inc()
	return result, nil
}

// Accept marks a surfaced (pending) stage result as reviewer-accepted.
func (s *Service) Accept(ctx context.Context, sessionID id.SessionID, name stage.Name) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.requireGate(ctx, &sess); err != nil {
		return err
	}

	result, err := s.results.FindBySessionAndStage(ctx, sessionID, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "no result for stage %s", name)
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to load stage result", err)
	}
	if result.Status != ValidationPending {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "result for stage %s is %s, not pending", name, result.Status)
	}

	result.Status = ValidationAccepted
	if err := s.results.Save(ctx, result); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to save stage result", err)
	}
	return nil
}

// Reject marks a surfaced stage result as reviewer-rejected and moves
// the session to its terminal Rejected state.
func (s *Service) Reject(ctx context.Context, sessionID id.SessionID, name stage.Name, reason string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.requireGate(ctx, &sess); err != nil {
		return err
	}

	result, err := s.results.FindBySessionAndStage(ctx, sessionID, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "no result for stage %s", name)
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to load stage result", err)
	}
	if result.Status != ValidationPending {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "result for stage %s is %s, not pending", name, result.Status)
	}

	result.Status = ValidationRejected
	if err := s.results.Save(ctx, result); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to save stage result", err)
	}
	return s.terminate(ctx, sess, StateRejected, reason)
}

// ApprovalOutcome reports the downstream effects of an approval.
type ApprovalOutcome struct {
	RecordID id.RecordID `json:"record_id"`
	OrderID  id.OrderID  `json:"order_id,omitempty"`
}

// Approve is the reviewer's terminal sign-off. It accepts the surfaced
// safety result, commits the consolidated record to the EMR, and
// dispatches the prescription to the pharmacy. Approving also counts as
// accepting a still-pending safety result; a rejected one blocks.
// Approving an already-Approved session re-drives the downstream
// dispatch: both targets deduplicate by session, so a dispatch that
// failed after the transition committed can be completed by retrying.
func (s *Service) Approve(ctx context.Context, sessionID id.SessionID) (ApprovalOutcome, error) {
	unlock := s.lockSession(sessionID)

	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		unlock()
		return ApprovalOutcome{}, err
	}
	if err := s.requireGate(ctx, &sess); err != nil {
		unlock()
		return ApprovalOutcome{}, err
	}
	if sess.State == StateApproved {
		unlock()
		return s.redriveDispatch(ctx, sess)
	}
	if err := guardTransition(sess.State, StateApproved); err != nil {
		unlock()
		return ApprovalOutcome{}, err
	}

	safetyResult, err := s.results.FindBySessionAndStage(ctx, sessionID, stage.Safety)
	if err != nil {
		unlock()
		return ApprovalOutcome{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load safety result", err)
	}
	switch safetyResult.Status {
	case ValidationRejected:
		unlock()
		return ApprovalOutcome{}, dErrors.New(dErrors.CodeInvalidTransition, "safety result was rejected")
	case ValidationPending:
		safetyResult.Status = ValidationAccepted
		if err := s.results.Save(ctx, safetyResult); err != nil {
			unlock()
			return ApprovalOutcome{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save safety result", err)
		}
	}

	safetyReport, err := decodePayload[stage.SafetyReport](safetyResult)
	if err != nil {
		unlock()
		return ApprovalOutcome{}, err
	}
	if safetyReport.HasRedFlags() {
		unlock()
		return ApprovalOutcome{}, dErrors.New(dErrors.CodeInvalidTransition, "cannot approve a session with red flags")
	}

	consolidated, prescription, err := s.consolidateResults(ctx, sessionID)
	if err != nil {
		unlock()
		return ApprovalOutcome{}, err
	}

	if err := s.emitTransition(ctx, sess.ID, "approval", sess.State, StateApproved, "", "", ""); err != nil {
		unlock()
		return ApprovalOutcome{}, err
	}
	sess.State = StateApproved
	sess.UpdatedAt = requestcontext.Now(ctx)
	if err := s.sessions.Save(ctx, sess); err != nil {
		unlock()
		return ApprovalOutcome{}, dErrors.Wrap(dErrors.CodeInternal, "failed to save session", err)
	}
	unlock()

	// Downstream effects run after the audited transition; both targets
	// deduplicate by session, so a re-drive after a crash is safe.
	recordID, err := s.emr.Commit(ctx, dispatch.EMRRecord{
		PatientID:  sess.PatientID,
		SessionID:  sess.ID,
		Results:    consolidated,
		ApprovedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		s.dispatchFailed(ctx, sess, err)
		return ApprovalOutcome{}, err
	}

	outcome := ApprovalOutcome{RecordID: recordID}
	g, gctx := errgroup.WithContext(ctx)
	if prescription != "" {
		g.Go(func() error {
			orderID, dErr := s.pharmacy.Dispatch(gctx, dispatch.PharmacyOrder{
				RecordID:     recordID,
				SessionID:    sess.ID,
				PatientID:    sess.PatientID,
				Prescription: prescription,
			})
			if dErr != nil {
				return dErr
			}
			outcome.OrderID = orderID
			return nil
		})
	}
	g.Go(func() error {
		s.revokeGateToken(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.dispatchFailed(ctx, sess, err)
		return outcome, err
	}

	s.logger.InfoContext(ctx, "session approved",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"record_id", outcome.RecordID,
	)
	return outcome, nil
}

// consolidateResults flattens the session's stage results into the EMR
// payload map and pulls out the drafted prescription text.
func (s *Service) consolidateResults(ctx context.Context, sessionID id.SessionID) (map[string]string, string, error) {
	results, err := s.results.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, "", dErrors.Wrap(dErrors.CodeInternal, "failed to load stage results", err)
	}
	consolidated := make(map[string]string, len(results))
	var prescription string
	for _, res := range results {
		consolidated[string(res.Stage)] = string(res.Payload)
		if res.Stage == stage.Prescription {
			draft, dErr := decodePayload[stage.Draft](res)
			if dErr != nil {
				return nil, "", dErr
			}
			prescription = draft.Prescription
		}
	}
	return consolidated, prescription, nil
}

// redriveDispatch completes the downstream effects of an approved
// session. Targets that already ran answer duplicate_dispatch; their
// existing record and order are returned instead of new ones.
func (s *Service) redriveDispatch(ctx context.Context, sess Session) (ApprovalOutcome, error) {
	consolidated, prescription, err := s.consolidateResults(ctx, sess.ID)
	if err != nil {
		return ApprovalOutcome{}, err
	}

	recordID, err := s.emr.Commit(ctx, dispatch.EMRRecord{
		PatientID:  sess.PatientID,
		SessionID:  sess.ID,
		Results:    consolidated,
		ApprovedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeDuplicateDispatch) {
			s.dispatchFailed(ctx, sess, err)
			return ApprovalOutcome{}, err
		}
		record, rErr := s.emr.RecordForSession(ctx, sess.ID)
		if rErr != nil {
			return ApprovalOutcome{}, rErr
		}
		recordID = record.ID
	}

	outcome := ApprovalOutcome{RecordID: recordID}
	if prescription != "" {
		orderID, dErr := s.pharmacy.Dispatch(ctx, dispatch.PharmacyOrder{
			RecordID:     recordID,
			SessionID:    sess.ID,
			PatientID:    sess.PatientID,
			Prescription: prescription,
		})
		if dErr != nil {
			if !dErrors.HasCode(dErr, dErrors.CodeDuplicateDispatch) {
				s.dispatchFailed(ctx, sess, dErr)
				return outcome, dErr
			}
			order, oErr := s.pharmacy.OrderForSession(ctx, sess.ID)
			if oErr != nil {
				return outcome, oErr
			}
			orderID = order.ID
		}
		outcome.OrderID = orderID
	}

	s.revokeGateToken(ctx)
	s.logger.InfoContext(ctx, "approved session dispatch re-driven",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"record_id", outcome.RecordID,
	)
	return outcome, nil
}

// Cancel is the reviewer's reject from any non-terminal state.
func (s *Service) Cancel(ctx context.Context, sessionID id.SessionID, reason string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.findSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.State != StateCreated {
		if err := s.requireGate(ctx, &sess); err != nil {
			return err
		}
	}
	return s.terminate(ctx, sess, StateRejected, reason)
}

// Reconcile realigns every session whose stored state disagrees with
// its audit log. Run at startup; the audit log is the source of truth
// after a crash. A transition whose stage result never persisted is
// treated as uncommitted: the session rolls to the entry's prior state
// so the stage can be re-run.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "failed to list sessions", err)
	}

	fixed := 0
	for _, sess := range sessions {
		last, err := s.audit.Last(ctx, sess.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return fixed, dErrors.Wrap(dErrors.CodeInternal, "failed to read audit log", err)
		}

		target := State(last.NewState)
		if name, ok := stageEnteringState(target); ok {
			if _, rErr := s.results.FindBySessionAndStage(ctx, sess.ID, name); rErr != nil {
				if !errors.Is(rErr, sentinel.ErrNotFound) {
					return fixed, dErrors.Wrap(dErrors.CodeInternal, "failed to read stage results", rErr)
				}
				target = State(last.PriorState)
			}
		}
		if sess.State == target {
			continue
		}

		unlock := s.lockSession(sess.ID)
		current, err := s.findSession(ctx, sess.ID)
		if err == nil && current.State != target {
			current.State = target
			current.UpdatedAt = requestcontext.Now(ctx)
			if err := s.sessions.Save(ctx, current); err == nil {
				fixed++
				s.logger.WarnContext(ctx, "session realigned with audit log",
					"session_id", sess.ID,
					"stored_state", sess.State,
					"target_state", target,
				)
			}
		}
		unlock()
	}
	return fixed, nil
}

// Get returns the session snapshot.
func (s *Service) Get(ctx context.Context, sessionID id.SessionID) (Session, error) {
	return s.findSession(ctx, sessionID)
}

// Results returns the session's stage results in chain order.
func (s *Service) Results(ctx context.Context, sessionID id.SessionID) ([]StageResult, error) {
	results, err := s.results.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list stage results", err)
	}
	return results, nil
}

// History returns the session's ordered audit entries.
func (s *Service) History(ctx context.Context, sessionID id.SessionID) ([]audit.Entry, error) {
	entries, err := s.audit.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to read audit log", err)
	}
	return entries, nil
}

func (s *Service) findSession(ctx context.Context, sessionID id.SessionID) (Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Session{}, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return Session{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load session", err)
	}
	return sess, nil
}

// requireGate enforces the gate invariant: no transition past Created on
// an unverified, expired, or mismatched token. Called under the session
// lock.
func (s *Service) requireGate(ctx context.Context, sess *Session) error {
	if sess.Verification != identity.StatusVerified {
		return dErrors.New(dErrors.CodeUnauthorized, "session has not passed the identity gate")
	}
	if !sess.TokenExpiresAt.IsZero() && requestcontext.Now(ctx).After(sess.TokenExpiresAt) {
		sess.Verification = identity.StatusExpired
		if err := s.sessions.Save(ctx, *sess); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist expired verification", "session_id", sess.ID, "error", err)
		}
		return dErrors.New(dErrors.CodeUnauthorized, "gate token expired, re-verify to continue")
	}
	if bound := requestcontext.SessionID(ctx); !bound.IsNil() && bound != sess.ID {
		return dErrors.New(dErrors.CodeUnauthorized, "gate token is bound to a different session")
	}
	return nil
}

// terminate moves a session to a terminal state. Called under the
// session lock.
func (s *Service) terminate(ctx context.Context, sess Session, to State, reason string) error {
	if err := guardTransition(sess.State, to); err != nil {
		return err
	}
	if err := s.emitTransition(ctx, sess.ID, "review", sess.State, to, "", "", reason); err != nil {
		return err
	}

	sess.State = to
	sess.UpdatedAt = requestcontext.Now(ctx)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to save session", err)
	}

	s.revokeGateToken(ctx)
	s.logger.InfoContext(ctx, "session terminated",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"state", to,
		"reason", reason,
	)
	return nil
}

func (s *Service) emitTransition(ctx context.Context, sessionID id.SessionID, stageName string, prior, next State, inputHash, outputHash, reason string) error {
	err := s.audit.Emit(ctx, audit.Entry{
		SessionID:  sessionID,
		Stage:      stageName,
		PriorState: string(prior),
		NewState:   string(next),
		Actor:      actorOrSystem(ctx),
		InputHash:  inputHash,
		OutputHash: outputHash,
		Timestamp:  requestcontext.Now(ctx),
		Kind:       audit.KindTransition,
		Reason:     reason,
	})
	if err != nil {
		// Durability failure: the transition must not be committed.
		return dErrors.Wrap(dErrors.CodeInternal, "audit append failed, transition halted", err)
	}
	return nil
}

// emitFailure records a surfaced failure. Failures are not transitions;
// the state fields record where the session stayed.
func (s *Service) emitFailure(ctx context.Context, sess Session, stageName, reason string) {
	err := s.audit.Emit(ctx, audit.Entry{
		SessionID:  sess.ID,
		Stage:      stageName,
		PriorState: string(sess.State),
		NewState:   string(sess.State),
		Actor:      actorOrSystem(ctx),
		Timestamp:  requestcontext.Now(ctx),
		Kind:       audit.KindFailure,
		Reason:     reason,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to append failure audit entry",
			"session_id", sess.ID,
			"stage", stageName,
			"error", err,
		)
	}
}

func (s *Service) dispatchFailed(ctx context.Context, sess Session, cause error) {
	sess.State = StateApproved
	s.emitFailure(ctx, sess, "dispatch", cause.Error())
}

// revokeGateToken invalidates the presented token on session
// termination. Best effort: a revocation failure is logged, not
// surfaced, because the token still dies at its TTL.
func (s *Service) revokeGateToken(ctx context.Context) {
	jti := requestcontext.TokenJTI(ctx)
	if jti == "" {
		return
	}
	if err := s.gate.RevokeToken(ctx, jti); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke gate token", "error", err)
		return
	}
	s.metrics.TokensRevoked.Inc()
}

func actorOrSystem(ctx context.Context) string {
	if actor := requestcontext.Actor(ctx); actor != "" {
		return actor
	}
	return "system"
}

func decodePayload[T any](res StageResult) (T, error) {
	var v T
	if err := json.Unmarshal(res.Payload, &v); err != nil {
		return v, dErrors.Wrap(dErrors.CodeInternal,
			fmt.Sprintf("corrupt payload for stage %s", res.Stage), err)
	}
	return v, nil
}
