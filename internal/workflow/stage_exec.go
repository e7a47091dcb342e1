package workflow

import (
	"context"
	"errors"

	"careflow/internal/guideline"
	"careflow/internal/stage"
	dErrors "careflow/pkg/domain-errors"
	"careflow/pkg/platform/sentinel"
)

// stageInputs carries everything a stage run needs, gathered under the
// session lock before execution.
type stageInputs struct {
	inputHash  string
	transcript string
	note       stage.Note
	report     stage.SymptomReport
	passages   []guideline.Passage
}

// loadStageInputs collects the inputs for the named stage and the hash
// of the predecessor output they derive from. Each stage requires its
// predecessor's result to be accepted.
func (s *Service) loadStageInputs(ctx context.Context, sess Session, name stage.Name) (stageInputs, error) {
	switch name {
	case stage.Scribe:
		if sess.Transcript == "" {
			return stageInputs{}, dErrors.New(dErrors.CodeInvalidTransition, "no transcript attached")
		}
		return stageInputs{
			inputHash:  hashBytes([]byte(sess.Transcript)),
			transcript: sess.Transcript,
		}, nil

	case stage.Symptoms:
		scribed, err := s.acceptedResult(ctx, sess, stage.Scribe)
		if err != nil {
			return stageInputs{}, err
		}
		note, err := decodePayload[stage.Note](scribed)
		if err != nil {
			return stageInputs{}, err
		}
		return stageInputs{inputHash: scribed.OutputHash, note: note}, nil

	case stage.Planner, stage.Prescription, stage.Safety:
		scribed, err := s.acceptedResult(ctx, sess, stage.Scribe)
		if err != nil {
			return stageInputs{}, err
		}
		note, err := decodePayload[stage.Note](scribed)
		if err != nil {
			return stageInputs{}, err
		}
		extracted, err := s.acceptedResult(ctx, sess, stage.Symptoms)
		if err != nil {
			return stageInputs{}, err
		}
		report, err := decodePayload[stage.SymptomReport](extracted)
		if err != nil {
			return stageInputs{}, err
		}

		// The hash ties the stage to its direct predecessor's output.
		predecessor := stage.Symptoms
		switch name {
		case stage.Prescription:
			predecessor = stage.Planner
		case stage.Safety:
			predecessor = stage.Prescription
		}
		prior, err := s.acceptedResult(ctx, sess, predecessor)
		if err != nil {
			return stageInputs{}, err
		}
		return stageInputs{inputHash: prior.OutputHash, note: note, report: report}, nil

	default:
		return stageInputs{}, dErrors.Newf(dErrors.CodeInternal, "unknown stage %s", name)
	}
}

func (s *Service) acceptedResult(ctx context.Context, sess Session, name stage.Name) (StageResult, error) {
	res, err := s.results.FindBySessionAndStage(ctx, sess.ID, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return StageResult{}, dErrors.Newf(dErrors.CodeInvalidTransition, "stage %s has not run", name)
		}
		return StageResult{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load stage result", err)
	}
	if res.Status != ValidationAccepted {
		return StageResult{}, dErrors.Newf(dErrors.CodeInvalidTransition, "result for stage %s is %s, not accepted", name, res.Status)
	}
	return res, nil
}

// retrievePassages embeds the planner query and searches the guideline
// index, both under the stage retry policy and the index breaker. A
// deployment without a retriever plans from symptoms and note text only.
func (s *Service) retrievePassages(ctx context.Context, report stage.SymptomReport, note stage.Note) ([]guideline.Passage, error) {
	if s.embedder == nil || s.retriever == nil {
		return nil, nil
	}

	query := stage.PlannerQuery(report, note)
	var passages []guideline.Passage
	err := s.retry.run(ctx, s.guidelineBreaker, func(ctx context.Context) error {
		embedding, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return err
		}
		passages, err = s.retriever.Search(ctx, embedding, plannerTopK)
		return err
	})
	if err != nil {
		return nil, err
	}
	return passages, nil
}

// runStage executes the pure stage logic. No I/O happens here, so a
// retry after an audit or store failure recomputes the same output.
func runStage(name stage.Name, in stageInputs) (any, error) {
	switch name {
	case stage.Scribe:
		return stage.RunScribe(in.transcript), nil
	case stage.Symptoms:
		return stage.RunSymptoms(in.note), nil
	case stage.Planner:
		return stage.RunPlanner(in.report, in.note, in.passages), nil
	case stage.Prescription:
		return stage.RunPrescription(in.report, in.note), nil
	case stage.Safety:
		return stage.RunSafety(in.note), nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInternal, "unknown stage %s", name)
	}
}
