package httptransport

import (
	"encoding/base64"

	"github.com/asaskevich/govalidator"

	"careflow/internal/stage"
	dErrors "careflow/pkg/domain-errors"
)

type enrollRequest struct {
	PatientID string `json:"patient_id"`
	Sample    string `json:"sample"`
}

func (r enrollRequest) validate() error {
	if !govalidator.IsUUID(r.PatientID) {
		return dErrors.New(dErrors.CodeInvalidInput, "patient_id must be a UUID")
	}
	if !govalidator.IsBase64(r.Sample) {
		return dErrors.New(dErrors.CodeInvalidInput, "sample must be base64 encoded")
	}
	return nil
}

func (r enrollRequest) sampleBytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.Sample)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInvalidInput, "sample is not valid base64", err)
	}
	return data, nil
}

type startSessionRequest struct {
	PatientID string `json:"patient_id"`
}

func (r startSessionRequest) validate() error {
	if !govalidator.IsUUID(r.PatientID) {
		return dErrors.New(dErrors.CodeInvalidInput, "patient_id must be a UUID")
	}
	return nil
}

type verifyRequest struct {
	Sample string `json:"sample"`
}

func (r verifyRequest) validate() error {
	if !govalidator.IsBase64(r.Sample) {
		return dErrors.New(dErrors.CodeInvalidInput, "sample must be base64 encoded")
	}
	return nil
}

func (r verifyRequest) sampleBytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.Sample)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInvalidInput, "sample is not valid base64", err)
	}
	return data, nil
}

type transcriptRequest struct {
	Text        string `json:"text,omitempty"`
	Audio       string `json:"audio,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

func (r transcriptRequest) validate() error {
	if r.Text == "" && r.Audio == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "text or audio is required")
	}
	if r.Text != "" && !govalidator.StringLength(r.Text, "1", "100000") {
		return dErrors.New(dErrors.CodeInvalidInput, "text exceeds maximum length")
	}
	if r.Audio != "" && !govalidator.IsBase64(r.Audio) {
		return dErrors.New(dErrors.CodeInvalidInput, "audio must be base64 encoded")
	}
	return nil
}

func (r transcriptRequest) audioBytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.Audio)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInvalidInput, "audio is not valid base64", err)
	}
	return data, nil
}

// rejectRequest rejects either one surfaced stage result or, with no
// stage named, the whole session.
type rejectRequest struct {
	Stage  string `json:"stage,omitempty"`
	Reason string `json:"reason"`
}

var rejectableStages = map[string]stage.Name{
	string(stage.Safety): stage.Safety,
}

func (r rejectRequest) validate() error {
	if !govalidator.StringLength(r.Reason, "1", "2000") {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if r.Stage != "" {
		if _, ok := rejectableStages[r.Stage]; !ok {
			return dErrors.Newf(dErrors.CodeInvalidInput, "stage %q has no reviewable result", r.Stage)
		}
	}
	return nil
}
