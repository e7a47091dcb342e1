package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSymptoms(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single canonical phrase",
			text: "Patient reports chest pain since morning",
			want: []string{"chest pain"},
		},
		{
			name: "surface variants map to one canonical symptom",
			text: "complains of tightness in chest and pressure in chest",
			want: []string{"chest pain"},
		},
		{
			name: "multiple symptoms keep table order",
			text: "fever with cough and headache for two days",
			want: []string{"fever", "cough", "headache"},
		},
		{
			name: "nausea maps to vomiting",
			text: "nausea after meals",
			want: []string{"vomiting"},
		},
		{
			name: "case insensitive",
			text: "HIGH BLOOD PRESSURE noted in triage",
			want: []string{"hypertension"},
		},
		{
			name: "neurological phrases",
			text: "weakness on one side with slurred speech",
			want: []string{"focal weakness", "slurred speech"},
		},
		{
			name: "no known phrases",
			text: "annual wellness visit, no complaints",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSymptoms(tt.text))
		})
	}
}

func TestRunSymptoms_FallsBackToTranscript(t *testing.T) {
	report := RunSymptoms(Note{Transcript: "patient has a dry cough"})
	assert.Equal(t, []string{"cough"}, report.Symptoms)
}
