package stage

import (
	"strings"

	"careflow/internal/guideline"
)

// standardTests maps a canonical symptom to its standard initial
// investigations.
var standardTests = map[string][]string{
	"chest pain": {
		"ECG 12-lead",
		"Cardiac Troponin I",
		"CK-MB",
		"Lipid Profile",
		"Chest X-Ray (PA view)",
		"Serum Electrolytes",
		"Echocardiogram",
	},
	"shortness of breath": {
		"Chest X-Ray (PA view)",
		"Arterial Blood Gas (ABG)",
		"D-Dimer",
		"CBC with Differential",
		"HRCT Thorax",
		"NT-proBNP",
	},
	"fever": {
		"CBC with Differential",
		"C-Reactive Protein (CRP)",
		"ESR",
		"Dengue NS1 / IgM",
		"Malaria Smear / Rapid Test",
		"Blood Culture",
		"Urine Routine and Microscopy",
		"Procalcitonin",
	},
	"cough": {
		"Chest X-Ray (PA view)",
		"CBC with Differential",
		"CRP",
		"Sputum Culture and Sensitivity",
		"COVID-19 RT-PCR",
		"Sputum AFB (for Tuberculosis)",
	},
	"headache": {
		"MRI Brain (as indicated)",
		"CT Brain (Non-contrast, if emergency)",
		"CBC",
		"Serum Electrolytes",
		"ESR",
	},
	"vomiting": {
		"CBC",
		"Serum Electrolytes",
		"Random Blood Sugar",
		"Serum Amylase",
		"Serum Lipase",
		"Liver Function Test (LFT)",
		"Ultrasound Abdomen",
	},
	"abdominal pain": {
		"CBC",
		"Liver Function Test (LFT)",
		"Serum Amylase",
		"Serum Lipase",
		"Ultrasound Abdomen",
		"Stool Routine and Occult Blood",
	},
	"diabetes": {
		"HbA1c",
		"Fasting Plasma Glucose",
		"Postprandial Blood Sugar",
		"Lipid Profile",
		"Urine Microalbumin",
		"Renal Function Test (RFT)",
	},
	"hypertension": {
		"Serum Electrolytes",
		"ECG 12-lead",
		"Echocardiogram",
		"Renal Doppler Ultrasound",
		"Urine Routine and Microscopy",
	},
}

// passageTestKeywords maps keywords found in guideline passages to
// display names for the extracted test. Ordered so extraction is
// deterministic.
var passageTestKeywords = []struct {
	keyword string
	name    string
}{
	{"cbc", "CBC with Differential"},
	{"ecg", "ECG 12-lead"},
	{"chest x-ray", "Chest X-Ray (PA view)"},
	{"x-ray", "Chest X-Ray (PA view)"},
	{"xray", "Chest X-Ray (PA view)"},
	{"abg", "Arterial Blood Gas (ABG)"},
	{"d-dimer", "D-Dimer"},
	{"lipid", "Lipid Profile"},
	{"urine", "Urine Routine and Microscopy"},
	{"hba1c", "HbA1c"},
	{"glucose", "Fasting / Random Blood Glucose"},
	{"troponin", "Cardiac Troponin I"},
	{"spirometry", "Spirometry (Pulmonary Function Test)"},
	{"spiro", "Spirometry (Pulmonary Function Test)"},
	{"rft", "Renal Function Test (RFT)"},
	{"lft", "Liver Function Test (LFT)"},
	{"esr", "ESR"},
	{"crp", "C-Reactive Protein (CRP)"},
	{"procalcitonin", "Procalcitonin"},
	{"ultrasound", "Ultrasound (region as clinically indicated)"},
	{"mri", "MRI (site as clinically indicated)"},
	{"ct", "CT Scan (site as clinically indicated)"},
}

// testsFromSymptoms expands canonical symptoms into standard tests,
// unique, preserving symptom order.
func testsFromSymptoms(symptoms []string) []string {
	var tests []string
	seen := make(map[string]bool)
	for _, symptom := range symptoms {
		for _, test := range standardTests[strings.ToLower(symptom)] {
			if !seen[test] {
				seen[test] = true
				tests = append(tests, test)
			}
		}
	}
	return tests
}

// testsFromText is the fallback path: scan the note text directly for
// symptom phrases in case extraction missed them, then map to tests.
func testsFromText(noteText string) []string {
	return testsFromSymptoms(ExtractSymptoms(noteText))
}

// testsFromPassages extracts candidate tests mentioned in retrieved
// guideline passages by keyword.
func testsFromPassages(passages []guideline.Passage) []string {
	var extracted []string
	seen := make(map[string]bool)
	for _, p := range passages {
		text := strings.ToLower(p.Text)
		for _, kw := range passageTestKeywords {
			if strings.Contains(text, kw.keyword) && !seen[kw.name] {
				seen[kw.name] = true
				extracted = append(extracted, kw.name)
			}
		}
	}
	return extracted
}

// RunPlanner merges three test sources in fixed priority order:
// standard tests for the extracted symptoms, tests inferred from the
// note text directly, then tests mentioned in the retrieved guideline
// passages. Duplicates keep their first position.
func RunPlanner(report SymptomReport, note Note, passages []guideline.Passage) Plan {
	noteText := note.Summary
	if noteText == "" {
		noteText = note.Transcript
	}

	var combined []string
	seen := make(map[string]bool)
	for _, group := range [][]string{
		testsFromSymptoms(report.Symptoms),
		testsFromText(noteText),
		testsFromPassages(passages),
	} {
		for _, test := range group {
			if !seen[test] {
				seen[test] = true
				combined = append(combined, test)
			}
		}
	}

	return Plan{
		SuggestedTests: combined,
		GuidelineHits:  passages,
	}
}

// PlannerQuery builds the retrieval query text for a symptom report and
// note, so the orchestrator and tests agree on the exact wording.
func PlannerQuery(report SymptomReport, note Note) string {
	symptomsText := "unspecified symptoms"
	if len(report.Symptoms) > 0 {
		symptomsText = strings.Join(report.Symptoms, ", ")
	}
	noteText := note.Summary
	if noteText == "" {
		noteText = note.Transcript
	}
	return "Suggest initial investigations for a patient with: " + symptomsText + ". Note: " + noteText
}
