package guideline

import "context"

// Built-in guideline passages for development and tests. Real
// deployments load a snapshot exported from the clinical vector index
// instead.
var snapshotPassages = []struct {
	text   string
	source string
}{
	{
		text:   "Acute chest pain: obtain a 12-lead ECG within 10 minutes and serial troponin. A normal ECG does not exclude acute coronary syndrome.",
		source: "cardiology.md",
	},
	{
		text:   "Persistent cough beyond three weeks warrants a chest x-ray; consider sputum culture and spirometry where airflow limitation is suspected.",
		source: "respiratory.md",
	},
	{
		text:   "Fever of unknown origin: CBC with differential, blood culture before antibiotics, CRP and ESR; add procalcitonin when sepsis is suspected.",
		source: "infection.md",
	},
	{
		text:   "Suspected diabetes: confirm with HbA1c or fasting plasma glucose on two occasions; screen urine for microalbumin at diagnosis.",
		source: "endocrine.md",
	},
	{
		text:   "New headache with red flags needs CT or MRI; otherwise CBC, ESR and electrolytes suffice for initial workup.",
		source: "neurology.md",
	},
	{
		text:   "Acute abdominal pain: LFT, amylase and lipase, plus ultrasound of the abdomen as first-line imaging.",
		source: "gastro.md",
	},
}

// DevSnapshot embeds the built-in passages with the given embedder and
// returns a ready FixtureIndex over them.
func DevSnapshot(ctx context.Context, embedder HashingEmbedder) (*FixtureIndex, error) {
	entries := make([]Entry, 0, len(snapshotPassages))
	for _, p := range snapshotPassages {
		embedding, err := embedder.Embed(ctx, p.text)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Embedding: embedding, Text: p.text, Source: p.source})
	}
	return NewFixtureIndex(embedder.Dim(), entries)
}
