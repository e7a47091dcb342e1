// Package transcript wraps speech-to-text behind narrow adapter
// interfaces. The engine itself is a black box; failures surface as
// sentinel.ErrUnavailable so the orchestrator can retry at the stage
// boundary.
package transcript

import (
	"context"
)

// Audio references one captured recording.
type Audio struct {
	// ContentType of the payload, e.g. "audio/wav".
	ContentType string
	Data        []byte
}

// Transcript is the engine's final output for one recording.
type Transcript struct {
	Text string
}

// Segment is one streaming recognition update. Final marks the segment as
// committed; non-final segments may be revised by later ones.
type Segment struct {
	Text  string
	Final bool
}

// Source transcribes an uploaded recording in one shot.
type Source interface {
	Transcribe(ctx context.Context, audio Audio) (Transcript, error)
}

// StreamingSource exposes partial/final segmentation for live audio. The
// channel closes when recognition completes or ctx is cancelled.
type StreamingSource interface {
	Stream(ctx context.Context, audio Audio) (<-chan Segment, error)
}

// Unintelligible audio is not an adapter failure: the engine heard
// something but could not recognize it. The stage records this text and
// proceeds; clinicians see it in the note.
const UnintelligibleText = "Transcription empty (no speech detected)."
