package identity

import (
	"errors"
	"fmt"
)

// Decoder turns a raw biometric capture into a comparable template. The
// production implementation wraps a face-detection library; it is a black
// box behind this interface.
type Decoder interface {
	Decode(data []byte) (Template, error)
}

// Decode failure kinds. Adapters wrap library-specific errors into these
// so the service never sees library exception types.
var (
	ErrSampleUndecodable = errors.New("sample could not be decoded")
	ErrNoFace            = errors.New("no face detected in sample")
)

// Matcher compares a stored template against a freshly decoded one and
// returns a distance where 0 means identical.
type Matcher interface {
	Compare(stored, candidate Template) (float64, error)
}

// MSEMatcher computes the mean squared error between two equal-length
// normalized templates.
type MSEMatcher struct{}

func (MSEMatcher) Compare(stored, candidate Template) (float64, error) {
	if len(stored) == 0 || len(candidate) == 0 {
		return 0, fmt.Errorf("empty template: %w", ErrSampleUndecodable)
	}
	if len(stored) != len(candidate) {
		return 0, fmt.Errorf("template length mismatch %d != %d: %w", len(stored), len(candidate), ErrSampleUndecodable)
	}
	var sum float64
	for i := range stored {
		d := float64(stored[i] - candidate[i])
		sum += d * d
	}
	return sum / float64(len(stored)), nil
}

// GrayscaleDecoder treats the sample bytes as an already-cropped grayscale
// patch and normalizes each byte into [0,1]. It stands in for the face
// pipeline in development and tests.
type GrayscaleDecoder struct{}

func (GrayscaleDecoder) Decode(data []byte) (Template, error) {
	if len(data) == 0 {
		return nil, ErrSampleUndecodable
	}
	t := make(Template, len(data))
	for i, b := range data {
		t[i] = float32(b) / 255.0
	}
	return t, nil
}
