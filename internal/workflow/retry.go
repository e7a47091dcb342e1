package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"careflow/pkg/platform/circuit"
)

// retryPolicy bounds adapter retries inside one stage execution. The
// backoff doubles per attempt starting from base.
type retryPolicy struct {
	attempts int
	base     time.Duration
}

// run invokes fn up to attempts times, sleeping between failures. The
// breaker short-circuits the call while open; a success closes it again
// through RecordSuccess on a later attempt.
func (p retryPolicy) run(ctx context.Context, breaker *circuit.Breaker, fn func(ctx context.Context) error) error {
	var lastErr error
	backoff := p.base
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if breaker != nil && breaker.IsOpen() {
			lastErr = errBreakerOpen{name: breaker.Name()}
			continue
		}

		err := fn(ctx)
		if err == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			return nil
		}
		if breaker != nil {
			breaker.RecordFailure()
		}
		lastErr = err
	}
	return lastErr
}

type errBreakerOpen struct{ name string }

func (e errBreakerOpen) Error() string {
	return "circuit breaker open for " + e.name
}

// hashBytes fingerprints stage inputs and outputs so audit entries and
// stage results can be tied to the exact data they were computed from.
func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
