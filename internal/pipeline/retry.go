package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/tripgenie/internal/generate"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *generate.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > maxBackoff {
		base = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const maxBackoff = 30 * time.Second

// MaxRetries is the default number of generation attempts per job.
const MaxRetries = 3
