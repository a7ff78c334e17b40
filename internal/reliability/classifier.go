// Package reliability classifies provider failures and shapes backoff
// for the polling/image paths. Nothing here retries on its own; the
// chat round trip stays single-shot and user-driven.
package reliability

import "time"

// IsRetryableHTTPStatus classifies retryable upstream HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ErrorClass buckets a failure per the service error taxonomy.
type ErrorClass string

const (
	// ClassValidation covers malformed or missing input; never retried.
	ClassValidation ErrorClass = "validation"
	// ClassUpstream covers provider/subprocess failures; surfaced as a
	// generic failure with a canned fallback in the chat path.
	ClassUpstream ErrorClass = "upstream"
	// ClassStorage covers serialization and keyspace failures.
	ClassStorage ErrorClass = "storage"
)

// ExponentialBackoff computes a deterministic capped backoff duration
// for poll loops.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
