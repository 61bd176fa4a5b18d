package llm

import "time"

// RetryConfig shapes the backoff schedule for transient model call
// failures. Retries are per endpoint; exhausting them moves the client to
// the next endpoint in the tier.
type RetryConfig struct {
	// MaxAttempts bounds attempts against one endpoint.
	MaxAttempts int

	// BackoffBase is the delay before the first retry.
	BackoffBase time.Duration

	// BackoffMultiplier grows the delay on each subsequent retry.
	BackoffMultiplier float64

	// MaxBackoff caps the grown delay.
	MaxBackoff time.Duration
}

// DefaultRetryConfig is tuned for chat-completion latencies: three
// attempts, exponential backoff from two seconds, capped at thirty.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}
