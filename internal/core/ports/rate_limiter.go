package ports

// RateLimiter decides whether a principal may proceed in its current window.
type RateLimiter interface {
	Check(principalID string) RateDecision
}

// RateDecision is the outcome of RateLimiter.Check.
type RateDecision struct {
	Allowed    bool
	Count      int
	RetryAfter int
}
