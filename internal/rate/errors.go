package rate

import "errors"

var (
	// ErrRateLimited reports an exhausted attempt window.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable reports a Redis failure while counting.
	ErrUnavailable = errors.New("rate limiter unavailable")
)
