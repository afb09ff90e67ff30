package xclient

import (
	"golang.org/x/time/rate"
)

// newLimiter creates the client-side limiter shared by all remote calls.
// Non-positive values fall back to 2 rps with a burst of 10.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 2.0
	}
	if burst <= 0 {
		burst = 10
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
