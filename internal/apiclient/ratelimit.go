package apiclient

import (
	"golang.org/x/time/rate"
)

// newLimiter builds the outbound token bucket. Non-positive values fall back
// to 5 rps with a burst of 10.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
