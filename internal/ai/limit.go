package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"media-cloud/internal/metrics"
)

// Service labels used in metrics.
const (
	ServiceCaption    = "caption"
	ServiceNarrate    = "narrate"
	ServiceBackground = "background"
)

// ErrThrottled is returned when a request could not get a rate limiter
// token before its context ended.
var ErrThrottled = errors.New("rate limited")

// NewLimiter returns a limiter allowing perMinute requests with bursts of
// the same size, or nil (no limit) when perMinute <= 0.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrThrottled, err)
	}
	return nil
}

// observe records the outcome of one remote request.
func observe(service string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrThrottled):
		status = "throttled"
	case err != nil:
		status = "error"
	}
	metrics.AIRequestsTotal.WithLabelValues(service, status).Inc()
	metrics.AIRequestDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}
