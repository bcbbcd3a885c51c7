package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Limiter paces document downloads per host. Every host gets its own token
// bucket; hosts with an override use their own rate.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	overrides map[string]rate.Limit
	rate      rate.Limit
	burst     int
	delay     time.Duration
}

// NewLimiter creates a limiter allowing requestsPerSecond downloads per host
// with the given burst. delay is an extra pause after each granted token.
func NewLimiter(requestsPerSecond float64, burst int, delay time.Duration) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		buckets:   make(map[string]*rate.Limiter),
		overrides: make(map[string]rate.Limit),
		rate:      rate.Limit(requestsPerSecond),
		burst:     burst,
		delay:     max(delay, 0),
	}
}

// SetHostRate overrides the download rate for one host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64) {
	host = strings.ToLower(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.overrides[host] = rate.Limit(requestsPerSecond)
	if bucket, ok := l.buckets[host]; ok {
		bucket.SetLimit(rate.Limit(requestsPerSecond))
	}
}

// Wait blocks until the host of rawURL may be contacted
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}

	if err := l.bucket(host).Wait(ctx); err != nil {
		return eris.Wrapf(err, "wait for %s", host)
	}

	if l.delay == 0 {
		return nil
	}
	timer := time.NewTimer(l.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// bucket returns the token bucket for host, creating it on first use
func (l *Limiter) bucket(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bucket, ok := l.buckets[host]; ok {
		return bucket
	}

	limit := l.rate
	if override, ok := l.overrides[host]; ok {
		limit = override
	}
	bucket := rate.NewLimiter(limit, l.burst)
	l.buckets[host] = bucket
	return bucket
}

// hostOf returns the lower-cased host of rawURL; local paths have none
func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "parse %q", rawURL)
	}
	if parsed.Host == "" {
		return "", eris.Errorf("no host in %q", rawURL)
	}
	return strings.ToLower(parsed.Host), nil
}
