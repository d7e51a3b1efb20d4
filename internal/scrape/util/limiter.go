package util

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter keeps one token bucket per host. A nil *HostLimiter never blocks.
type HostLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewHostLimiter allows perSecond requests per host. perSecond <= 0 means unlimited.
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	hl := &HostLimiter{
		limit:   rate.Inf,
		burst:   max(burst, 1),
		buckets: make(map[string]*rate.Limiter),
	}
	if perSecond > 0 {
		hl.limit = rate.Limit(perSecond)
	}
	return hl
}

// HostKey is the bucket a URL counts against: the lowercased host without
// port or a leading "www.". URLs without a host share the "_" bucket.
func HostKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "_"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func (hl *HostLimiter) bucket(key string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	b, ok := hl.buckets[key]
	if !ok {
		b = rate.NewLimiter(hl.limit, hl.burst)
		hl.buckets[key] = b
	}
	return b
}

// Wait blocks until a request to the host key is allowed or ctx is done.
func (hl *HostLimiter) Wait(ctx context.Context, key string) error {
	if hl == nil {
		return ctx.Err()
	}
	return hl.bucket(key).Wait(ctx)
}

func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	return hl.Wait(ctx, HostKey(raw))
}
