/*
Package limiter throttles clients by address.

IPRateLimiter is a token bucket per address used to smooth connection attempts. FixedWindow
counts message sends per address in fixed windows, backed by process memory or by Redis when
several instances must share one budget.
*/
package limiter

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/logx"
	"quicktalk/internal/pkg/resp"
)

const visitorCleanupInterval = 3 * time.Minute

// IPRateLimiter holds one token bucket per client address.
type IPRateLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter

	// r is the refill rate and b the bucket size of every limiter.
	r rate.Limit
	b int
}

// NewIPRateLimiter returns a limiter allowing r events per second with bursts of b per address.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists = i.limits[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limits[ip] = limiter
	}
	return limiter
}

// Run drops idle buckets until ctx is done. A bucket is idle once it has refilled completely.
func (i *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(visitorCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, remaining := i.cleanup(now)
			logx.Debug("Rate limiter cleanup finished", "removed", removed, "remaining", remaining)
		}
	}
}

func (i *IPRateLimiter) cleanup(now time.Time) (removed, remaining int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for ip, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, ip)
			removed++
		}
	}
	return removed, len(i.limits)
}

// Middleware answers 429 once the caller's bucket is empty.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := ClientAddress(r)
		if !i.GetLimiter(addr).Allow() {
			logx.Warn("Request rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(addr), "path", r.URL.Path)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientAddress returns the host part of r.RemoteAddr, which chi's RealIP middleware has
// already replaced with the forwarded client address when present.
func ClientAddress(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}
