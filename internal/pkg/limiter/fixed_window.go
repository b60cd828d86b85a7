package limiter

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/logx"
	"quicktalk/internal/pkg/resp"
)

const (
	// DefaultSendLimit is the number of message sends allowed per address per window.
	DefaultSendLimit = 100

	// DefaultSendWindow is the length of a send window.
	DefaultSendWindow = 15 * time.Minute
)

// WindowStore counts hits per key in fixed windows.
type WindowStore interface {
	// Incr adds one hit to key's current window, opening a new window of length window at now
	// if none is open, and returns the hit count and when the window closes.
	Incr(ctx context.Context, key string, window time.Duration, now time.Time) (count int64, resetAt time.Time, err error)
}

// Decision is the outcome of one FixedWindow check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// FixedWindow allows Limit hits per key per window.
type FixedWindow struct {
	store  WindowStore
	limit  int64
	window time.Duration
	now    func() time.Time
}

// FixedWindowOption customises a FixedWindow.
type FixedWindowOption func(*FixedWindow)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) FixedWindowOption {
	return func(f *FixedWindow) { f.now = now }
}

// NewFixedWindow returns a limiter allowing limit hits per window, counted in store.
func NewFixedWindow(store WindowStore, limit int, window time.Duration, opts ...FixedWindowOption) *FixedWindow {
	if limit <= 0 {
		limit = DefaultSendLimit
	}
	if window <= 0 {
		window = DefaultSendWindow
	}

	f := &FixedWindow{
		store:  store,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Allow records one hit for key and reports whether it fits in the current window.
func (f *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	count, resetAt, err := f.store.Incr(ctx, key, f.window, f.now())
	if err != nil {
		return Decision{}, err
	}

	remaining := f.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= f.limit,
		Limit:     f.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// AllowOrFailOpen is Allow that admits the hit when the store is unreachable.
func (f *FixedWindow) AllowOrFailOpen(ctx context.Context, key string) Decision {
	d, err := f.Allow(ctx, key)
	if err != nil {
		logx.Warn("Send window store unavailable, admitting request", "error", err.Error(), "key", key)
		return Decision{Allowed: true, Limit: f.limit, Remaining: f.limit}
	}
	return d
}

// Middleware answers 429 once the caller's address has used its window.
func (f *FixedWindow) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := f.AllowOrFailOpen(r.Context(), ClientAddress(r))

		w.Header().Set("RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
		w.Header().Set("RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

		if !d.Allowed {
			if wait := d.ResetAt.Sub(f.now()); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
