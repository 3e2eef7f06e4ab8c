package middleware

import (
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dashport/dashport/audit"
	"github.com/dashport/dashport/auth"
	"github.com/dashport/dashport/config"
	"github.com/dashport/dashport/metrics"
)

// Limiter applies one endpoint class's quota with a token bucket per client
// address. Locally trusted clients are exempt from all accounting. Bucket
// updates are serialized by a mutex so concurrent bursts cannot undercount.
type Limiter struct {
	class       string
	limit       rate.Limit
	burst       int
	mu          sync.Mutex
	buckets     map[string]*rate.Limiter
	logger      *zap.Logger
	auditor     audit.Recorder
	auditAction string
}

// NewLimiter creates a rate limiter for one endpoint class.
func NewLimiter(class string, quota config.QuotaConfig, logger *zap.Logger) *Limiter {
	return &Limiter{
		class:   class,
		limit:   rate.Limit(float64(quota.Events) / quota.Interval.Seconds()),
		burst:   quota.Burst,
		buckets: make(map[string]*rate.Limiter),
		logger:  logger,
	}
}

// WithAudit makes the limiter record an audit event whenever it blocks a
// request, e.g. login_blocked_ip for the login class.
func (l *Limiter) WithAudit(auditor audit.Recorder, action string) *Limiter {
	l.auditor = auditor
	l.auditAction = action
	return l
}

// Middleware enforces the class quota keyed by the resolved client address.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := GetClientAddr(r.Context())
			if addr == "" {
				addr = auth.ResolveClientAddr(r)
			}

			// Trusted-local clients bypass quota accounting entirely.
			if auth.IsLocalAddr(addr) {
				next.ServeHTTP(w, r)
				return
			}

			if !l.allow(addr) {
				l.logger.Warn("Request rate limited",
					zap.String("class", l.class),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("client_addr", addr))
				metrics.RateLimitedTotal.WithLabelValues(l.class).Inc()

				if l.auditor != nil {
					l.auditor.Record(l.auditAction, "", addr, map[string]any{"class": l.class, "path": r.URL.Path})
				}

				sendErrorResponse(w, l.logger, "RATE_LIMITED", auth.ErrRateLimited.Error(), http.StatusTooManyRequests, false)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow()
}
