package middleware

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/tenant"
	"github.com/vberezan/multitier/internal/util"
)

// anonymousSite labels requests that resolved no tenant.
const anonymousSite = "_"

// SiteRateLimiter applies a token bucket per tenant. Each site gets its
// own bucket sized by a perSite override or the shared defaults;
// requests without a resolved tenant share one anonymous bucket. Keys
// are site slugs, so the map is bounded by the registry and needs no
// expiry.
type SiteRateLimiter struct {
	defaultRate  rate.Limit
	defaultBurst int
	overrides    map[string]config.RateLimitRule
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	logger       observability.Logger
	metrics      *observability.Metrics
}

// SiteRateLimiterOption is a functional option for the rate limiter.
type SiteRateLimiterOption func(*SiteRateLimiter)

// WithRateLimitLogger sets the logger for the rate limiter.
func WithRateLimitLogger(logger observability.Logger) SiteRateLimiterOption {
	return func(l *SiteRateLimiter) {
		l.logger = logger
	}
}

// WithRateLimitMetrics records rejections on the given metrics value.
func WithRateLimitMetrics(m *observability.Metrics) SiteRateLimiterOption {
	return func(l *SiteRateLimiter) {
		l.metrics = m
	}
}

// NewSiteRateLimiter builds a limiter from the rate-limit configuration.
func NewSiteRateLimiter(cfg *config.RateLimitConfig, opts ...SiteRateLimiterOption) *SiteRateLimiter {
	overrides := make(map[string]config.RateLimitRule, len(cfg.PerSite))
	for slug, rule := range cfg.PerSite {
		overrides[slug] = rule
	}

	l := &SiteRateLimiter{
		defaultRate:  rate.Limit(cfg.RPS),
		defaultBurst: normalizeBurst(cfg.Burst, cfg.RPS),
		overrides:    overrides,
		limiters:     make(map[string]*rate.Limiter),
		logger:       observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// normalizeBurst derives a usable burst: twice the rate when unset,
// never below one token.
func normalizeBurst(burst int, rps float64) int {
	if burst <= 0 {
		burst = 2 * int(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return burst
}

// Check consumes one token from the site's bucket. It returns nil when
// the request may proceed and a *util.RateLimitError carrying the
// retry-after hint when it may not.
func (l *SiteRateLimiter) Check(slug string) error {
	lim, limit := l.limiterFor(slug)

	res := lim.Reserve()
	if !res.OK() {
		return util.NewRateLimitError(int(limit), time.Second)
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return util.NewRateLimitError(int(limit), delay)
	}
	return nil
}

func (l *SiteRateLimiter) limiterFor(slug string) (*rate.Limiter, rate.Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, burst := l.defaultRate, l.defaultBurst
	if rule, ok := l.overrides[slug]; ok {
		r = rate.Limit(rule.RPS)
		burst = normalizeBurst(rule.Burst, rule.RPS)
	}

	lim, ok := l.limiters[slug]
	if !ok {
		lim = rate.NewLimiter(r, burst)
		l.limiters[slug] = lim
	}
	return lim, r
}

// RateLimit returns a middleware enforcing per-tenant limits. A nil
// limiter yields a pass-through.
func RateLimit(limiter *SiteRateLimiter) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := anonymousSite
			if rec, ok := tenant.FromContext(r.Context()); ok {
				slug = rec.Slug
			}

			if err := limiter.Check(slug); err != nil {
				limiter.reject(w, r, slug, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitFromConfig builds the middleware from configuration.
// Disabled or absent config yields a pass-through and a nil limiter.
func RateLimitFromConfig(
	cfg *config.RateLimitConfig,
	opts ...SiteRateLimiterOption,
) (func(http.Handler) http.Handler, *SiteRateLimiter) {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	}
	l := NewSiteRateLimiter(cfg, opts...)
	return RateLimit(l), l
}

func (l *SiteRateLimiter) reject(w http.ResponseWriter, r *http.Request, slug string, err error) {
	l.logger.Warn("rate limit exceeded",
		observability.String("site", slug),
		observability.String("path", r.URL.Path),
		observability.String("client_ip", getClientIP(r)),
	)
	if l.metrics != nil {
		l.metrics.RecordRateLimitHit(slug)
	}

	retryAfter := "1"
	var rlErr *util.RateLimitError
	if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
		if secs := int(math.Ceil(rlErr.RetryAfter.Seconds())); secs > 1 {
			retryAfter = strconv.Itoa(secs)
		}
	}

	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.Header().Set(HeaderRetryAfter, retryAfter)
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = io.WriteString(w, ErrRateLimitExceeded)
}
