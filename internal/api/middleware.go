// Package api implements the Folio HTTP API using chi.
package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Session cookie parameters.
const (
	SessionCookieName = "admin_session"
	sessionToken      = "authenticated"
	sessionMaxAge     = 7 * 24 * time.Hour
)

// RequireSession rejects requests without a valid admin session cookie.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookieName)
		if err != nil || c.Value != sessionToken {
			writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(sessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func logoutCookie() *http.Cookie {
	return &http.Cookie{
		Name:   SessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}
}

// LoginLimiter is a per-client-IP token bucket for login attempts.
type LoginLimiter struct {
	limit    rate.Limit
	burst    int
	limiters sync.Map // ip -> *rate.Limiter
	allowed  prometheus.Counter
	rejected prometheus.Counter
}

// NewLoginLimiter allows limit attempts per second per IP with the given
// burst. Counters are registered with reg when it is non-nil.
func NewLoginLimiter(limit rate.Limit, burst int, reg prometheus.Registerer) *LoginLimiter {
	l := &LoginLimiter{
		limit: limit,
		burst: burst,
		allowed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "folio", Name: "login_rate_limit_allowed_total", Help: "Login attempts admitted by the rate limiter.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "folio", Name: "login_rate_limit_rejected_total", Help: "Login attempts rejected by the rate limiter.",
		}),
	}
	if reg != nil {
		reg.MustRegister(l.allowed, l.rejected)
	}
	return l
}

func (l *LoginLimiter) limiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.limit, l.burst))
	return v.(*rate.Limiter)
}

// Middleware rejects over-limit requests with 429.
func (l *LoginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiter(clientIP(r)).Allow() {
			l.rejected.Inc()
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody("too many login attempts"))
			return
		}
		l.allowed.Inc()
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}
