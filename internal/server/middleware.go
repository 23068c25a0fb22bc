package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyRole      contextKey = "actor_role"
)

const headerAPIKey = "X-API-Key"

// Actor roles attached by authMiddleware.
const (
	roleAnonymous = "anonymous"
	roleReader    = "reader"
	roleAdmin     = "admin"
)

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func roleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(contextKeyRole).(string); ok {
		return role
	}
	return roleAnonymous
}

// requestIDMiddleware tags every request with a UUID, echoed back in the
// X-Request-ID header.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authMiddleware resolves the caller's role from the X-API-Key header.
// When no API key is configured, auth is disabled and every caller gets
// admin access (local development mode).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := roleAnonymous
		switch {
		case s.cfg.APIKey == "":
			role = roleAdmin
		case s.cfg.AdminAPIKey != "" && r.Header.Get(headerAPIKey) == s.cfg.AdminAPIKey:
			role = roleAdmin
		case r.Header.Get(headerAPIKey) == s.cfg.APIKey:
			role = roleReader
		}

		if role == roleAnonymous {
			s.writeError(w, http.StatusUnauthorized, "missing or invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyRole, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin guards admin-only routes.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if roleFromContext(r.Context()) != roleAdmin {
			s.writeError(w, http.StatusForbidden, "admin API key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window per-caller request counter. Windows are one
// minute wide and reset on the minute boundary of first use.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	windows   map[string]*rateWindow
	timeNowFn func() time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		limit:     perMinute,
		windows:   make(map[string]*rateWindow),
		timeNowFn: time.Now,
	}
}

// allow reports whether the caller identified by key may proceed.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.timeNowFn()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= time.Minute {
		rl.windows[key] = &rateWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

// rateLimitMiddleware enforces the per-minute request budget. Callers are
// keyed by API key when present, remote address otherwise.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(headerAPIKey)
		if key == "" {
			key = r.RemoteAddr
		}
		if !s.limiter.allow(key) {
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// auditMiddleware records every API request in the audit log.
func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		err := s.runs.RecordAuditEvent(
			r.Method,
			r.URL.Path,
			ww.Status(),
			requestIDFromContext(r.Context()),
			roleFromContext(r.Context()),
		)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to record audit event")
		}
	})
}
