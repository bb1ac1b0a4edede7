package httpapi

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/observability"
)

// route returns the matched chi pattern so metrics stay low-cardinality.
func route(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Logging logs method, route, status and duration. Payloads are never logged.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("route", route(r)),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

// Recover turns a handler panic into a 500.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request latency per route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTPRequestDuration.
			WithLabelValues(r.Method, route(r), strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// Bearer authenticates "Authorization: Bearer <token>" and stores the subject in the context.
func (s *Server) Bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, r, errs.ErrUnauthenticated)
			return
		}
		uid, err := s.auth.Authenticate(token)
		if err != nil {
			s.writeError(w, r, errs.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}

// clientLimiter is a per-address token bucket with bounded memory.
type clientLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	max     int
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		max:     10000,
	}
}

func (c *clientLimiter) allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.buckets[key]
	if !ok {
		if len(c.buckets) >= c.max {
			clear(c.buckets)
		}
		l = rate.NewLimiter(c.limit, c.burst)
		c.buckets[key] = l
	}
	return l.Allow()
}

// RateLimit answers 429 once a client address exceeds rps with the given burst.
func (s *Server) RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	cl := newClientLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.allow(clientAddr(r)) {
				s.writeError(w, r, errs.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i > 0 {
		return addr[:i]
	}
	return addr
}
