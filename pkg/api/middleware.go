package api

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"matrix_router/pkg/apperror"
	"matrix_router/pkg/logger"
	"matrix_router/pkg/metrics"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = 0

// requestID returns the id assigned by the middleware, or "".
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// middleware holds the state shared by every wrapped route.
type middleware struct {
	cfg     ServerConfig
	sem     chan struct{}
	limiter *rate.Limiter // nil = unlimited
	metrics *metrics.Metrics
}

func newMiddleware(cfg ServerConfig, m *metrics.Metrics) *middleware {
	mw := &middleware{
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		metrics: m,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = max(1, int(cfg.RateLimit))
		}
		mw.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return mw
}

// wrap applies request id, security headers, CORS, rate and concurrency
// limits, panic recovery, the request timeout, access logging and metrics.
func (mw *middleware) wrap(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		r = r.WithContext(ctx)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		if mw.cfg.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", mw.cfg.CORSOrigin)
		}

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			d := time.Since(start)
			mw.metrics.ObserveHTTP(route, r.Method, status, d)
			logger.WithRequestID(id).Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", d.Round(time.Microsecond),
			)
		}()

		if mw.limiter != nil && !mw.limiter.Allow() {
			writeError(rec, r, apperror.New(apperror.CodeRateLimited, "too many requests"))
			return
		}

		select {
		case mw.sem <- struct{}{}:
			defer func() { <-mw.sem }()
		default:
			writeError(rec, r, apperror.New(apperror.CodeServiceUnavailable, "server is at capacity"))
			return
		}

		if mw.metrics != nil {
			mw.metrics.HTTPInFlight.Inc()
			defer mw.metrics.HTTPInFlight.Dec()
		}

		defer func() {
			if p := recover(); p != nil {
				slog.Error("panic in handler", "request_id", id, "panic", p, "stack", string(debug.Stack()))
				writeError(rec, r, apperror.New(apperror.CodeInternal, "internal error"))
			}
		}()

		if mw.cfg.RequestTimeout > 0 {
			tctx, cancel := context.WithTimeout(ctx, mw.cfg.RequestTimeout)
			defer cancel()
			r = r.WithContext(tctx)
		}
		handler(rec, r)
	}
}
