package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	. "postboard/pkg/common"
	"postboard/pkg/logger"
	"postboard/pkg/outcome"
)

const RequestIDHeader = "X-Request-ID"

type (
	requestIDKey struct{}

	Logging struct {
		Logger *zap.SugaredLogger
	}

	statusRecorder struct {
		http.ResponseWriter
		status int
		wrote  bool
	}
)

func NewLoggingMiddleware(l *zap.SugaredLogger) *Logging {
	return &Logging{Logger: l}
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.wrote = true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.wrote = true
	return sr.ResponseWriter.Write(b)
}

// RequestID is the id SetupTracing assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// SetupTracing takes the request id from the client or makes a new one.
func (lm *Logging) SetupTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetupLogging puts a logger tagged with the request id into the context.
func (lm *Logging) SetupLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := lm.Logger
		if reqID := RequestID(r.Context()); reqID != "" {
			l = l.With("requestId", reqID)
		}
		next.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), l)))
	})
}

func (lm *Logging) AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Log(r.Context()).Infow("access",
			"method", r.Method,
			"path", r.URL.Path,
			"remoteAddr", r.RemoteAddr,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Recover turns a panic in a handler into an internal error outcome. A
// handler that already started its response keeps it and the panic is
// only logged.
func (lm *Logging) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				err := fmt.Errorf("middleware: panic serving %s %s: %v", r.Method, r.URL.Path, p)
				if rec.wrote {
					logger.Log(r.Context()).Errorf("%v (response already started with status %d)", err, rec.status)
					return
				}
				WriteOutcome(r.Context(), w, outcome.FromError(r.Context(), err))
			}
		}()
		next.ServeHTTP(rec, r)
	})
}
