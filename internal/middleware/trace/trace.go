// Package trace assigns request IDs and logs the start and end of every
// HTTP request.
package trace

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"smartspend/internal/log"
)

type ctxKey struct{}

// RequestIDHeader echoes the request ID back to the client.
const RequestIDHeader = "X-Request-ID"

// Metrics summarises the requests seen since start.
type Metrics struct {
	TotalRequests  int64 `json:"total_requests"`
	InFlight       int64 `json:"in_flight"`
	ClientErrors   int64 `json:"client_errors"`
	ServerErrors   int64 `json:"server_errors"`
	MeanDurationUs int64 `json:"mean_duration_us"`
}

type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger

	total, inFlight     atomic.Int64
	clientErr, serveErr atomic.Int64
	durationUs          atomic.Int64
}

// NewMiddleware resolves client addresses with extractIP, which may be nil.
func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Middleware{extractIP: extractIP, logger: logger.WithComponent(log.ComponentHTTP)}
}

// Middleware tags the request with an ID and a logger carrying it; handlers
// get that logger back with log.FromContext.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var clientIP string
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		id := GenerateRequestID()
		reqLogger := m.logger.With(log.FieldRequestID, id)
		ctx := log.NewContext(context.WithValue(r.Context(), ctxKey{}, id), reqLogger)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, id)

		sl := log.NewStructuredLogger(reqLogger)
		sl.LogHTTPStart(ctx, r, clientIP)
		m.total.Add(1)
		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		switch {
		case status >= 500:
			m.serveErr.Add(1)
		case status >= 400:
			m.clientErr.Add(1)
		}
		elapsed := time.Since(start)
		m.durationUs.Add(elapsed.Microseconds())
		sl.LogHTTPEnd(ctx, r, status, elapsed.Milliseconds(), clientIP)
	})
}

// GenerateRequestID returns "req_" followed by 16 random hex digits.
func GenerateRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// GetRequestID returns the ID Middleware stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (m *Middleware) GetMetrics() Metrics {
	out := Metrics{
		TotalRequests: m.total.Load(),
		InFlight:      m.inFlight.Load(),
		ClientErrors:  m.clientErr.Load(),
		ServerErrors:  m.serveErr.Load(),
	}
	if out.TotalRequests > 0 {
		out.MeanDurationUs = m.durationUs.Load() / out.TotalRequests
	}
	return out
}
