package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// maxTraceIDLength caps caller-supplied ids so a hostile header cannot bloat
// every downstream log line.
const maxTraceIDLength = 128

// TraceMiddleware propagates the caller's trace identifier, or mints one, so
// every log line and problem response produced for a request shares it.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" || len(traceID) > maxTraceIDLength {
			traceID = uuid.NewString()
		}
		ctx := contextWithTraceID(r.Context(), traceID)
		w.Header().Set(traceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func contextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceContextKey, traceID)
}
