package tracing

import (
	"context"
	"net/http"
)

// TraceIDHeader carries the trace ID across HTTP boundaries
const TraceIDHeader = "X-Trace-ID"

// ExtractFromRequest pulls the trace ID from request headers, minting
// a new one when the caller did not send one.
func ExtractFromRequest(r *http.Request) context.Context {
	traceID := r.Header.Get(TraceIDHeader)
	if traceID == "" {
		traceID = NewTraceID()
	}
	return WithTraceID(r.Context(), traceID)
}

// InjectIntoResponse writes the context's trace ID onto the response
func InjectIntoResponse(ctx context.Context, w http.ResponseWriter) {
	if traceID := GetTraceID(ctx); traceID != "" {
		w.Header().Set(TraceIDHeader, traceID)
	}
}
