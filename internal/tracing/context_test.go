package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abc")
	assert.Equal(t, "abc", GetTraceID(ctx))
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestTripIDRoundTrip(t *testing.T) {
	ctx := WithTripID(context.Background(), "trip-1")
	assert.Equal(t, "trip-1", GetTripID(ctx))
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background())
	assert.NotEmpty(t, GetTraceID(ctx))
}

func TestExtractFromRequest(t *testing.T) {
	t.Run("uses incoming header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(TraceIDHeader, "incoming")

		ctx := ExtractFromRequest(r)
		assert.Equal(t, "incoming", GetTraceID(ctx))
	})

	t.Run("mints when absent", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		ctx := ExtractFromRequest(r)
		assert.NotEmpty(t, GetTraceID(ctx))
	})
}

func TestInjectIntoResponse(t *testing.T) {
	ctx := WithTraceID(context.Background(), "out")
	w := httptest.NewRecorder()

	InjectIntoResponse(ctx, w)
	require.Equal(t, "out", w.Header().Get(TraceIDHeader))
}
