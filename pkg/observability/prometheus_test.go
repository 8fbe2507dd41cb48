package observability

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusHooks_Records(t *testing.T) {
	h, err := NewPrometheusHooks(MetricsConfig{})
	require.NoError(t, err)
	ctx := context.Background()

	h.OnGraphSealed(ctx, "AppGraph", 4, 0, 10*time.Millisecond)
	h.OnDiagnostic(ctx, "AppGraph", "MissingBinding")
	h.OnDiagnostic(ctx, "AppGraph", "MissingBinding")
	h.OnContainerResolved(ctx, "AppContainer", 1, true)
	h.OnCacheHit(ctx, "metadata")
	h.OnCacheSet(ctx, "metadata", 128)
	h.OnResponse(ctx, "POST", "/v1/resolve", 200, time.Millisecond)

	assert.Equal(t, 4.0, testutil.ToFloat64(h.graphBindings.WithLabelValues("AppGraph")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.diagnostics.WithLabelValues("MissingBinding")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.containers.WithLabelValues("metadata")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.cacheEvents.WithLabelValues("metadata", "hit")))
	assert.Equal(t, 128.0, testutil.ToFloat64(h.cacheBytes.WithLabelValues("metadata")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.httpRequests.WithLabelValues("POST", "/v1/resolve", "200")))
}

func TestPrometheusHooks_Handler(t *testing.T) {
	h, err := NewPrometheusHooks(MetricsConfig{Namespace: "test"})
	require.NoError(t, err)
	h.OnDiagnostic(context.Background(), "G", "DependencyCycle")

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_diagnostics_total{kind="DependencyCycle"} 1`))
}

func TestPrometheusHooks_PushWithoutURL(t *testing.T) {
	h, err := NewPrometheusHooks(MetricsConfig{})
	require.NoError(t, err)
	assert.NoError(t, h.Push(context.Background()))
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "a_b", sanitizeLabel("a\nb"))
	assert.Len(t, []rune(sanitizeLabel(strings.Repeat("x", 300))), maxLabelLength)
}
