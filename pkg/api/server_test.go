package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/httputil"
	"github.com/matzehuels/bindgraph/pkg/metadata"
	"github.com/matzehuels/bindgraph/pkg/session"
)

const appYAML = `
name: app
containers:
  - name: com.example.AppContainer
    annotated: true
    members:
      - name: provideValue
        type: String
        provides: true
      - name: provideGreeting
        type: Greeting
        provides: true
        params:
          - name: value
            type: String
graphs:
  - name: com.example.AppGraph
    containers: [com.example.AppContainer]
    accessors:
      - name: greeting
        type: Greeting
`

const brokenYAML = `
name: broken
graphs:
  - name: com.example.Broken
    accessors:
      - name: greeting
        type: Greeting
`

func newTestServer(t *testing.T) (*httptest.Server, *metadata.Store) {
	t.Helper()
	logger := log.New(io.Discard)
	store := metadata.NewStore(cache.NewMemoryCache(), metadata.WithLogger(logger))
	runner := session.NewRunner(cache.NewMemoryCache(), nil, store, logger)
	srv := httptest.NewServer(New(runner, store, WithLogger(logger),
		WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "bindgraph_up 1\n")
		}))))
	t.Cleanup(srv.Close)
	return srv, store
}

func post(t *testing.T, url, contentType, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.EqualValues(t, metadata.Version, info["metadata_format"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "bindgraph_up")
}

func TestResolve(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/v1/resolve?format=yaml", "text/plain", appYAML)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "miss", resp.Header.Get("X-Bindgraph-Cache"))

	var rep session.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	assert.True(t, rep.OK)
	require.Len(t, rep.Graphs, 1)
	assert.Equal(t, "com.example.AppGraph", rep.Graphs[0].Graph)
	require.NotNil(t, rep.Graphs[0].Plan)
	var keys []string
	for _, b := range rep.Graphs[0].Plan.Bindings {
		keys = append(keys, b.Key)
	}
	assert.Contains(t, keys, "Greeting")
	assert.Contains(t, keys, "String")

	again := post(t, srv.URL+"/v1/resolve", "application/yaml", appYAML)
	require.Equal(t, http.StatusOK, again.StatusCode)
	assert.Equal(t, "hit", again.Header.Get("X-Bindgraph-Cache"))
}

func TestResolveDiagnostics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/v1/resolve?format=yaml", "", brokenYAML)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep session.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	assert.False(t, rep.OK)
	diags := rep.Diagnostics()
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "Greeting")
}

func TestResolveBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name, url, body string
		code            string
	}{
		{"unknown format", "/v1/resolve?format=ini", appYAML, "INVALID_FORMAT"},
		{"empty body", "/v1/resolve?format=yaml", "", "INVALID_INPUT"},
		{"schema violation", "/v1/resolve?format=json", `{"name": 3}`, "INVALID_SCHEMA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.url, "", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			var body httputil.ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.EqualValues(t, tt.code, body.Error.Code)
		})
	}
}

func TestRenderDOT(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/v1/render?format=yaml&graph=com.example.AppGraph", "", appYAML)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/vnd.graphviz", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(body), `digraph "com.example.AppGraph"`))

	missing := post(t, srv.URL+"/v1/render?format=yaml&graph=Nope", "", appYAML)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	failed := post(t, srv.URL+"/v1/render?format=yaml", "", brokenYAML)
	assert.Equal(t, http.StatusUnprocessableEntity, failed.StatusCode)
}

func TestMetadata(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.Save(context.Background(), &metadata.Record{Name: "com.example.NetContainer"}))

	resp, err := http.Get(srv.URL + "/v1/metadata/com.example.NetContainer")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var rec metadata.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "com.example.NetContainer", rec.Name)

	resp, err = http.Get(srv.URL + "/v1/metadata/com.example.Unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSchema(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/schema+json", resp.Header.Get("Content-Type"))
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
}
