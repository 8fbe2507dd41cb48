package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
	"github.com/matzehuels/bindgraph/pkg/observability"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{bgerrors.New(bgerrors.ErrCodeInvalidSchema, "bad"), http.StatusUnprocessableEntity},
		{bgerrors.New(bgerrors.ErrCodeNotFound, "gone"), http.StatusNotFound},
		{bgerrors.New(bgerrors.ErrCodeMetadataMismatch, "v2"), http.StatusConflict},
		{bgerrors.New(bgerrors.ErrCodeUnsupported, "no"), http.StatusNotImplemented},
		{bgerrors.New(bgerrors.ErrCodeStorage, "down"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, bgerrors.New(bgerrors.ErrCodeInvalidFormat, "unknown format %q", "ini"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != bgerrors.ErrCodeInvalidFormat {
		t.Errorf("code = %q, want %q", body.Error.Code, bgerrors.ErrCodeInvalidFormat)
	}
	if body.Error.Message != `unknown format "ini"` {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestReadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
	data, err := ReadBody(req, 10)
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadBody() = %q, %v", data, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello world"))
	if _, err := ReadBody(req, 5); !bgerrors.Is(err, bgerrors.ErrCodeInvalidInput) {
		t.Errorf("oversized body error = %v, want INVALID_INPUT", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if _, err := ReadBody(req, 5); !bgerrors.Is(err, bgerrors.ErrCodeInvalidInput) {
		t.Errorf("empty body error = %v, want INVALID_INPUT", err)
	}
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
	codes  []int
}

func (h *recordingHooks) OnResponse(_ context.Context, _, route string, code int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	h.codes = append(h.codes, code)
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/v1/metadata/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/metadata/NetContainer", nil))

	if len(hooks.routes) != 1 || hooks.routes[0] != "/v1/metadata/{name}" {
		t.Errorf("routes = %v, want [/v1/metadata/{name}]", hooks.routes)
	}
	if len(hooks.codes) != 1 || hooks.codes[0] != http.StatusTeapot {
		t.Errorf("codes = %v, want [418]", hooks.codes)
	}
}
