package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/bindgraph/pkg/buildinfo"
	"github.com/matzehuels/bindgraph/pkg/decl"
	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
	"github.com/matzehuels/bindgraph/pkg/httputil"
	"github.com/matzehuels/bindgraph/pkg/metadata"
	"github.com/matzehuels/bindgraph/pkg/render"
	"github.com/matzehuels/bindgraph/pkg/session"
)

// Server is the HTTP API. It is safe for concurrent use.
type Server struct {
	runner  *session.Runner
	store   *metadata.Store
	logger  *log.Logger
	opts    session.Options
	maxBody int64
	metrics http.Handler
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithOptions sets the default resolution options.
func WithOptions(o session.Options) Option { return func(s *Server) { s.opts = o } }

// WithMaxBody bounds posted modules.
func WithMaxBody(n int64) Option { return func(s *Server) { s.maxBody = n } }

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// New creates a server on runner. store may be nil, in which case the
// metadata route answers 501.
func New(runner *session.Runner, store *metadata.Store, opts ...Option) *Server {
	s := &Server{runner: runner, store: store, logger: log.Default(), maxBody: httputil.DefaultMaxBody}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.Instrument)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, buildinfo.Get(metadata.Version))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/schema", s.handleSchema)
		r.Post("/resolve", s.handleResolve)
		r.Post("/render", s.handleRender)
		r.Get("/metadata/{name}", s.handleMetadata)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(decl.SchemaSource())
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	rep, hit, err := s.resolve(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("X-Bindgraph-Cache", cacheStatus(hit))
	httputil.WriteJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("output")
	if format == "" {
		format = "dot"
	}
	if format != "dot" && format != "svg" {
		httputil.WriteError(w, bgerrors.New(bgerrors.ErrCodeInvalidInput, "unknown output %q (want dot or svg)", format))
		return
	}

	rep, hit, err := s.resolve(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	path := r.URL.Query().Get("graph")
	if path == "" && len(rep.Graphs) > 0 {
		path = rep.Graphs[0].Graph
	}
	gr, ok := rep.Find(path)
	if !ok {
		httputil.WriteError(w, bgerrors.New(bgerrors.ErrCodeNotFound, "graph %q not in module", path))
		return
	}
	if gr.Plan == nil {
		// The graph failed; return its diagnostics instead of a drawing.
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, gr)
		return
	}

	dot := render.ToDOT(gr.Plan, render.Options{Detailed: queryBool(r, "detailed")})
	w.Header().Set("X-Bindgraph-Cache", cacheStatus(hit))
	if format == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(dot))
		return
	}
	svg, err := render.RenderSVG(r.Context(), dot)
	if err != nil {
		httputil.WriteError(w, bgerrors.Wrap(bgerrors.ErrCodeInternal, err, "render %s", path))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.WriteError(w, bgerrors.New(bgerrors.ErrCodeUnsupported, "metadata store is disabled"))
		return
	}
	name := chi.URLParam(r, "name")
	rec, ok, err := s.store.Load(r.Context(), name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !ok {
		httputil.WriteError(w, bgerrors.New(bgerrors.ErrCodeMetadataMissing, "no metadata for %s", name))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) resolve(r *http.Request) (*session.Report, bool, error) {
	format, err := requestFormat(r)
	if err != nil {
		return nil, false, err
	}
	body, err := httputil.ReadBody(r, s.maxBody)
	if err != nil {
		return nil, false, err
	}
	m, err := decl.Decode(body, format)
	if err != nil {
		return nil, false, err
	}
	opts := s.opts
	if v := r.URL.Query().Get("short"); v != "" {
		opts.ShortNames = queryBool(r, "short")
	}
	return s.runner.Resolve(r.Context(), m, opts, queryBool(r, "refresh"))
}

func requestFormat(r *http.Request) (decl.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		switch decl.Format(strings.ToLower(f)) {
		case decl.FormatYAML, decl.FormatTOML, decl.FormatJSON:
			return decl.Format(strings.ToLower(f)), nil
		}
		return "", bgerrors.New(bgerrors.ErrCodeInvalidFormat, "unknown format %q (want yaml, toml or json)", f)
	}
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "yaml"):
		return decl.FormatYAML, nil
	case strings.Contains(ct, "toml"):
		return decl.FormatTOML, nil
	}
	return decl.FormatJSON, nil
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
