package httputil

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/bindgraph/pkg/observability"
)

// Instrument reports requests to the HTTP hooks and wraps each one in a
// span.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, end := observability.Trace().StartSpan(r.Context(), "http.request",
			observability.Attr{Key: "http.method", Value: r.Method},
			observability.Attr{Key: "http.path", Value: r.URL.Path},
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(ctx)
		next.ServeHTTP(ww, r)

		// The route pattern is only known after routing.
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnRequest(ctx, r.Method, route)
		observability.HTTP().OnResponse(ctx, r.Method, route, status, time.Since(start))
		end(nil)
	})
}
