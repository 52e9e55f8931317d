package web

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"portfolio/internal/metrics"
)

// NewRouter mounts the routes and wraps them in the middleware chain:
// security headers, request id, logging, recover, Prometheus.
func NewRouter(h *Handler, debugMode bool, log *slog.Logger) http.Handler {
	mux := goahttp.NewMuxer()

	mux.Handle(http.MethodGet, "/", h.Index)
	mux.Handle(http.MethodPost, "/contact", h.Contact)
	mux.Handle(http.MethodGet, "/health", h.Health)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	files := http.StripPrefix("/static/", http.FileServerFS(static))

	// Route /metrics to Prometheus, /static/ to the embedded assets and
	// everything else to the goa mux
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/metrics":
			promhttp.Handler().ServeHTTP(w, r)
			return
		case strings.HasPrefix(r.URL.Path, "/static/") && r.Method == http.MethodGet:
			files.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	var handler http.Handler = metrics.PrometheusMiddleware("/", "/contact", "/health", "/static/*")(root)
	handler = recoverer(h.flash, log)(handler)
	handler = requestLogging(log)(handler)
	handler = middleware.PopulateRequestContext()(handler)
	handler = middleware.RequestID()(handler)
	handler = securityHeaders(debugMode)(handler)
	return handler
}
