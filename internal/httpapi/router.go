package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mermaidrender/internal/httpapi/handlers"
	"mermaidrender/internal/httpkit"
	"mermaidrender/internal/pkg/logger"
	"mermaidrender/internal/pkg/middleware"
)

type Deps struct {
	Handler        *handlers.Handler
	Log            *logger.Logger
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	MetricsPath    string // empty disables /metrics
	PublicDir      string // empty disables static files
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	h := d.Handler
	log := d.Log
	if log == nil {
		log = h.Log()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders: []string{handlers.HeaderRenderID, handlers.HeaderRenderCache, middleware.RequestIDHeader},
		MaxAgeSeconds:  600,
	}))

	// ---- HEALTH ----
	r.Get("/health", h.Health)
	r.Get("/readyz", h.Ready)

	if d.MetricsPath != "" {
		r.Handle(d.MetricsPath, promhttp.Handler())
	}

	// ---- RENDER ----
	r.With(middleware.RateLimit(d.RateLimit, d.RateBurst)).
		Post("/render", middleware.WrapHandler(log, h.Render))

	// ---- HISTORY ----
	r.Get("/renders", middleware.WrapHandler(log, h.ListRenders))
	r.Get("/renders/{renderId}", middleware.WrapHandler(log, h.GetRender))
	r.Get("/renders/{renderId}/content", middleware.WrapHandler(log, h.StreamRender))
	r.Delete("/renders/{renderId}", middleware.WrapHandler(log, h.DeleteRender))

	// ---- STATIC ----
	if d.PublicDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(d.PublicDir)))
	}

	return r
}
