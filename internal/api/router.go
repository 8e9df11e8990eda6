// Package api exposes the market-cap screener over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/funscreener/internal/config"
	"github.com/sells-group/funscreener/internal/marketcap"
)

// HealthFunc reports store reachability.
type HealthFunc func(ctx context.Context) error

// Options configures the router. An empty APIKeyHeader falls back to
// config.DefaultAPIKeyHeader.
type Options struct {
	APIKey         string
	APIKeyHeader   string
	AllowedOrigins []string
}

type handler struct {
	svc    marketcap.Screener
	health HealthFunc
	log    *zap.Logger
}

// NewRouter builds the HTTP handler. Every route sits behind the API key.
func NewRouter(svc marketcap.Screener, health HealthFunc, opts Options) http.Handler {
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = config.DefaultAPIKeyHeader
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handler{
		svc:    svc,
		health: health,
		log:    zap.L().With(zap.String("component", "api")),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(apiKey(opts.APIKeyHeader, opts.APIKey))

	r.Get("/", h.root)
	r.Get("/health", h.healthCheck)
	r.Get("/latest-market-cap/{country}/{category}", h.latest)
	r.Get("/historical-market-cap/{country}/{category}/{year}/{month}", h.historical)

	return r
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to TheFunScreener API"})
}

func (h *handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	if err := h.health(r.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) latest(w http.ResponseWriter, r *http.Request) {
	topN, err := parseTop(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entries, err := h.svc.GetLatestMarketCap(r.Context(),
		chi.URLParam(r, "country"), chi.URLParam(r, "category"), topN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) historical(w http.ResponseWriter, r *http.Request) {
	year, err := pathInt(r, "year")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	month, err := pathInt(r, "month")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	topN, err := parseTop(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entries, err := h.svc.GetHistoricalMarketCap(r.Context(),
		chi.URLParam(r, "country"), chi.URLParam(r, "category"), year, month, topN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// apiKey rejects requests whose header does not carry the shared secret.
// An empty configured key rejects everything.
func apiKey(header, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid API Key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
