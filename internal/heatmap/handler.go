package heatmap

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/model"
)

// Builder computes snapshots; *Service satisfies it.
type Builder interface {
	Build(ctx context.Context, req Request) (*Snapshot, error)
}

// HandlerConfig configures the HTTP API.
type HandlerConfig struct {
	AllowedOrigins []string
	// DefaultBedrooms applies when a request has no bedrooms parameter; nil
	// means every listing.
	DefaultBedrooms *int
	DefaultMode     colorscale.Mode
	// BuildTimeout bounds one shared build; zero means no bound.
	BuildTimeout time.Duration
}

// Handler serves heat maps and legends to the renderer.
type Handler struct {
	svc   Builder
	cache *Cache
	cfg   HandlerConfig
	group singleflight.Group
}

// NewHandler creates the API handler. cache may be nil.
func NewHandler(svc Builder, cache *Cache, cfg HandlerConfig) *Handler {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = colorscale.ModeDiscrete
	}
	return &Handler{svc: svc, cache: cache, cfg: cfg}
}

// Routes mounts the API on a chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Cache"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/heatmap", h.serveSnapshot("heatmap", func(s *Snapshot) any { return s.Collection() }))
		r.Get("/legend", h.serveSnapshot("legend", func(s *Snapshot) any { return s.Legend() }))
		r.Get("/cache/stats", h.cacheStats)
		r.Delete("/cache", h.purgeCache)
	})
	return r
}

func (h *Handler) serveSnapshot(kind string, render func(*Snapshot) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := h.parseRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		key := CacheKey(kind, req.Filter, req.Mode)
		if h.cache != nil {
			if data, ok := h.cache.Get(key); ok {
				writeRaw(w, data, "hit")
				return
			}
		}

		v, err, _ := h.group.Do(key, func() (any, error) {
			// Callers waiting on the same key share this build, so it must
			// outlive the client that started it.
			ctx := context.WithoutCancel(r.Context())
			if h.cfg.BuildTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, h.cfg.BuildTimeout)
				defer cancel()
			}
			snap, err := h.svc.Build(ctx, req)
			if err != nil {
				return nil, err
			}
			data, err := json.Marshal(render(snap))
			if err != nil {
				return nil, eris.Wrapf(err, "heatmap: encode %s", kind)
			}
			if h.cache != nil {
				h.cache.Put(key, data)
			}
			return data, nil
		})
		if err != nil {
			zap.L().Error("heatmap: build failed",
				zap.String("kind", kind),
				zap.String("key", key),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "heat map unavailable"})
			return
		}
		writeRaw(w, v.([]byte), "miss")
	}
}

func (h *Handler) parseRequest(r *http.Request) (Request, error) {
	q := r.URL.Query()
	req := Request{Filter: model.Filter{Bedrooms: h.cfg.DefaultBedrooms}, Mode: h.cfg.DefaultMode}

	switch b := q.Get("bedrooms"); b {
	case "":
	case "all":
		req.Filter.Bedrooms = nil
	default:
		n, err := strconv.Atoi(b)
		if err != nil || n < 0 {
			return Request{}, eris.Errorf("invalid bedrooms %q", b)
		}
		req.Filter.Bedrooms = model.Int(n)
	}

	if s := q.Get("scale"); s != "" {
		mode, err := colorscale.ParseMode(s)
		if err != nil {
			return Request{}, eris.Errorf("invalid scale %q", s)
		}
		req.Mode = mode
	}
	return req, nil
}

func (h *Handler) cacheStats(w http.ResponseWriter, _ *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) purgeCache(w http.ResponseWriter, _ *http.Request) {
	removed := 0
	if h.cache != nil {
		removed = h.cache.Invalidate("")
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("heatmap: write response", zap.Error(err))
	}
}

func writeRaw(w http.ResponseWriter, data []byte, cache string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
