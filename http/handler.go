package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sagarc03/staticasset"
)

// AllowedMethods is the Allow header value of every asset route.
const AllowedMethods = "GET, HEAD, OPTIONS"

// Source resolves request paths to assets. staticasset.Table and
// registry.Registry both implement it.
type Source interface {
	Get(ctx context.Context, path string) (staticasset.Asset, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Mode staticasset.ServerMode
	// Prefix mounts the assets below a URL path such as "/static".
	Prefix       string
	CacheControl string
	CacheBuster  staticasset.CacheBuster
	CORS         CORSConfig
	Logger       *slog.Logger
}

// Handler serves assets with conditional and range request support.
type Handler struct {
	config  HandlerConfig
	source  Source
	builder staticasset.Builder
	logger  *slog.Logger
}

// NewHandler creates a new Handler with the given configuration and source.
func NewHandler(config *HandlerConfig, source Source) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:  *config,
		source:  source,
		builder: staticasset.Builder{CacheControl: config.CacheControl},
		logger:  logger,
	}
}

// Router returns an http.Handler serving every path below the prefix.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.logger))

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(h.handleNotFound)
	r.MethodNotAllowed(h.handleMethodNotAllowed)

	routes := func(r chi.Router) {
		r.Use(PathValidationMiddleware)
		r.Get("/*", h.handleAsset)
		r.Head("/*", h.handleAsset)
		r.Options("/*", h.handleAsset)
		r.MethodNotAllowed(h.handleMethodNotAllowed)
	}

	if prefix := h.prefix(); prefix != "" {
		r.Route(prefix, routes)
	} else {
		r.Group(routes)
	}

	return r
}

func (h *Handler) prefix() string {
	p := strings.Trim(h.config.Prefix, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// resolved is the asset chosen for a request. exact is false when the asset
// was reached through an index or spa fallback.
type resolved struct {
	key   string
	asset staticasset.Asset
	exact bool
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request) {
	key, err := requestKey(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	res, err := h.resolve(r.Context(), key)
	if err != nil {
		if errors.Is(err, staticasset.ErrNotFound) {
			h.handleNotFound(w, r)
		} else {
			HandleError(w, err)
		}
		return
	}

	builder := h.builder
	if res.exact && h.config.CacheBuster.Enabled() {
		location, current := h.config.CacheBuster.Check(r.URL.Path, r.URL.RawQuery, h.prefix()+"/"+res.key, res.asset.ETag())
		if !current {
			w.Header().Set("Location", location)
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
		builder.CacheControl = staticasset.ImmutableCacheControl
	}

	if r.Method == http.MethodOptions {
		resp := builder.Build(staticasset.Decision{Kind: staticasset.DecisionFull}, res.asset)
		resp.ApplyHeader(w.Header())
		w.Header().Del("Content-Length")
		w.Header().Set("Allow", AllowedMethods)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := builder.Respond(staticasset.RequestFromHTTP(r), res.asset)
	resp.ApplyHeader(w.Header())
	w.WriteHeader(resp.Status)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := resp.Body.WriteTo(w); err != nil {
		h.logger.Debug("failed to write response body", "path", res.key, "err", err)
	}
}

// requestKey returns the asset key of the request: the wildcard part of the
// route without surrounding slashes.
func requestKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			return "", err
		}
		key = unescaped
	}
	return strings.Trim(key, "/"), nil
}

func (h *Handler) resolve(ctx context.Context, key string) (resolved, error) {
	if key == "" {
		if h.config.Mode == staticasset.ModeStore {
			return resolved{}, staticasset.ErrNotFound
		}
		return h.get(ctx, "index.html", false)
	}

	res, err := h.get(ctx, key, true)
	if !errors.Is(err, staticasset.ErrNotFound) {
		return res, err
	}

	if h.config.CacheBuster.Mode == staticasset.BustSuffix {
		if base, _, ok := h.config.CacheBuster.SplitSuffix(key); ok {
			res, err = h.get(ctx, base, true)
			if !errors.Is(err, staticasset.ErrNotFound) {
				return res, err
			}
		}
	}

	switch h.config.Mode {
	case staticasset.ModeStatic:
		return h.get(ctx, path.Join(key, "index.html"), false)
	case staticasset.ModeSPA:
		return h.get(ctx, "index.html", false)
	default:
		return resolved{}, err
	}
}

func (h *Handler) get(ctx context.Context, key string, exact bool) (resolved, error) {
	a, err := h.source.Get(ctx, key)
	if err != nil {
		return resolved{}, err
	}
	return resolved{key: key, asset: a, exact: exact}, nil
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if h.config.Mode == staticasset.ModeStore {
		WriteError(w, http.StatusNotFound, "not_found", "Asset not found")
		return
	}
	writeDefaultNotFound(w, r)
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	HandleError(w, ErrMethodNotAllowed)
}
