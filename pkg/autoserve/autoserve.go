package autoserve

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/reupload/pkg/file"
	"github.com/dmitrymomot/reupload/pkg/logger"
	"github.com/dmitrymomot/reupload/pkg/upload"
)

// Option configures the handler.
type Option func(*handler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *handler) {
		if l != nil {
			h.logger = l
		}
	}
}

type handler struct {
	registry *upload.Registry
	logger   *slog.Logger
}

// Handler serves GET and HEAD /{set}/{path...} for sets of reg that are
// self-served. Mount it at reg.ServePrefix(). Everything else, including
// sets with a base URL, unknown sets and paths escaping a destination,
// is 404.
func Handler(reg *upload.Registry, opts ...Option) http.Handler {
	h := &handler{registry: reg, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("autoserve"))

	r := chi.NewRouter()
	r.Get("/{set}/*", h.serve)
	r.Head("/{set}/*", h.serve)
	r.NotFound(http.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
	return r
}

func (h *handler) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	set, ok := h.registry.Lookup(chi.URLParam(r, "set"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if cfg, err := set.Config(); err != nil || !cfg.AutoServe {
		http.NotFound(w, r)
		return
	}

	rel := chi.URLParam(r, "*")
	// chi routes on RawPath when it is set, leaving the wildcard escaped.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(rel)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		rel = unescaped
	}
	if rel == "" {
		http.NotFound(w, r)
		return
	}

	f, err := set.Open(rel)
	if err != nil {
		switch {
		case errors.Is(err, file.ErrInvalidPath):
			h.logger.WarnContext(ctx, "self-serve request escapes destination",
				logger.Event("path_traversal"),
				logger.UploadSet(set.Name()),
				logger.Path(rel),
			)
			http.NotFound(w, r)
		case errors.Is(err, file.ErrFileNotFound), errors.Is(err, file.ErrIsDirectory):
			http.NotFound(w, r)
		default:
			h.logger.ErrorContext(ctx, "open uploaded file", logger.UploadSet(set.Name()), logger.Path(rel), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		h.logger.ErrorContext(ctx, "stat uploaded file", logger.UploadSet(set.Name()), logger.Path(rel), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// Uploaded content never runs in this origin.
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
