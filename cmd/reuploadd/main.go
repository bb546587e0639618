// Command reuploadd is an HTTP service that stores uploads into the upload
// sets described by a YAML manifest, configured from the environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/reupload/pkg/autoserve"
	"github.com/dmitrymomot/reupload/pkg/config"
	"github.com/dmitrymomot/reupload/pkg/httpserver"
	"github.com/dmitrymomot/reupload/pkg/logger"
	"github.com/dmitrymomot/reupload/pkg/upload"
)

type appConfig struct {
	Service  string `env:"APP_NAME" envDefault:"reuploadd"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`

	Manifest       string `env:"UPLOADS_MANIFEST" envDefault:"uploads.yaml"`
	MaxRequestSize int64  `env:"UPLOADS_MAX_REQUEST_SIZE" envDefault:"67108864"`
	MaxMemory      int64  `env:"UPLOADS_MAX_MEMORY" envDefault:"8388608"`

	HTTP httpserver.Config
}

func main() {
	if err := config.LoadEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, err)
	}

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(httpserver.RequestIDExtractor(), httpserver.ClientIPExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("reuploadd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	sets, err := loadSets(cfg.Manifest, log)
	if err != nil {
		return err
	}
	reg, err := upload.Configure(config.FromEnviron(), sets...)
	if err != nil {
		return err
	}

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, newRouter(reg, cfg, log))
}

// loadSets reads the manifest. Without one the service has a single "files"
// set with the default extension policy.
func loadSets(path string, log *slog.Logger) ([]*upload.Set, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("no upload manifest, using a single default set", logger.Path(path))
		s, err := upload.New("files", upload.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return []*upload.Set{s}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	return upload.ParseManifest(f, upload.WithLogger(log))
}

func newRouter(reg *upload.Registry, cfg appConfig, log *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(httpserver.RequestID)
	r.Use(httpserver.ClientIPMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	checks := make([]httpserver.Check, 0, len(reg.Sets()))
	for _, s := range reg.Sets() {
		checks = append(checks, s.Ready)
	}
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, checks...))

	a := &api{
		registry:       reg,
		logger:         log,
		maxRequestSize: cfg.MaxRequestSize,
		maxMemory:      cfg.MaxMemory,
	}
	r.Route("/sets", a.routes)

	if reg.AutoServe() {
		r.Mount(reg.ServePrefix(), autoserve.Handler(reg, autoserve.WithLogger(log)))
	}
	return r
}
