package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Deployment environment names recognized by WithEnvironment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Format represents logger output format.
type Format string

const (
	// FormatJSON outputs one JSON object per record.
	FormatJSON Format = "json"
	// FormatText outputs key=value records.
	FormatText Format = "text"
)

// Option configures logger creation.
type Option func(*config)

type config struct {
	level          slog.Level
	format         Format
	output         io.Writer
	attrs          []slog.Attr
	handlerOptions *slog.HandlerOptions
	extractors     []ContextExtractor
}

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithLevelName sets the level from its name ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged.
func WithLevelName(name string) Option {
	return func(c *config) {
		if l, err := ParseLevel(name); err == nil {
			c.level = l
		}
	}
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return l, nil
}

// WithFormat sets output format. It panics on unknown formats, so a bad
// setting stops the service at startup.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		default:
			panic(fmt.Errorf("invalid log format %q: must be %q or %q", f, FormatJSON, FormatText))
		}
	}
}

func WithTextFormatter() Option {
	return func(c *config) { c.format = FormatText }
}

func WithJSONFormatter() Option {
	return func(c *config) { c.format = FormatJSON }
}

// WithOutput sets the destination writer. Nil is ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithHandlerOptions replaces the slog handler options; the level set by
// other options is then ignored. Nil is ignored.
func WithHandlerOptions(opts *slog.HandlerOptions) Option {
	return func(c *config) {
		if opts != nil {
			c.handlerOptions = opts
		}
	}
}

// WithAttr adds static attributes to every log record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithContextExtractors registers functions that add attributes from the
// record's context, such as the request id.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		for _, ex := range extractors {
			if ex != nil {
				c.extractors = append(c.extractors, ex)
			}
		}
	}
}

// WithContextValue logs ctx.Value(key) under name whenever it is present.
func WithContextValue(name string, key any) Option {
	return func(c *config) {
		if name == "" || key == nil {
			return
		}
		c.extractors = append(c.extractors, func(ctx context.Context) (slog.Attr, bool) {
			if v := ctx.Value(key); v != nil {
				return slog.Any(name, v), true
			}
			return slog.Attr{}, false
		})
	}
}

// WithDevelopment selects debug level and text output.
func WithDevelopment(service string) Option {
	return preset(service, EnvDevelopment, slog.LevelDebug, FormatText)
}

// WithStaging selects info level and JSON output.
func WithStaging(service string) Option {
	return preset(service, EnvStaging, slog.LevelInfo, FormatJSON)
}

// WithProduction selects info level and JSON output.
func WithProduction(service string) Option {
	return preset(service, EnvProduction, slog.LevelInfo, FormatJSON)
}

// WithEnvironment picks a preset by environment name. Unknown names get the
// development preset.
func WithEnvironment(env string, service string) Option {
	return func(c *config) {
		switch strings.ToLower(strings.TrimSpace(env)) {
		case EnvProduction, "prod":
			WithProduction(service)(c)
		case EnvStaging, "stage":
			WithStaging(service)(c)
		default:
			WithDevelopment(service)(c)
		}
	}
}

func preset(service, env string, level slog.Level, format Format) Option {
	return func(c *config) {
		if service == "" {
			return
		}
		c.level = level
		c.format = format
		c.attrs = append(c.attrs,
			slog.String("service", service),
			slog.String("env", env),
		)
	}
}

// SetAsDefault installs l as the slog default.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// New creates a slog.Logger: JSON to stdout at info level unless options
// say otherwise. Context extractors run on every record that is handled.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hopts := cfg.handlerOptions
	if hopts == nil {
		hopts = &slog.HandlerOptions{Level: cfg.level}
	}

	var h slog.Handler
	switch cfg.format {
	case FormatText:
		h = slog.NewTextHandler(cfg.output, hopts)
	default:
		h = slog.NewJSONHandler(cfg.output, hopts)
	}
	if len(cfg.attrs) > 0 {
		h = h.WithAttrs(cfg.attrs)
	}
	return slog.New(WithContextHandler(h, cfg.extractors...))
}
