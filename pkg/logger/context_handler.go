package logger

import (
	"context"
	"log/slog"
	"slices"
)

// ContextExtractor derives an attribute from a record's context. It reports
// false when the context carries nothing to log.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// contextHandler appends extractor attributes to every record it handles.
// Extractors run after Enabled, so filtered records cost nothing.
type contextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

// WithContextHandler wraps h so that every record logged with a context
// gets the attributes of extractors. Nil extractors are skipped; with none
// left, h is returned unchanged.
func WithContextHandler(h slog.Handler, extractors ...ContextExtractor) slog.Handler {
	extractors = slices.DeleteFunc(slices.Clone(extractors), func(ex ContextExtractor) bool { return ex == nil })
	if len(extractors) == 0 {
		return h
	}
	return &contextHandler{Handler: h, extractors: extractors}
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if ctx != nil {
		for _, ex := range h.extractors {
			if attr, ok := ex(ctx); ok {
				rec.AddAttrs(attr)
			}
		}
	}
	return h.Handler.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}
