// Package logger builds *slog.Logger values with functional options and
// injects request-scoped values from context.Context into every record.
//
// New picks slog.NewTextHandler or slog.NewJSONHandler from the configured
// Format and wraps it with WithContextHandler, which runs the registered
// ContextExtractor callbacks (for example the request id extractor from
// package httpserver) before delegating.
//
// Attribute helpers in attr.go keep key names consistent across packages:
// UploadSet, Filename, Extension, Path, Size, Event, Error and friends.
//
// # Usage
//
//	import "github.com/dmitrymomot/reupload/pkg/logger"
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "reuploadd"),
//		logger.WithLevelName(cfg.LogLevel),
//		logger.WithContextExtractors(httpserver.RequestIDExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "file saved",
//		logger.UploadSet("photos"),
//		logger.Path(rel),
//		logger.Size(n),
//	)
//
// # Configuration
//
//   - WithDevelopment / WithStaging / WithProduction / WithEnvironment: presets.
//   - WithFormat / WithTextFormatter / WithJSONFormatter: output format.
//   - WithLevel / WithLevelName: minimum level.
//   - WithAttr: static attributes.
//   - WithContextExtractors / WithContextValue: attributes from context.
//
// Error and Errors return an empty Attr for nil errors, which slog drops:
//
//	log.Info("configured", logger.Error(err))
package logger
