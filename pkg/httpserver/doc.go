// Package httpserver runs an http.Server with graceful shutdown and carries
// the small pieces every handler tree needs: request ids and health probes.
//
// Run blocks until its context is cancelled, SIGINT or SIGTERM arrives, or
// Shutdown is called, then drains connections within the shutdown timeout.
// Start hooks run after the listener is open, so Addr reports the real
// address even for ":0".
//
//	r := chi.NewRouter()
//	r.Use(httpserver.RequestID)
//	r.Get("/health/live", httpserver.HealthCheckHandler(log))
//	r.Get("/health/ready", httpserver.HealthCheckHandler(log, photos.Ready))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Pass RequestIDExtractor to logger.WithContextExtractors to stamp request_id
// on every record logged with a request context.
//
// Listen failures wrap ErrStart; shutdown failures wrap ErrShutdown.
package httpserver
