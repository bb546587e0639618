// Package autoserve exposes self-served upload sets over HTTP.
//
// A set is self-served when it has no base URL and UPLOADS_AUTOSERVE is on;
// its Set.URL then points at <prefix>/<set>/<path>. Mount the handler there:
//
//	if reg.AutoServe() {
//		r.Mount(reg.ServePrefix(), autoserve.Handler(reg, autoserve.WithLogger(log)))
//	}
//
// Files are opened through the set's storage root, so symlinks leading out
// of a destination are refused. Responses carry nosniff and a sandboxing
// Content-Security-Policy.
package autoserve
