package httpserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/dmitrymomot/reupload/pkg/logger"
)

// Proxy headers consulted by ClientIP, most specific first.
var clientIPHeaders = []string{"CF-Connecting-IP", "DO-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

type clientIPKey struct{}

// ClientIP returns the originating address of r: the first parseable
// address among the proxy headers, else the host of RemoteAddr.
// Headers are client-controlled; only trust them behind a proxy that sets them.
func ClientIP(r *http.Request) string {
	for _, h := range clientIPHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for candidate := range strings.SplitSeq(v, ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return parseIP(host)
	}
	return parseIP(r.RemoteAddr)
}

func parseIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}

// ClientIPMiddleware stores ClientIP(r) in the request context.
func ClientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey{}, ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromContext returns the address stored by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// ClientIPExtractor adds client_ip to records logged with a request context.
func ClientIPExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if ip := ClientIPFromContext(ctx); ip != "" {
			return slog.String("client_ip", ip), true
		}
		return slog.Attr{}, false
	}
}
