package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/logging"
)

// requestContext hands the request-scoped logger and the caller's address to
// the service, which records the address as the exportedBy metadata field.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	ctx = core.ContextWithLogger(ctx, logging.FromContext(ctx))
	ctx = core.ContextWithOrigin(ctx, clientIP(r))
	return ctx
}

// clientIP returns the host part of RemoteAddr, already rewritten by
// TrustedRealIP for requests from trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
