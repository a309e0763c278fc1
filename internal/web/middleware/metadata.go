package middleware

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/maintrack/internal/core"
)

// UserIDHeader names the acting user. Authentication of that claim is left
// to whatever sits in front of the API.
const UserIDHeader = "X-User-ID"

// RequestMetadata stores the caller's IP, user agent and user id in the
// request context so the activity log can record who made a change.
// It must run after TrustedRealIP.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithIPAddress(r.Context(), clientIP(r.RemoteAddr))
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		if user := strings.TrimSpace(r.Header.Get(UserIDHeader)); user != "" {
			ctx = core.ContextWithUserID(ctx, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(addr string) string {
	if ip, ok := remoteAddr(addr); ok {
		return ip.String()
	}
	return addr
}
