package middleware

import (
	"net/http"

	"github.com/JonMunkholm/ems/internal/core"
)

// ClientInfo stores the caller address and user agent in the request
// context for audit entries. Run it after TrustedRealIP.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if addr, ok := ClientAddr(r.RemoteAddr); ok {
			ip = addr.String()
		}
		ctx := core.ContextWithClient(r.Context(), core.ClientInfo{
			IPAddress: ip,
			UserAgent: r.UserAgent(),
			Actor:     "anonymous",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
