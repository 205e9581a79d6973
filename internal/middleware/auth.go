package middleware

import (
	"context"
	"net/http"
	"strings"

	"sally/internal/models"
)

// Identity is what the fronting auth proxy asserts about the caller.
// Session verification itself lives with the identity provider; this service
// only consumes the result.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

const identityKey ctxKey = "identity"

// RequireIdentity reads the proxy-asserted identity headers and rejects the
// request with 401 when no user id is present. When proxySecret is non-empty
// the proxy must also present it as a bearer token, so the headers cannot be
// spoofed by direct callers.
func RequireIdentity(proxySecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proxySecret != "" {
				const p = "Bearer "
				auth := r.Header.Get("Authorization")
				if !strings.HasPrefix(auth, p) || strings.TrimPrefix(auth, p) != proxySecret {
					models.WriteError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
			}
			id := strings.TrimSpace(r.Header.Get("X-Auth-User-Id"))
			if id == "" {
				models.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ident := Identity{
				UserID:    id,
				Email:     r.Header.Get("X-Auth-User-Email"),
				FirstName: r.Header.Get("X-Auth-User-First-Name"),
				LastName:  r.Header.Get("X-Auth-User-Last-Name"),
			}
			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFrom(r *http.Request) (Identity, bool) {
	v, ok := r.Context().Value(identityKey).(Identity)
	return v, ok
}
