package middleware

import (
	"net/http"
	"strings"

	"starchart/internal/auth"
)

// RequireParentMode verifies the bearer token minted by the PIN endpoint
// and stamps the parent identity on the request context. Approval and
// settings routes sit behind this.
func RequireParentMode(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "parent mode required", http.StatusUnauthorized)
				return
			}

			profileID, err := issuer.Verify(token)
			if err != nil {
				http.Error(w, "parent mode required", http.StatusUnauthorized)
				return
			}

			ctx := auth.WithParentMode(r.Context(), profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalParentMode populates the context when a valid token is present
// but lets the request through either way. Handlers that gate on existing
// state (like changing a PIN that's already set) use this.
func OptionalParentMode(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if profileID, err := issuer.Verify(token); err == nil {
					r = r.WithContext(auth.WithParentMode(r.Context(), profileID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
