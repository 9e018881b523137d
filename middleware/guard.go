package middleware

import (
	"context"
	"net/http"
	"strings"

	digivahan "github.com/Preet-Sharma-7061/Digivahan-backend-sub000"
)

type authResultContextKey struct{}

type adminResultContextKey struct{}

// AuthResultFromContext returns the identity attached by Guard.
func AuthResultFromContext(ctx context.Context) (*digivahan.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*digivahan.AuthResult)
	return res, ok
}

// AdminResultFromContext returns the identity attached by AdminGuard.
func AdminResultFromContext(ctx context.Context) (*digivahan.AdminResult, bool) {
	res, ok := ctx.Value(adminResultContextKey{}).(*digivahan.AdminResult)
	return res, ok
}

// Guard wraps a handler with user bearer-token enforcement.
func Guard(engine *digivahan.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminGuard wraps a handler with admin bearer-token enforcement. Admin
// tokens come from the admin authority only; user tokens are rejected.
func AdminGuard(engine *digivahan.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.AdminAuthenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), adminResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
