package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/authshift/authshift"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal injected by [Guard] for the
// current request.
func PrincipalFromContext(ctx context.Context) (authshift.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(authshift.Principal)
	return p, ok
}

// Guard returns middleware that authenticates every request through
// engine.ResolveWithMode and injects the resolved principal into the request
// context. Rejections carry a JSON body with a stable error_code so clients
// know whether to refresh, re-login, or retry.
func Guard(engine *authshift.Engine, routeMode authshift.Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			credential, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			ctx := requestContext(r)
			principal, err := engine.ResolveWithMode(ctx, credential, routeMode)
			if err != nil {
				status, code := rejection(err)
				writeError(w, status, code)
				return
			}

			ctx = context.WithValue(ctx, principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	ctx := authshift.WithClientIP(r.Context(), host)
	return authshift.WithUserAgent(ctx, r.UserAgent())
}

func rejection(err error) (int, string) {
	switch {
	case errors.Is(err, authshift.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, authshift.ErrTokenInvalid):
		return http.StatusUnauthorized, "token_invalid"
	case errors.Is(err, authshift.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "backend_unavailable"
	default:
		return http.StatusUnauthorized, "unauthenticated"
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error_code": code})
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
