package middleware

import (
	"net/http"

	"github.com/authshift/authshift"
)

// RequireLegacyOnly returns middleware that overrides the resolution mode to
// [authshift.ModeLegacyOnly] for the wrapped handler. Useful for routes that
// must keep working for cohorts still outside the token rollout.
func RequireLegacyOnly(engine *authshift.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authshift.ModeLegacyOnly)
}
