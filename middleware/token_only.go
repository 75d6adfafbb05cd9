package middleware

import (
	"net/http"

	"github.com/authshift/authshift"
)

// RequireTokenOnly returns middleware that overrides the resolution mode to
// [authshift.ModeTokenOnly] for the wrapped handler, skipping the legacy
// session store entirely.
func RequireTokenOnly(engine *authshift.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authshift.ModeTokenOnly)
}
