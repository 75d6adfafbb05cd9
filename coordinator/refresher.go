package coordinator

import "context"

// TokenPair is the client-side view of an issued token pair. Expiry fields
// are Unix seconds as reported by the server.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  int64
	RefreshExpiresAt int64
}

// Refresher exchanges the current refresh token for a fresh pair. An
// implementation must return an [AuthError] for rejections that should end
// the session and a plain error for transport problems worth retrying.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// RefresherFunc adapts a function to the [Refresher] interface.
type RefresherFunc func(ctx context.Context, refreshToken string) (TokenPair, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	return f(ctx, refreshToken)
}
