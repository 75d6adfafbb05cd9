package legacy

import (
	"context"
	"errors"
)

// ErrSessionInvalid reports a credential the legacy backend does not
// recognize, including sessions that expired or were revoked.
var ErrSessionInvalid = errors.New("legacy session invalid")

// ErrUnavailable reports that the legacy backend could not be reached. It is
// distinct from ErrSessionInvalid so callers can fail open or closed on
// infrastructure trouble without treating it as a rejected user.
var ErrUnavailable = errors.New("legacy backend unavailable")

// Validator checks a legacy session credential and returns the user ID it
// belongs to. Implementations must return ErrSessionInvalid for unknown or
// expired sessions and ErrUnavailable for backend failures.
type Validator interface {
	ValidateSession(ctx context.Context, credential string) (string, error)
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(ctx context.Context, credential string) (string, error)

// ValidateSession calls f.
func (f ValidatorFunc) ValidateSession(ctx context.Context, credential string) (string, error) {
	return f(ctx, credential)
}
