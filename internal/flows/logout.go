package flows

import (
	"context"

	"github.com/google/uuid"
)

type LogoutRecordStore interface {
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	DecodeRefreshToken func(string) (uuid.UUID, [32]byte, error)
	RecordStore        LogoutRecordStore
}

// LogoutResult reports what a logout attempt did. Decoded is false when the
// presented token never named a record; that is still success, logout is
// idempotent by contract.
type LogoutResult struct {
	Decoded  bool
	RecordID uuid.UUID
	Err      error
}

// RunLogout revokes the record named by a refresh token. Malformed tokens
// revoke nothing and report success so logout never leaks token validity.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	recordID, _, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return LogoutResult{}
	}

	return LogoutResult{
		Decoded:  true,
		RecordID: recordID,
		Err:      deps.RecordStore.Delete(ctx, recordID),
	}
}

// RunLogoutUser revokes every refresh record belonging to a user.
func RunLogoutUser(ctx context.Context, userID string, deps LogoutDeps) error {
	return deps.RecordStore.DeleteAllForUser(ctx, userID)
}
