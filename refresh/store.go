package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record exists for the given ID.
var ErrNotFound = errors.New("refresh record not found")

// ErrExpired is returned when the record exists but is past its expiry.
// Expired records are deleted as a side effect of the lookup.
var ErrExpired = errors.New("refresh record expired")

// ErrHashMismatch is returned when the presented secret hash does not match
// the stored hash. The record is revoked as a side effect: a mismatch after
// rotation means the old secret was replayed.
var ErrHashMismatch = errors.New("refresh hash mismatch")

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("refresh store unavailable")

// ErrCorrupt is returned when a stored blob cannot be decoded.
var ErrCorrupt = errors.New("refresh record corrupt")

// Store persists refresh-token records. Implementations must be safe for
// concurrent use and must guarantee that Rotate admits at most one winner
// per stored hash.
type Store interface {
	// Save persists a new record with the given time-to-live.
	Save(ctx context.Context, rec *Record, ttl time.Duration) error

	// Get returns the record or ErrNotFound / ErrExpired.
	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// Rotate atomically replaces the stored hash with nextHash if and only if
	// the stored hash equals providedHash and the record is unexpired. The
	// returned record reflects the rotated state. Failure modes: ErrNotFound,
	// ErrExpired, ErrHashMismatch (record revoked), ErrUnavailable.
	Rotate(ctx context.Context, id uuid.UUID, providedHash, nextHash [32]byte) (*Record, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteAllForUser removes every record belonging to a user.
	DeleteAllForUser(ctx context.Context, userID string) error

	// ActiveCount reports how many records are tracked for a user.
	ActiveCount(ctx context.Context, userID string) (int, error)
}
