package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DBTX is the subset of database/sql used by the Postgres store. Both *sql.DB
// and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements [Store] over a refresh_tokens table (see the
// embedded migrations). Rotation relies on a single conditional UPDATE, so no
// explicit transaction is needed for correctness; the follow-up SELECT only
// disambiguates the failure reason.
//
// Timestamps are stored as unix seconds, matching the Record fields and the
// Redis blob encoding.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore constructs a store bound to the given DBTX.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save inserts a new record. The ttl argument is accepted for interface
// symmetry with the Redis store; expiry is driven by rec.ExpiresAt.
func (s *PostgresStore) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("non-positive record ttl")
	}
	if rec.UserID == "" {
		return errors.New("empty userID")
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, ip_address, user_agent, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.TokenHash[:], rec.IPAddress, rec.UserAgent,
		rec.CreatedAt, rec.UpdatedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the record or ErrNotFound / ErrExpired. Expired rows are
// deleted as a side effect.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := `
		SELECT user_id, token_hash, ip_address, user_agent, created_at, updated_at, expires_at
		FROM refresh_tokens
		WHERE id = $1
	`

	rec := &Record{ID: id}
	var hash []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.UserID, &hash, &rec.IPAddress, &rec.UserAgent,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(hash) != len(rec.TokenHash) {
		return nil, fmt.Errorf("%w: token hash length %d", ErrCorrupt, len(hash))
	}
	copy(rec.TokenHash[:], hash)

	if rec.Expired(time.Now().Unix()) {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	return rec, nil
}

// Rotate performs the compare-and-swap. The conditional UPDATE is the
// atomicity boundary: at most one caller per stored hash sees a row.
func (s *PostgresStore) Rotate(ctx context.Context, id uuid.UUID, providedHash, nextHash [32]byte) (*Record, error) {
	now := time.Now().Unix()

	query := `
		UPDATE refresh_tokens
		SET token_hash = $3, updated_at = $4
		WHERE id = $1 AND token_hash = $2 AND expires_at > $4
		RETURNING user_id, ip_address, user_agent, created_at, expires_at
	`

	rec := &Record{ID: id, TokenHash: nextHash, UpdatedAt: now}
	err := s.db.QueryRowContext(ctx, query, id, providedHash[:], nextHash[:], now).Scan(
		&rec.UserID, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil, s.classifyRotateMiss(ctx, id, now)
}

// classifyRotateMiss inspects why the conditional UPDATE matched nothing.
// Racing writers may shift the answer between statements; any collapse here
// still yields a rejection, never a spurious success.
func (s *PostgresStore) classifyRotateMiss(ctx context.Context, id uuid.UUID, nowUnix int64) error {
	var (
		hash      []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, expires_at FROM refresh_tokens WHERE id = $1`,
		id,
	).Scan(&hash, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if expiresAt <= nowUnix {
		if delErr := s.Delete(ctx, id); delErr != nil {
			return delErr
		}
		return ErrExpired
	}

	// Row exists and is live, so the hash condition failed: the presented
	// secret was already rotated out. Revoke the record.
	if delErr := s.Delete(ctx, id); delErr != nil {
		return delErr
	}
	return ErrHashMismatch
}

// Delete removes a record by ID. Missing rows are a no-op.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every record belonging to a user.
func (s *PostgresStore) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ActiveCount reports unexpired records for a user.
func (s *PostgresStore) ActiveCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refresh_tokens WHERE user_id = $1 AND expires_at > $2`,
		userID, time.Now().Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// Ping reports round-trip health of the underlying database.
func (s *PostgresStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

// DeleteExpired sweeps rows whose expiry has passed and reports how many were
// removed. Meant for a periodic job; Redis-backed deployments need no sweep.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return affected, nil
}
