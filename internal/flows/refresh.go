package flows

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/authshift/authshift/refresh"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMalformed
	RefreshFailureRateLimited
	RefreshFailureReuse
	RefreshFailureInvalid
	RefreshFailureUnavailable
	RefreshFailureInternal
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure          RefreshFailureKind
	Err              error
	RecordID         string
	UserID           string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  int64
	RefreshExpiresAt int64
}

type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, recordID, ip string) error
	Reset(ctx context.Context, recordID string) error
}

type RefreshRecordStore interface {
	Rotate(ctx context.Context, id uuid.UUID, providedHash, nextHash [32]byte) (*refresh.Record, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ClientIPFromContext func(context.Context) string
	DecodeRefreshToken  func(string) (uuid.UUID, [32]byte, error)
	NewRefreshSecret    func() ([32]byte, error)
	HashRefreshSecret   func([32]byte) [32]byte
	EncodeRefreshToken  func(uuid.UUID, [32]byte) string
	IssueAccessToken    func(userID string) (string, error)
	AccessLifetime      func() time.Duration
	Now                 func() time.Time
	RateLimiter         RefreshRateLimiter
	RecordStore         RefreshRecordStore
	RateLimited         error
	StoreNotFound       error
	StoreExpired        error
	StoreMismatch       error
	StoreUnavailable    error
}

// RunRefresh executes refresh rotation and issuance without root package
// dependencies. The store's compare-and-swap is the only synchronization:
// whatever this function observes, at most one concurrent caller per stored
// secret ever reaches the success path.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	recordID, providedSecret, err := deps.DecodeRefreshToken(refreshToken)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureMalformed,
			Err:     err,
		}
	}

	if deps.RateLimiter != nil {
		ip := ""
		if deps.ClientIPFromContext != nil {
			ip = deps.ClientIPFromContext(ctx)
		}
		if err := deps.RateLimiter.CheckRefresh(ctx, recordID.String(), ip); err != nil {
			failure := RefreshFailureUnavailable
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				failure = RefreshFailureRateLimited
			}
			return RefreshResult{
				Failure:  failure,
				Err:      err,
				RecordID: recordID.String(),
			}
		}
	}

	nextSecret, err := deps.NewRefreshSecret()
	if err != nil {
		return RefreshResult{
			Failure:  RefreshFailureInternal,
			Err:      err,
			RecordID: recordID.String(),
		}
	}

	rec, err := deps.RecordStore.Rotate(
		ctx,
		recordID,
		deps.HashRefreshSecret(providedSecret),
		deps.HashRefreshSecret(nextSecret),
	)
	if err != nil {
		switch {
		case deps.StoreMismatch != nil && errors.Is(err, deps.StoreMismatch):
			return RefreshResult{
				Failure:  RefreshFailureReuse,
				Err:      err,
				RecordID: recordID.String(),
			}
		case deps.StoreNotFound != nil && errors.Is(err, deps.StoreNotFound),
			deps.StoreExpired != nil && errors.Is(err, deps.StoreExpired):
			return RefreshResult{
				Failure:  RefreshFailureInvalid,
				Err:      err,
				RecordID: recordID.String(),
			}
		case deps.StoreUnavailable != nil && errors.Is(err, deps.StoreUnavailable):
			return RefreshResult{
				Failure:  RefreshFailureUnavailable,
				Err:      err,
				RecordID: recordID.String(),
			}
		default:
			return RefreshResult{
				Failure:  RefreshFailureInternal,
				Err:      err,
				RecordID: recordID.String(),
			}
		}
	}

	access, err := deps.IssueAccessToken(rec.UserID)
	if err != nil {
		return RefreshResult{
			Failure:  RefreshFailureInternal,
			Err:      err,
			RecordID: recordID.String(),
			UserID:   rec.UserID,
		}
	}

	if deps.RateLimiter != nil {
		// Best effort: a failed reset only means the budget decays on its own.
		_ = deps.RateLimiter.Reset(ctx, recordID.String())
	}

	return RefreshResult{
		Failure:          RefreshFailureNone,
		RecordID:         recordID.String(),
		UserID:           rec.UserID,
		AccessToken:      access,
		RefreshToken:     deps.EncodeRefreshToken(recordID, nextSecret),
		AccessExpiresAt:  deps.Now().Add(deps.AccessLifetime()).Unix(),
		RefreshExpiresAt: rec.ExpiresAt,
	}
}
