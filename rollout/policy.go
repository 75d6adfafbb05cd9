package rollout

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// bucketCount fixes the cohort space. Buckets are 0..99 so a percent value
// maps directly onto the number of included buckets.
const bucketCount = 100

// Policy assigns users to stable rollout buckets and decides whether a user
// is inside the token-auth cohort. Assignment depends only on the salt and
// the user ID, so decisions survive restarts and agree across replicas.
//
// Raising the percent only ever adds users: a user in bucket b is included
// for every percent greater than b. Lowering it evicts the highest buckets
// first.
type Policy struct {
	enabled bool
	percent int
	salt    string
}

// New builds a Policy. The percent must lie in [0, 100]; 0 admits nobody and
// 100 admits everyone. The salt shuffles bucket assignment so separate
// rollouts do not share cohorts.
func New(enabled bool, percent int, salt string) (*Policy, error) {
	if percent < 0 || percent > bucketCount {
		return nil, fmt.Errorf("rollout percent %d out of range [0,%d]", percent, bucketCount)
	}
	return &Policy{
		enabled: enabled,
		percent: percent,
		salt:    salt,
	}, nil
}

// Enabled reports whether the rollout gate is on at all.
func (p *Policy) Enabled() bool {
	return p.enabled
}

// Percent returns the configured cohort size.
func (p *Policy) Percent() int {
	return p.percent
}

// Bucket returns the user's stable bucket in [0, 100). It is computed even
// when the policy is disabled so operators can inspect prospective cohorts.
func (p *Policy) Bucket(userID string) int {
	return int(xxhash.Sum64String(p.salt+userID) % bucketCount)
}

// Included reports whether the user is in the active cohort. Disabled
// policies and empty user IDs are always excluded.
func (p *Policy) Included(userID string) bool {
	if !p.enabled || userID == "" {
		return false
	}
	return p.Bucket(userID) < p.percent
}
