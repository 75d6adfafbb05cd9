package internaldefs

import (
	"github.com/authshift/authshift"
)

// CounterDef defines a public type used by authshift APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authshift.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authshift APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authshift.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: authshift.MetricResolveToken, Name: "authshift_resolve_token_total", Help: "Requests resolved on the token path."},
	{ID: authshift.MetricResolveLegacy, Name: "authshift_resolve_legacy_total", Help: "Requests resolved on the legacy path, including token fallbacks."},
	{ID: authshift.MetricResolveExpired, Name: "authshift_resolve_expired_total", Help: "Resolutions rejected because the access token expired."},
	{ID: authshift.MetricResolveDenied, Name: "authshift_resolve_denied_total", Help: "Resolutions rejected as unauthenticated."},
	{ID: authshift.MetricIssueSuccess, Name: "authshift_issue_success_total", Help: "Issued access/refresh pairs."},
	{ID: authshift.MetricIssueFailure, Name: "authshift_issue_failure_total", Help: "Failed issue operations."},
	{ID: authshift.MetricRefreshSuccess, Name: "authshift_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authshift.MetricRefreshFailure, Name: "authshift_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authshift.MetricRefreshReuseDetected, Name: "authshift_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authshift.MetricRefreshRateLimited, Name: "authshift_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: authshift.MetricLogout, Name: "authshift_logout_total", Help: "Single-session logout operations."},
	{ID: authshift.MetricLogoutAll, Name: "authshift_logout_all_total", Help: "Logout-all operations."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: authshift.MetricResolveLatency, Name: "authshift_resolve_latency_seconds", Help: "Resolve latency histogram."},
	{ID: authshift.MetricRefreshLatency, Name: "authshift_refresh_latency_seconds", Help: "Refresh latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
