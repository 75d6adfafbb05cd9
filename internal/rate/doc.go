// Package rate provides the fixed-window Redis counters behind the refresh
// throttle.
//
// # Window semantics
//
// INCR plus conditional EXPIRE on the first hit of a window. Key prefixes
// under the configured namespace:
//   - ar:  — refresh attempts per record
//   - ari: — refresh attempts per client IP
//
// # What this package must NOT do
//
//   - Decide what counts as an attempt. Callers invoke CheckRefresh; this
//     package only counts.
//   - Be imported outside this module.
package rate
