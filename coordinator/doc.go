// Package coordinator implements the client side of token refresh: many
// concurrent callers (tabs, workers, request goroutines) sharing one session
// coordinate so that a single refresh round-trip serves all of them per
// expiry cycle.
//
// A [Coordinator] wraps outgoing requests via [Coordinator.Execute]. When a
// request reports [ErrAccessExpired], the coordinator queues it, elects one
// refresher through an advisory time-boxed [Lock], performs the refresh with
// bounded retries, publishes the new pair on a [Hub] for the other
// participants, and replays queued requests in their original order.
//
// Authentication failures from the refresh endpoint are terminal: the
// coordinator transitions to [StateSessionExpired], fails queued work with
// [ErrSessionExpired], and never retries. Transport failures retry with
// exponential backoff up to a fixed attempt ceiling, then expire the session
// the same way, so a stalled backend can never wedge callers forever.
package coordinator
