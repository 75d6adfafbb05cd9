package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Config tunes the refresh cycle. Zero values take the documented defaults.
type Config struct {
	// LockTTL bounds how long a crashed refresher can hold the advisory
	// slot. Default 5s.
	LockTTL time.Duration
	// MaxAttempts is the total refresh attempt budget per cycle. Auth
	// failures end the cycle regardless of remaining budget. Default 3.
	MaxAttempts int
	// RetryBase is the first backoff delay; each subsequent delay doubles.
	// Default 1s.
	RetryBase time.Duration
	// PollInterval is the storage-poll fallback cadence while waiting for
	// a sibling's broadcast. Default 200ms.
	PollInterval time.Duration
	// RefreshTimeout bounds each refresh network call. Default 5s.
	RefreshTimeout time.Duration
	// ResolveTimeout bounds a whole cycle from trigger to outcome.
	// Default 20s.
	ResolveTimeout time.Duration
}

// Deps are the collaborators shared by the participants of one session.
// Cell and Hub must be the same instances across participants; Lock must
// name the same slot.
type Deps struct {
	Refresher Refresher
	Lock      Lock
	Hub       Hub
	Cell      *TokenCell
}

// RequestFunc is one outgoing request. It receives the current access token
// and returns [ErrAccessExpired] when the server rejected that token as
// expired, which makes the coordinator refresh and call it again.
type RequestFunc func(ctx context.Context, accessToken string) error

// Stats are cumulative counters for one coordinator.
type Stats struct {
	RefreshAttempts uint64
	RefreshFailures uint64
	Broadcasts      uint64
	LockContention  uint64
}

type coordinatorStats struct {
	refreshAttempts atomic.Uint64
	refreshFailures atomic.Uint64
	broadcasts      atomic.Uint64
	lockContention  atomic.Uint64
}

type pending struct {
	ready    chan struct{}
	replayed chan struct{}
	pair     TokenPair
	err      error
}

// Coordinator serializes token refresh for one participant (one tab, one
// worker). Participants of the same session share Cell, Hub, and Lock so
// that one refresh round-trip per expiry cycle serves all of them.
type Coordinator struct {
	cfg  Config
	deps Deps
	id   string

	state atomic.Int32

	mu         sync.Mutex
	queue      []*pending
	refreshing bool
	terminal   bool

	done       chan struct{}
	expireOnce sync.Once

	stats coordinatorStats
}

// New validates deps, applies config defaults, and returns an idle
// coordinator.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	if deps.Refresher == nil {
		return nil, errors.New("refresher is required")
	}
	if deps.Lock == nil {
		return nil, errors.New("lock is required")
	}
	if deps.Hub == nil {
		return nil, errors.New("hub is required")
	}
	if deps.Cell == nil {
		return nil, errors.New("token cell is required")
	}

	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 5 * time.Second
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = 20 * time.Second
	}

	c := &Coordinator{
		cfg:  cfg,
		deps: deps,
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
	c.state.Store(int32(StateIdle))
	return c, nil
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Done is closed once the coordinator reaches StateSessionExpired.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Stats returns a snapshot of the cumulative counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		RefreshAttempts: c.stats.refreshAttempts.Load(),
		RefreshFailures: c.stats.refreshFailures.Load(),
		Broadcasts:      c.stats.broadcasts.Load(),
		LockContention:  c.stats.lockContention.Load(),
	}
}

// Execute runs fn with the current access token. When fn reports
// ErrAccessExpired the coordinator refreshes, then runs fn once more with
// the new token; queued requests replay in arrival order. Every other
// outcome of fn passes through unchanged.
func (c *Coordinator) Execute(ctx context.Context, fn RequestFunc) error {
	if fn == nil {
		return errors.New("nil request function")
	}
	select {
	case <-c.done:
		return ErrSessionExpired
	default:
	}

	pair, generation := c.deps.Cell.Get()
	err := fn(ctx, pair.AccessToken)
	if err == nil || !errors.Is(err, ErrAccessExpired) {
		return err
	}
	return c.retryAfterRefresh(ctx, fn, generation)
}

func (c *Coordinator) retryAfterRefresh(ctx context.Context, fn RequestFunc, staleGen uint64) error {
	// A sibling may have rotated while our request was in flight.
	if pair, generation := c.deps.Cell.Get(); generation != staleGen {
		return fn(ctx, pair.AccessToken)
	}

	p := &pending{
		ready:    make(chan struct{}),
		replayed: make(chan struct{}),
	}
	defer close(p.replayed)

	c.mu.Lock()
	if c.terminal {
		c.mu.Unlock()
		return ErrSessionExpired
	}
	c.queue = append(c.queue, p)
	lead := !c.refreshing
	if lead {
		c.refreshing = true
	}
	c.mu.Unlock()

	if lead {
		go c.runRefreshCycle(staleGen)
	}

	select {
	case <-p.ready:
		if p.err != nil {
			return p.err
		}
		return fn(ctx, p.pair.AccessToken)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runRefreshCycle obtains a fresh pair, then drains the queue. Waiters wake
// strictly in arrival order and each replay finishes before the next waiter
// wakes.
func (c *Coordinator) runRefreshCycle(staleGen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ResolveTimeout)
	pair, err := c.obtainFreshPair(ctx, staleGen)
	cancel()

	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.refreshing = false
	if err != nil {
		c.terminal = true
	}
	c.mu.Unlock()

	if err != nil {
		c.stats.refreshFailures.Add(1)
		c.expireSession()
		for _, p := range queue {
			p.err = ErrSessionExpired
			close(p.ready)
		}
		return
	}

	for _, p := range queue {
		p.pair = pair
		close(p.ready)
		<-p.replayed
	}
	c.setState(StateIdle)
}

// obtainFreshPair resolves one expiry cycle: adopt a sibling's rotation,
// or win the lock and refresh, or wait on broadcast with a poll fallback.
func (c *Coordinator) obtainFreshPair(ctx context.Context, staleGen uint64) (TokenPair, error) {
	c.setState(StateAwaitingLock)

	updates, cancelSub := c.deps.Hub.Subscribe()
	defer cancelSub()

	poll := time.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()

	for {
		if pair, generation := c.deps.Cell.Get(); generation != staleGen {
			return pair, nil
		}

		acquired, err := c.deps.Lock.Acquire(ctx, c.id, c.cfg.LockTTL)
		if err != nil {
			// The lock is advisory: a dead lock backend must not block
			// refresh. Lead anyway and tolerate a duplicate round-trip.
			acquired = true
		}
		if acquired {
			pair, err := c.leadRefresh(ctx, staleGen)
			_ = c.deps.Lock.Release(ctx, c.id)
			return pair, err
		}

		c.stats.lockContention.Add(1)
		select {
		case <-ctx.Done():
			return TokenPair{}, ctx.Err()
		case update := <-updates:
			if update.SessionExpired {
				return TokenPair{}, ErrSessionExpired
			}
			if update.Generation != staleGen {
				return update.Pair, nil
			}
		case <-poll.C:
			// Loop re-checks the cell and the lock; this covers missed
			// broadcasts and holders whose TTL lapsed.
		}
	}
}

func (c *Coordinator) leadRefresh(ctx context.Context, staleGen uint64) (TokenPair, error) {
	// A sibling may have rotated between the last cell check and winning
	// the lock.
	if pair, generation := c.deps.Cell.Get(); generation != staleGen {
		return pair, nil
	}

	c.setState(StateRefreshing)

	current, _ := c.deps.Cell.Get()
	var fresh TokenPair
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1), retry.NewExponential(c.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c.stats.refreshAttempts.Add(1)

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RefreshTimeout)
		defer cancel()

		pair, refreshErr := c.deps.Refresher.Refresh(callCtx, current.RefreshToken)
		if refreshErr != nil {
			if IsAuthFailure(refreshErr) {
				return refreshErr
			}
			return retry.RetryableError(refreshErr)
		}
		fresh = pair
		return nil
	})
	if err != nil {
		if IsAuthFailure(err) {
			// A racing refresher can rotate our token out from under us
			// while the lock lapsed; adopt its result instead of expiring
			// a live session.
			if pair, generation := c.deps.Cell.Get(); generation != staleGen {
				return pair, nil
			}
		}
		return TokenPair{}, err
	}

	generation := c.deps.Cell.Set(fresh)
	c.setState(StateBroadcasting)
	c.deps.Hub.Publish(Update{Generation: generation, Pair: fresh})
	c.stats.broadcasts.Add(1)
	return fresh, nil
}

func (c *Coordinator) expireSession() {
	c.expireOnce.Do(func() {
		c.setState(StateSessionExpired)
		c.deps.Hub.Publish(Update{SessionExpired: true})
		close(c.done)
	})
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}
