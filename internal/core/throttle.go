package core

import (
	"context"
	"sync"
	"time"
)

// Verdict is the throttle's decision for one inbound message.
type Verdict int

const (
	// VerdictAllow lets the message be relayed.
	VerdictAllow Verdict = iota
	// VerdictRejectSilently drops the message and keeps the session open.
	VerdictRejectSilently
	// VerdictRejectAndTerminate drops the message, warns the sender once, and
	// closes its session.
	VerdictRejectAndTerminate
)

// ThrottlePolicy selects how over-limit senders are handled.
type ThrottlePolicy string

const (
	// PolicyDrop silently rejects over-limit messages.
	PolicyDrop ThrottlePolicy = "drop"
	// PolicyDisconnect warns the sender and forces its connection closed.
	PolicyDisconnect ThrottlePolicy = "disconnect"
)

// ThrottleOptions configure the sliding window and the eviction sweep.
type ThrottleOptions struct {
	Window        time.Duration
	Limit         int
	Policy        ThrottlePolicy
	SweepInterval time.Duration
	IdleTTL       time.Duration
}

// DefaultThrottleOptions returns the baseline policy: 3 messages per rolling
// second, silent drop, stale identities swept after five idle minutes.
func DefaultThrottleOptions() ThrottleOptions {
	return ThrottleOptions{
		Window:        time.Second,
		Limit:         3,
		Policy:        PolicyDrop,
		SweepInterval: time.Minute,
		IdleTTL:       5 * time.Minute,
	}
}

// Throttle bounds the message rate per originating identity with a sliding
// window of recent timestamps. Keyed by identity rather than session id so an
// abusive origin cannot evade the limit by reconnecting.
type Throttle struct {
	mu   sync.Mutex
	opts ThrottleOptions
	seen map[string][]time.Time
}

// NewThrottle constructs a throttle, normalizing zero options to the defaults.
func NewThrottle(opts ThrottleOptions) *Throttle {
	def := DefaultThrottleOptions()
	if opts.Window <= 0 {
		opts.Window = def.Window
	}
	if opts.Limit <= 0 {
		opts.Limit = def.Limit
	}
	if opts.Policy == "" {
		opts.Policy = def.Policy
	}
	return &Throttle{
		opts: opts,
		seen: make(map[string][]time.Time),
	}
}

// ShouldAllow records a message from identity at now and decides whether it
// may be relayed. Every call mutates the window: rejected messages still
// count toward future windows.
func (t *Throttle) ShouldAllow(identity string, now time.Time) Verdict {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.seen[identity][:0]
	for _, ts := range t.seen[identity] {
		if now.Sub(ts) < t.opts.Window {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.seen[identity] = kept

	if len(kept) <= t.opts.Limit {
		return VerdictAllow
	}
	if t.opts.Policy == PolicyDisconnect {
		return VerdictRejectAndTerminate
	}
	return VerdictRejectSilently
}

// TrackedIdentities returns how many identities currently hold window state.
func (t *Throttle) TrackedIdentities() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// Run sweeps identities that have been idle for a full TTL, bounding the
// otherwise unbounded per-identity map. It blocks until ctx is canceled.
func (t *Throttle) Run(ctx context.Context) {
	if t.opts.SweepInterval <= 0 || t.opts.IdleTTL <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(t.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

func (t *Throttle) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for identity, stamps := range t.seen {
		if len(stamps) == 0 || now.Sub(stamps[len(stamps)-1]) > t.opts.IdleTTL {
			delete(t.seen, identity)
		}
	}
}
