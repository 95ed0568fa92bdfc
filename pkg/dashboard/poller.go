package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Poller keeps a view fresh by reloading it on an interval.
//
// Every fetch is numbered when it starts. A result is published only if no
// later-started fetch has been published already, so a slow response can
// never replace a newer one. Refresh may be called from any goroutine, e.g.
// right after an action.
type Poller[V any] struct {
	Load     func(context.Context) (V, error)
	Interval time.Duration

	// OnUpdate receives every published view. It runs on the fetching
	// goroutine and must not call Refresh.
	OnUpdate func(V)

	// Logger receives fetch failures. Nil discards them.
	Logger *slog.Logger

	issued atomic.Uint64

	mu        sync.Mutex
	published uint64
	latest    V
	loaded    bool
}

// NewPoller defaults a non-positive interval to thirty seconds.
func NewPoller[V any](load func(context.Context) (V, error), interval time.Duration) *Poller[V] {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller[V]{Load: load, Interval: interval}
}

// Run fetches immediately and then on every tick until ctx is done.
func (p *Poller[V]) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	_, _ = p.Refresh(ctx)

	for {
		select {
		case <-ticker.C:
			_, _ = p.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Refresh performs one fetch. It reports whether the result was published;
// false with a nil error means a newer result got there first.
func (p *Poller[V]) Refresh(ctx context.Context) (bool, error) {
	gen := p.issued.Add(1)

	v, err := p.Load(ctx)
	if err != nil {
		p.logger().Warn("dashboard refresh failed",
			slog.Uint64("generation", gen),
			slog.Any("error", err),
		)
		return false, err
	}

	return p.publish(gen, v), nil
}

// Latest returns the newest published view and whether there is one.
func (p *Poller[V]) Latest() (V, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.loaded
}

func (p *Poller[V]) publish(gen uint64, v V) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen < p.published {
		p.logger().Debug("dropping stale dashboard response",
			slog.Uint64("generation", gen),
			slog.Uint64("published", p.published),
		)
		return false
	}

	p.published = gen
	p.latest = v
	p.loaded = true
	if p.OnUpdate != nil {
		p.OnUpdate(v)
	}
	return true
}

func (p *Poller[V]) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.DiscardHandler)
}
