// Package gate guards every remote operation behind a valid session and turns
// plan-gated rejections into a single upgrade-required notification.
package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/observability"
	"github.com/and161185/wordshelf/internal/session"
)

// DefaultWindow collapses repeated upgrade notifications raised in quick succession.
const DefaultWindow = 2 * time.Second

// Sessions is the part of session.Manager the gate depends on.
type Sessions interface {
	Token(ctx context.Context, r session.Refresher) (string, error)
	Clear(ctx context.Context) error
}

// Gate hands out tokens and publishes the upgrade-required signal.
type Gate struct {
	sessions  Sessions
	refresher session.Refresher
	log       *zap.Logger

	mu       sync.Mutex
	debounce *rate.Sometimes // nil when no window
	active   bool
	handlers map[int]func()
	nextID   int
}

// Option configures a Gate.
type Option func(*Gate)

// WithRefresher lets RequireToken exchange an expired access token.
func WithRefresher(r session.Refresher) Option {
	return func(g *Gate) { g.refresher = r }
}

// WithWindow sets the debounce window; zero disables time-based collapsing.
func WithWindow(d time.Duration) Option {
	return func(g *Gate) {
		if d <= 0 {
			g.debounce = nil
			return
		}
		g.debounce = &rate.Sometimes{Interval: d}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) { g.log = observability.OrNop(l) }
}

// New constructs a gate over the session store.
func New(s Sessions, opts ...Option) *Gate {
	g := &Gate{
		sessions: s,
		log:      zap.NewNop(),
		debounce: &rate.Sometimes{Interval: DefaultWindow},
		handlers: make(map[int]func()),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// RequireToken returns a usable access token or errs.ErrUnauthenticated.
func (g *Gate) RequireToken(ctx context.Context) (string, error) {
	return g.sessions.Token(ctx, g.refresher)
}

// Check inspects a remote failure. Plan-gated errors raise the upgrade notification,
// server-side session rejection signs the user out. err is returned unchanged.
func (g *Gate) Check(ctx context.Context, err error) error {
	switch {
	case err == nil:
	case errs.IsSubscriptionRequired(err):
		g.notify()
	case errors.Is(err, errs.ErrUnauthenticated):
		g.log.Info("session rejected by server, signing out")
		_ = g.sessions.Clear(ctx)
	}
	return err
}

// OnUpgradeRequired subscribes h to the upgrade-required signal.
func (g *Gate) OnUpgradeRequired(h func()) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.handlers[id] = h
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.handlers, id)
		g.mu.Unlock()
	}
}

// Dismiss marks the active notification as handled so a later rejection can raise a new one.
func (g *Gate) Dismiss() {
	g.mu.Lock()
	g.active = false
	g.mu.Unlock()
}

// Active reports whether a notification is currently surfaced.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *Gate) notify() {
	g.mu.Lock()
	if g.active {
		g.mu.Unlock()
		return
	}
	fire := g.debounce == nil
	if !fire {
		g.debounce.Do(func() { fire = true })
	}
	if !fire {
		g.mu.Unlock()
		return
	}
	g.active = true
	hs := make([]func(), 0, len(g.handlers))
	for _, h := range g.handlers {
		hs = append(hs, h)
	}
	g.mu.Unlock()

	observability.UpgradeNotificationsTotal.Inc()
	g.log.Info("upgrade required", zap.Int("subscribers", len(hs)))
	for _, h := range hs {
		h()
	}
}
