package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/observability"
)

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (model.Session, error)
}

// Manager is the process-wide session store. The in-memory copy is the source of truth;
// the persister is consulted only by Load at start-up.
type Manager struct {
	store Persister
	log   *zap.Logger
	now   func() time.Time

	mu        sync.RWMutex
	cur       *model.Session
	listeners map[int]func(*model.Session)
	nextID    int
}

// NewManager constructs a Manager over store.
func NewManager(store Persister, log *zap.Logger) *Manager {
	return &Manager{
		store:     store,
		log:       observability.OrNop(log),
		now:       time.Now,
		listeners: make(map[int]func(*model.Session)),
	}
}

// Load reads the persisted session. Read failures and expired records yield nil;
// an expired record is also removed from storage.
func (m *Manager) Load(ctx context.Context) *model.Session {
	s, err := m.store.Read(ctx)
	if err != nil {
		m.log.Warn("session load failed, continuing signed out", zap.Error(err))
		m.set(nil)
		return nil
	}
	if s == nil {
		m.set(nil)
		return nil
	}
	if !s.Usable(m.now()) {
		m.log.Info("persisted session expired", zap.Int64("expires_at", s.AccessTokenExpiresAt))
		if err := m.store.Remove(ctx); err != nil {
			m.log.Warn("remove expired session", zap.Error(err))
		}
		m.set(nil)
		return nil
	}
	m.set(s)
	return clone(s)
}

// Save persists s and makes it current. Persistence errors leave the previous session in place.
func (m *Manager) Save(ctx context.Context, s model.Session) error {
	if s.AccessToken == "" {
		return errors.New("validation: empty access token")
	}
	if !s.Usable(m.now()) {
		return fmt.Errorf("save session: %w", errs.ErrUnauthenticated)
	}
	if err := m.store.Write(ctx, s); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	m.set(&s)
	return nil
}

// Clear drops the session from memory and storage. Idempotent.
func (m *Manager) Clear(ctx context.Context) error {
	m.set(nil)
	if err := m.store.Remove(ctx); err != nil {
		m.log.Warn("remove session", zap.Error(err))
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return nil
}

// Current returns a copy of the in-memory session, or nil when absent or expired.
func (m *Manager) Current() *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil || !m.cur.Usable(m.now()) {
		return nil
	}
	return clone(m.cur)
}

// Token returns the access token. An expired session is discarded, or exchanged
// through r when r is set and the refresh token is still valid.
func (m *Manager) Token(ctx context.Context, r Refresher) (string, error) {
	m.mu.RLock()
	cur := clone(m.cur)
	m.mu.RUnlock()

	if cur == nil {
		return "", errs.ErrUnauthenticated
	}
	now := m.now()
	if cur.Usable(now) {
		return cur.AccessToken, nil
	}
	if r != nil && cur.Refreshable(now) {
		next, err := r.Refresh(ctx, cur.RefreshToken)
		if err == nil {
			err = m.Save(ctx, next)
		}
		if err == nil {
			return next.AccessToken, nil
		}
		m.log.Info("session refresh failed", zap.Error(err))
	}
	m.log.Info("session expired, signing out")
	_ = m.Clear(ctx)
	return "", errs.ErrUnauthenticated
}

// OnChange registers fn to run after every session replacement or removal.
// fn receives nil on sign-out. The returned func unsubscribes.
func (m *Manager) OnChange(fn func(*model.Session)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) set(s *model.Session) {
	m.mu.Lock()
	prev := m.cur
	m.cur = clone(s)
	fns := make([]func(*model.Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	if prev == nil && s == nil {
		return
	}
	for _, fn := range fns {
		fn(clone(s))
	}
}

func clone(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
