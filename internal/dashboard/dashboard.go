// Package dashboard wires the per-account client state: one collection controller per
// resource kind, a cache per kind shared by every view of that kind, the PDF feed and the
// session gate. Signing out resets all of it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/wordshelf/internal/api"
	"github.com/and161185/wordshelf/internal/cache"
	"github.com/and161185/wordshelf/internal/collection"
	"github.com/and161185/wordshelf/internal/feed"
	"github.com/and161185/wordshelf/internal/gate"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/observability"
	"github.com/and161185/wordshelf/internal/session"
)

// ErrUnknownKind is returned for a resource kind the API does not expose.
var ErrUnknownKind = errors.New("unknown resource kind")

// Options tunes page sizes and cache lifetime.
type Options struct {
	PageSize     int           // collection page size; <= 0 uses collection.DefaultLimit
	FeedPageSize int           // PDF pages per load; <= 0 uses feed.DefaultLimit
	CacheTTL     time.Duration // <= 0 keeps cached pages until sign-out
}

// Endpoints are the remote collaborators; api.Client provides all of them.
type Endpoints struct {
	Items func(model.Kind) collection.Endpoint[model.SavedItem]
	PDF   feed.Source[model.PDFPage]
	Auth  Auth
}

// Auth is the credential exchange.
type Auth interface {
	session.Refresher
	Login(ctx context.Context, username, password string) (model.Session, error)
	Subscription(ctx context.Context, token string) (model.Subscription, error)
}

// RemoteEndpoints binds every endpoint to one API client.
func RemoteEndpoints(c *api.Client) Endpoints {
	return Endpoints{
		Items: func(k model.Kind) collection.Endpoint[model.SavedItem] { return api.ItemEndpoint(c, k) },
		PDF:   api.NewPDFPages(c),
		Auth:  api.NewAuth(c),
	}
}

// Session is the dashboard of the signed-in account.
type Session struct {
	sessions *session.Manager
	gate     *gate.Gate
	ep       Endpoints
	opts     Options
	log      *zap.Logger

	caches      map[model.Kind]*cache.Cache[model.SavedItem]
	controllers map[model.Kind]*collection.Controller[model.SavedItem]
	pdf         *feed.Loader[model.PDFPage]

	mu          sync.Mutex
	views       []*collection.Controller[model.SavedItem]
	userID      string
	unsubscribe func()
}

// New wires a dashboard over the session manager. Call Close to detach it.
func New(mgr *session.Manager, ep Endpoints, opts Options, log *zap.Logger) *Session {
	log = observability.OrNop(log)
	if opts.PageSize <= 0 {
		opts.PageSize = collection.DefaultLimit
	}
	s := &Session{
		sessions:    mgr,
		gate:        gate.New(mgr, gate.WithRefresher(ep.Auth), gate.WithLogger(log)),
		ep:          ep,
		opts:        opts,
		log:         log,
		caches:      make(map[model.Kind]*cache.Cache[model.SavedItem], len(model.Kinds)),
		controllers: make(map[model.Kind]*collection.Controller[model.SavedItem], len(model.Kinds)),
	}
	for _, k := range model.Kinds {
		s.caches[k] = cache.New[model.SavedItem](opts.CacheTTL)
		s.controllers[k] = collection.New(string(k), ep.Items(k), s.gate, s.caches[k], log)
	}
	s.pdf = feed.New("pdf_pages", ep.PDF, s.gate, opts.FeedPageSize, log)
	if cur := mgr.Current(); cur != nil {
		s.userID = cur.User.ID
	}
	s.unsubscribe = mgr.OnChange(s.sessionChanged)
	return s
}

// Gate exposes the upgrade-required signal.
func (s *Session) Gate() *gate.Gate { return s.gate }

// PageSize is the configured collection page size.
func (s *Session) PageSize() int { return s.opts.PageSize }

// Collection returns the primary controller of kind k.
func (s *Session) Collection(k model.Kind) (*collection.Controller[model.SavedItem], error) {
	c, ok := s.controllers[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return c, nil
}

// NewView returns an additional controller of kind k. It keeps its own state but shares
// the kind's cache, and it is reset on sign-out like the primary one.
func (s *Session) NewView(k model.Kind) (*collection.Controller[model.SavedItem], error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	c := collection.New(string(k), s.ep.Items(k), s.gate, s.caches[k], s.log)
	s.mu.Lock()
	s.views = append(s.views, c)
	s.mu.Unlock()
	return c, nil
}

// PDF returns the PDF page feed.
func (s *Session) PDF() *feed.Loader[model.PDFPage] { return s.pdf }

// Login exchanges credentials and stores the resulting session.
func (s *Session) Login(ctx context.Context, username, password string) (model.Session, error) {
	sess, err := s.ep.Auth.Login(ctx, username, password)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return model.Session{}, err
	}
	s.log.Info("signed in", zap.String("user", sess.User.Email))
	return sess, nil
}

// Logout clears the stored session. The change listener resets every controller.
func (s *Session) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// Subscription reports the plan of the signed-in account.
func (s *Session) Subscription(ctx context.Context) (model.Subscription, error) {
	token, err := s.gate.RequireToken(ctx)
	if err != nil {
		return model.Subscription{}, err
	}
	sub, err := s.ep.Auth.Subscription(ctx, token)
	return sub, s.gate.Check(ctx, err)
}

// Warmup loads the first unfiltered page of every kind concurrently.
func (s *Session) Warmup(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, k := range model.Kinds {
		c := s.controllers[k]
		g.Go(func() error {
			if _, err := c.FetchPage(ctx, 0, s.opts.PageSize); err != nil {
				return fmt.Errorf("warm up %s: %w", k, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Reset drops all local state: controllers, caches, the PDF feed and a pending notification.
func (s *Session) Reset() {
	for _, k := range model.Kinds {
		s.controllers[k].Reset()
		s.caches[k].Clear()
	}
	s.mu.Lock()
	views := append([]*collection.Controller[model.SavedItem](nil), s.views...)
	s.mu.Unlock()
	for _, v := range views {
		v.Reset()
	}
	s.pdf.Reset()
	s.gate.Dismiss()
}

// Close detaches the dashboard from the session manager.
func (s *Session) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Session) sessionChanged(next *model.Session) {
	s.mu.Lock()
	prev := s.userID
	s.userID = ""
	if next != nil {
		s.userID = next.User.ID
	}
	s.mu.Unlock()

	switch {
	case next == nil:
		s.log.Info("signed out, resetting dashboard")
		s.Reset()
	case prev != "" && prev != next.User.ID:
		s.log.Info("account switched, resetting dashboard")
		s.Reset()
	}
}

// FolderFilter narrows words and links to one folder.
func FolderFilter(folder string) string { return "folder=" + folder }

// StatusFilters narrows issues to the given statuses.
func StatusFilters(statuses ...string) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, "status="+st)
	}
	return out
}
