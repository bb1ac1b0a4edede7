// Package collection keeps a local paginated view of a remote collection consistent:
// duplicate fetches collapse, filtered pages are served from the session cache, and
// deletes are applied optimistically and reconciled by re-fetching.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/wordshelf/internal/cache"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/observability"
)

// DefaultLimit is the page size used after Reset and when none is given.
const DefaultLimit = 20

// ErrStale is returned when the controller was reset while a successful request was in
// flight; the result was discarded. A failed request keeps its own error.
var ErrStale = errors.New("collection reset during request")

// staleErr is the error of a request whose owner was reset meanwhile.
func staleErr(err error) error {
	if err != nil {
		return err
	}
	return ErrStale
}

// Keyed items expose a stable identity within their collection.
type Keyed interface {
	Key() string
}

// Query is one list request.
type Query struct {
	Offset  int
	Limit   int
	Filters []string // "name=value" pairs
}

// Endpoint is the remote side of one resource kind.
type Endpoint[T any] interface {
	List(ctx context.Context, q Query, token string) (model.ListPage[T], error)
	Delete(ctx context.Context, id, token string) error
}

// Gate supplies tokens and observes remote failures.
type Gate interface {
	RequireToken(ctx context.Context) (string, error)
	Check(ctx context.Context, err error) error
}

// Phase is the controller's position in its state machine.
type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Mutating
	Failed // transient; left on the next fetch or reset
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Mutating:
		return "mutating"
	case Failed:
		return "error"
	default:
		return "idle"
	}
}

// Controller owns the CollectionState of one resource kind for one session.
type Controller[T Keyed] struct {
	name  string
	ep    Endpoint[T]
	gate  Gate
	cache *cache.Cache[T]
	log   *zap.Logger

	flight singleflight.Group

	mu       sync.Mutex
	st       model.CollectionState[T]
	filters  []string
	gen      uint64
	mutating int
	lastErr  error
}

// New constructs a controller. c may be shared with other controllers of the same kind; nil disables caching.
func New[T Keyed](name string, ep Endpoint[T], g Gate, c *cache.Cache[T], log *zap.Logger) *Controller[T] {
	return &Controller[T]{
		name:  name,
		ep:    ep,
		gate:  g,
		cache: c,
		log:   observability.OrNop(log).With(zap.String("resource", name)),
		st:    model.CollectionState[T]{Limit: DefaultLimit},
	}
}

// State returns a snapshot of the current state.
func (c *Controller[T]) State() model.CollectionState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Phase reports the current state-machine phase.
func (c *Controller[T]) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.st.IsLoading:
		return Loading
	case c.mutating > 0:
		return Mutating
	case c.lastErr != nil:
		return Failed
	case c.st.IsLoaded:
		return Loaded
	default:
		return Idle
	}
}

// Filters returns the filters of the last requested page.
func (c *Controller[T]) Filters() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.filters...)
}

// FetchPage loads the page at (offset, limit) under filters.
//
// It is a no-op when the state already reflects exactly that request. Filtered requests
// are answered from the cache when it holds the same window. Calls made while a fetch is
// in flight join it and receive its resulting state instead of issuing a second request.
// On failure the previous items are kept and the error is returned.
func (c *Controller[T]) FetchPage(ctx context.Context, offset, limit int, filters ...string) (model.CollectionState[T], error) {
	if offset < 0 || limit <= 0 {
		return c.State(), fmt.Errorf("validation: offset=%d limit=%d", offset, limit)
	}
	v, err, shared := c.flight.Do("page", func() (any, error) {
		return c.fetch(ctx, Query{Offset: offset, Limit: limit, Filters: append([]string(nil), filters...)})
	})
	if shared {
		c.log.Debug("joined in-flight fetch", zap.Int("offset", offset))
	}
	return v.(model.CollectionState[T]), err
}

func (c *Controller[T]) fetch(ctx context.Context, q Query) (model.CollectionState[T], error) {
	sig := ""
	if len(q.Filters) > 0 {
		sig = cache.Signature(q.Filters...)
	}

	c.mu.Lock()
	if c.st.IsLoaded && c.st.Offset == q.Offset && c.st.Limit == q.Limit && c.st.Filter == sig {
		c.filters = q.Filters
		observability.ClientFetchTotal.WithLabelValues(c.name, "skipped").Inc()
		defer c.mu.Unlock()
		return c.snapshot(), nil
	}
	if sig != "" && c.cache != nil {
		if e, ok := c.cache.Lookup(sig); ok && e.Offset == q.Offset && e.Limit == q.Limit {
			c.st = model.CollectionState[T]{
				Items: e.Items, Total: e.Total, Offset: q.Offset, Limit: q.Limit, Filter: sig, IsLoaded: true,
			}
			c.filters = q.Filters
			c.lastErr = nil
			observability.ClientFetchTotal.WithLabelValues(c.name, "cache").Inc()
			defer c.mu.Unlock()
			return c.snapshot(), nil
		}
	}
	c.st.IsLoading = true
	gen := c.gen
	c.mu.Unlock()

	page, err := c.list(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return c.snapshot(), staleErr(err)
	}
	c.st.IsLoading = false
	if err != nil {
		c.lastErr = err
		observability.ClientFetchTotal.WithLabelValues(c.name, "error").Inc()
		c.log.Debug("fetch failed", zap.Int("offset", q.Offset), zap.Error(err))
		return c.snapshot(), err
	}

	items := page.Items
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}
	c.st = model.CollectionState[T]{
		Items:    append([]T(nil), items...),
		Total:    max(0, page.Total),
		Offset:   q.Offset,
		Limit:    q.Limit,
		Filter:   sig,
		IsLoaded: true,
	}
	c.filters = q.Filters
	c.lastErr = nil
	if sig != "" && c.cache != nil {
		c.cache.Store(sig, cache.Entry[T]{Items: items, Total: c.st.Total, Offset: q.Offset, Limit: q.Limit})
	}
	observability.ClientFetchTotal.WithLabelValues(c.name, "ok").Inc()
	return c.snapshot(), nil
}

// list runs the remote call outside the lock.
func (c *Controller[T]) list(ctx context.Context, q Query) (model.ListPage[T], error) {
	token, err := c.gate.RequireToken(ctx)
	if err != nil {
		return model.ListPage[T]{}, err
	}
	page, err := c.ep.List(ctx, q, token)
	if err != nil {
		return model.ListPage[T]{}, c.gate.Check(ctx, err)
	}
	return page, nil
}

// DeleteItem removes id from the page before the remote call resolves.
//
// On success, a page emptied by the delete shifts back by one page and the state is
// marked not loaded so the next FetchPage pulls the shorter final page. On failure the
// state is marked not loaded so the next FetchPage restores the server's view; the
// error is returned for display.
func (c *Controller[T]) DeleteItem(ctx context.Context, id string) error {
	token, err := c.gate.RequireToken(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	kept := make([]T, 0, len(c.st.Items))
	for _, it := range c.st.Items {
		if it.Key() != id {
			kept = append(kept, it)
		}
	}
	if len(kept) != len(c.st.Items) {
		c.st.Items = kept
		c.st.Total = max(0, c.st.Total-1)
	}
	c.mutating++
	gen := c.gen
	c.mu.Unlock()

	err = c.ep.Delete(ctx, id, token)
	if err != nil {
		err = c.gate.Check(ctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return staleErr(err)
	}
	c.mutating--
	if err != nil {
		c.st.IsLoaded = false
		c.lastErr = err
		observability.ClientMutationTotal.WithLabelValues(c.name, "rollback").Inc()
		c.log.Debug("delete failed, forcing re-fetch", zap.String("id", id), zap.Error(err))
		return err
	}

	if c.cache != nil {
		c.cache.Remove(func(it T) bool { return it.Key() == id })
	}
	if len(c.st.Items) == 0 && c.st.Offset > 0 {
		c.st.Offset = max(0, c.st.Offset-c.st.Limit)
		c.st.IsLoaded = false
	}
	observability.ClientMutationTotal.WithLabelValues(c.name, "ok").Inc()
	return nil
}

// Reset returns the controller to Idle and discards results of requests still in flight.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.st = model.CollectionState[T]{Limit: DefaultLimit}
	c.filters = nil
	c.mutating = 0
	c.lastErr = nil
}

// Invalidate marks the state not loaded and drops the cached entry for the active filter,
// so the next FetchPage for the same window goes to the network.
func (c *Controller[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.IsLoaded = false
	if c.st.Filter != "" && c.cache != nil {
		c.cache.Delete(c.st.Filter)
	}
}

// HasNext reports whether a page follows the current one, against the latest known total.
func (c *Controller[T]) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Offset+c.st.Limit < c.st.Total
}

// HasPrev reports whether a page precedes the current one.
func (c *Controller[T]) HasPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Offset > 0
}

// NextPage fetches the following page with the active filters. At the end it reloads the current page.
func (c *Controller[T]) NextPage(ctx context.Context) (model.CollectionState[T], error) {
	c.mu.Lock()
	offset, limit, filters := c.st.Offset, c.st.Limit, append([]string(nil), c.filters...)
	if offset+limit < c.st.Total {
		offset += limit
	}
	c.mu.Unlock()
	return c.FetchPage(ctx, offset, limit, filters...)
}

// PrevPage fetches the preceding page with the active filters.
func (c *Controller[T]) PrevPage(ctx context.Context) (model.CollectionState[T], error) {
	c.mu.Lock()
	offset, limit, filters := max(0, c.st.Offset-c.st.Limit), c.st.Limit, append([]string(nil), c.filters...)
	c.mu.Unlock()
	return c.FetchPage(ctx, offset, limit, filters...)
}

// Reload re-pulls the current window from the network.
func (c *Controller[T]) Reload(ctx context.Context) (model.CollectionState[T], error) {
	c.Invalidate()
	c.mu.Lock()
	offset, limit, filters := c.st.Offset, c.st.Limit, append([]string(nil), c.filters...)
	c.mu.Unlock()
	return c.FetchPage(ctx, offset, limit, filters...)
}

func (c *Controller[T]) snapshot() model.CollectionState[T] {
	s := c.st
	s.Items = append([]T(nil), c.st.Items...)
	return s
}
