// Package feed implements append-only incremental loading driven by a proximity signal.
package feed

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/observability"
)

// DefaultLimit is the page size requested per load.
const DefaultLimit = 10

// ErrStale is returned when the feed was replaced or reset while a successful load was
// in flight. A failed load keeps its own error.
var ErrStale = errors.New("feed replaced during request")

func staleErr(err error) error {
	if err != nil {
		return err
	}
	return ErrStale
}

// Source fetches one window of a feed.
type Source[T any] interface {
	ListFeed(ctx context.Context, resourceID string, offset, limit int, token string) (model.ListPage[T], error)
}

// Gate supplies tokens and observes remote failures.
type Gate interface {
	RequireToken(ctx context.Context) (string, error)
	Check(ctx context.Context, err error) error
}

// Loader owns the FeedState of one viewer.
type Loader[T any] struct {
	name  string
	src   Source[T]
	gate  Gate
	limit int
	log   *zap.Logger

	initial singleflight.Group

	mu  sync.Mutex
	st  model.FeedState[T]
	gen uint64
}

// New constructs a loader; limit <= 0 uses DefaultLimit.
func New[T any](name string, src Source[T], g Gate, limit int, log *zap.Logger) *Loader[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Loader[T]{
		name:  name,
		src:   src,
		gate:  g,
		limit: limit,
		log:   observability.OrNop(log).With(zap.String("feed", name)),
	}
}

// State returns a snapshot of the feed.
func (l *Loader[T]) State() model.FeedState[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// LoadInitial replaces any existing feed with the first window of resourceID.
// Concurrent calls for the same resource share one request.
func (l *Loader[T]) LoadInitial(ctx context.Context, resourceID string) (model.FeedState[T], error) {
	v, err, _ := l.initial.Do(resourceID, func() (any, error) {
		return l.loadInitial(ctx, resourceID)
	})
	return v.(model.FeedState[T]), err
}

func (l *Loader[T]) loadInitial(ctx context.Context, resourceID string) (model.FeedState[T], error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.st = model.FeedState[T]{ResourceID: resourceID, IsLoadingMore: true}
	l.mu.Unlock()

	page, err := l.list(ctx, resourceID, 0)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return l.snapshot(), staleErr(err)
	}
	l.st.IsLoadingMore = false
	if err != nil {
		observability.ClientFetchTotal.WithLabelValues(l.name, "error").Inc()
		return l.snapshot(), err
	}
	l.st.Items = append([]T(nil), page.Items...)
	l.st.OffsetLoaded = len(l.st.Items)
	l.st.HasNext = page.HasNext && len(page.Items) > 0
	l.st.Total = page.Total
	observability.ClientFetchTotal.WithLabelValues(l.name, "ok").Inc()
	return l.snapshot(), nil
}

// LoadMore appends the next window. It is a no-op while a load is outstanding, when
// the feed is exhausted, or when resourceID is not the feed currently shown.
func (l *Loader[T]) LoadMore(ctx context.Context, resourceID string) (model.FeedState[T], error) {
	l.mu.Lock()
	if l.st.IsLoadingMore || !l.st.HasNext || l.st.ResourceID != resourceID {
		defer l.mu.Unlock()
		return l.snapshot(), nil
	}
	l.st.IsLoadingMore = true
	offset := l.st.OffsetLoaded
	gen := l.gen
	l.mu.Unlock()

	page, err := l.list(ctx, resourceID, offset)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return l.snapshot(), staleErr(err)
	}
	l.st.IsLoadingMore = false
	if err != nil {
		observability.ClientFetchTotal.WithLabelValues(l.name, "error").Inc()
		l.log.Debug("load more failed", zap.Int("offset", offset), zap.Error(err))
		return l.snapshot(), err
	}
	l.st.Items = append(l.st.Items, page.Items...)
	l.st.OffsetLoaded += len(page.Items)
	// an empty window ends the feed even if the server claims more
	l.st.HasNext = page.HasNext && len(page.Items) > 0
	l.st.Total = page.Total
	observability.ClientFetchTotal.WithLabelValues(l.name, "ok").Inc()
	return l.snapshot(), nil
}

// Reset drops the feed and discards results still in flight.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.st = model.FeedState[T]{}
}

func (l *Loader[T]) list(ctx context.Context, resourceID string, offset int) (model.ListPage[T], error) {
	token, err := l.gate.RequireToken(ctx)
	if err != nil {
		return model.ListPage[T]{}, err
	}
	page, err := l.src.ListFeed(ctx, resourceID, offset, l.limit, token)
	if err != nil {
		return model.ListPage[T]{}, l.gate.Check(ctx, err)
	}
	return page, nil
}

func (l *Loader[T]) snapshot() model.FeedState[T] {
	s := l.st
	s.Items = append([]T(nil), l.st.Items...)
	return s
}
