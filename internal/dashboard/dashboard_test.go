package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/wordshelf/internal/collection"
	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/feed"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/session"
)

type memStore struct {
	mu sync.Mutex
	s  *model.Session
}

func (m *memStore) Read(context.Context) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *memStore) Write(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = &s
	return nil
}

func (m *memStore) Remove(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}

type fakeItems struct {
	kind   model.Kind
	calls  atomic.Int32
	err    error
	delErr error
}

func (f *fakeItems) List(_ context.Context, q collection.Query, _ string) (model.ListPage[model.SavedItem], error) {
	f.calls.Add(1)
	if f.err != nil {
		return model.ListPage[model.SavedItem]{}, f.err
	}
	items := make([]model.SavedItem, 0, q.Limit)
	for i := 0; i < q.Limit; i++ {
		items = append(items, model.SavedItem{ID: uuid.Must(uuid.NewV4()), Kind: f.kind})
	}
	return model.ListPage[model.SavedItem]{Items: items, Total: 100, Offset: q.Offset, Limit: q.Limit}, nil
}

func (f *fakeItems) Delete(context.Context, string, string) error { return f.delErr }

type fakePDF struct{ err error }

func (f *fakePDF) ListFeed(_ context.Context, _ string, offset, limit int, _ string) (model.ListPage[model.PDFPage], error) {
	if f.err != nil {
		return model.ListPage[model.PDFPage]{}, f.err
	}
	return model.ListPage[model.PDFPage]{Items: []model.PDFPage{{Number: offset + 1}}, Total: 3, HasNext: true}, nil
}

type fakeAuth struct {
	sess model.Session
	sub  model.Subscription
	err  error
}

func (f *fakeAuth) Login(context.Context, string, string) (model.Session, error) { return f.sess, f.err }
func (f *fakeAuth) Refresh(context.Context, string) (model.Session, error)      { return f.sess, f.err }
func (f *fakeAuth) Subscription(context.Context, string) (model.Subscription, error) {
	return f.sub, f.err
}

type fixture struct {
	dash  *Session
	mgr   *session.Manager
	items map[model.Kind]*fakeItems
	pdf   *fakePDF
	auth  *fakeAuth
}

func sessionFor(user string) model.Session {
	return model.Session{
		AccessToken:          "tok-" + user,
		AccessTokenExpiresAt: time.Now().Add(time.Hour).Unix(),
		User:                 model.UserInfo{ID: user, Email: user + "@example.com", Plan: model.PlanFree},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	f := &fixture{
		mgr:   session.NewManager(&memStore{}, log),
		items: make(map[model.Kind]*fakeItems),
		pdf:   &fakePDF{},
		auth:  &fakeAuth{sess: sessionFor("u1"), sub: model.Subscription{Plan: model.PlanPro, Status: "active"}},
	}
	for _, k := range model.Kinds {
		f.items[k] = &fakeItems{kind: k}
	}
	f.dash = New(f.mgr, Endpoints{
		Items: func(k model.Kind) collection.Endpoint[model.SavedItem] { return f.items[k] },
		PDF:   f.pdf,
		Auth:  f.auth,
	}, Options{PageSize: 5}, log)
	t.Cleanup(f.dash.Close)
	return f
}

func TestSession_LoginWarmupLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dash.Login(ctx, "u1", "pw")
	require.NoError(t, err)
	require.NotNil(t, f.mgr.Current())

	require.NoError(t, f.dash.Warmup(ctx))
	for _, k := range model.Kinds {
		c, err := f.dash.Collection(k)
		require.NoError(t, err)
		st := c.State()
		assert.True(t, st.IsLoaded, k)
		assert.Len(t, st.Items, 5, k)
		assert.Equal(t, int32(1), f.items[k].calls.Load(), k)
	}

	words, _ := f.dash.Collection(model.KindWord)
	_, err = words.FetchPage(ctx, 0, 5, FolderFilter("verbs"))
	require.NoError(t, err)
	_, err = f.dash.PDF().LoadInitial(ctx, "doc")
	require.NoError(t, err)

	require.NoError(t, f.dash.Logout(ctx))
	assert.Nil(t, f.mgr.Current())
	for _, k := range model.Kinds {
		c, _ := f.dash.Collection(k)
		st := c.State()
		assert.False(t, st.IsLoaded, k)
		assert.Empty(t, st.Items, k)
		assert.Equal(t, collection.DefaultLimit, st.Limit, k)
		assert.Zero(t, f.dash.caches[k].Len(), k)
	}
	assert.Empty(t, f.dash.PDF().State().Items)
}

func TestSession_SharedCacheAcrossViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Save(ctx, sessionFor("u1")))

	primary, _ := f.dash.Collection(model.KindLink)
	view, err := f.dash.NewView(model.KindLink)
	require.NoError(t, err)

	_, err = primary.FetchPage(ctx, 0, 5, FolderFilter("news"))
	require.NoError(t, err)
	_, err = view.FetchPage(ctx, 0, 5, FolderFilter("news"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.items[model.KindLink].calls.Load())
	assert.Equal(t, primary.State().Items, view.State().Items)

	require.NoError(t, f.dash.Logout(ctx))
	assert.False(t, view.State().IsLoaded)
}

func TestSession_UnknownKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.dash.Collection("videos")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = f.dash.NewView("videos")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSession_AccountSwitchResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Save(ctx, sessionFor("u1")))

	issues, _ := f.dash.Collection(model.KindIssue)
	_, err := issues.FetchPage(ctx, 0, 5)
	require.NoError(t, err)

	// Token refresh for the same account keeps state.
	require.NoError(t, f.mgr.Save(ctx, sessionFor("u1")))
	assert.True(t, issues.State().IsLoaded)

	require.NoError(t, f.mgr.Save(ctx, sessionFor("u2")))
	assert.False(t, issues.State().IsLoaded)
}

func TestSession_WarmupSignedOut(t *testing.T) {
	f := newFixture(t)
	err := f.dash.Warmup(context.Background())
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	for _, k := range model.Kinds {
		assert.Zero(t, f.items[k].calls.Load())
	}
}

func TestSession_SubscriptionRejectionNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Save(ctx, sessionFor("u1")))

	var fired atomic.Int32
	unsub := f.dash.Gate().OnUpgradeRequired(func() { fired.Add(1) })
	defer unsub()

	f.items[model.KindIssue].err = &errs.RemoteError{Status: 403, Code: errs.CodeSubscriptionRequired}
	issues, _ := f.dash.Collection(model.KindIssue)
	_, err := issues.FetchPage(ctx, 0, 5, StatusFilters(model.StatusOpen, model.StatusIgnored)...)
	require.Error(t, err)
	assert.True(t, errs.IsSubscriptionRequired(err))
	assert.Empty(t, errs.UserMessage(err))
	assert.Equal(t, int32(1), fired.Load())
}

func TestSession_Subscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dash.Subscription(ctx)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	require.NoError(t, f.mgr.Save(ctx, sessionFor("u1")))
	sub, err := f.dash.Subscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, sub.Plan)
}

func TestSession_LoginFailureKeepsSignedOut(t *testing.T) {
	f := newFixture(t)
	f.auth.err = errors.New("bad credentials")
	_, err := f.dash.Login(context.Background(), "u1", "nope")
	require.Error(t, err)
	assert.Nil(t, f.mgr.Current())
}

func TestStatusFilters(t *testing.T) {
	assert.Equal(t, []string{"status=open", "status=resolved"}, StatusFilters("open", "resolved"))
	assert.Equal(t, "folder=x", FolderFilter("x"))
}

func TestSession_ExpiredSessionSurfacesUnauthenticated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess := sessionFor("u1")
	sess.RefreshToken = "refresh"
	sess.RefreshTokenExpiresAt = time.Now().Add(time.Hour).Unix()
	sess.AccessTokenExpiresAt = time.Now().Unix() + 1
	require.NoError(t, f.mgr.Save(ctx, sess))
	require.Eventually(t, func() bool { return time.Now().Unix() >= sess.AccessTokenExpiresAt },
		2*time.Second, 20*time.Millisecond)
	f.auth.err = errors.New("refresh rejected")

	words, _ := f.dash.Collection(model.KindWord)
	_, err := words.FetchPage(ctx, 0, 5)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	require.NotErrorIs(t, err, collection.ErrStale)
	assert.Equal(t, int32(0), f.items[model.KindWord].calls.Load())
	assert.Nil(t, f.mgr.Current())
	assert.False(t, words.State().IsLoaded)
}

func TestSession_ServerRejectionSurfacesUnauthenticated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rejected := &errs.RemoteError{Op: "fetch words", Status: 401, Message: "Not authenticated"}
	words, _ := f.dash.Collection(model.KindWord)

	signIn := func() {
		t.Helper()
		_, err := f.dash.Login(ctx, "u1", "pw")
		require.NoError(t, err)
	}

	signIn()
	_, err := words.FetchPage(ctx, 0, 5)
	require.NoError(t, err)
	f.items[model.KindWord].err = rejected
	_, err = words.Reload(ctx)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	require.NotErrorIs(t, err, collection.ErrStale)
	assert.Nil(t, f.mgr.Current())
	assert.Empty(t, words.State().Items)

	f.items[model.KindWord].err = nil
	signIn()
	st, err := words.FetchPage(ctx, 0, 5)
	require.NoError(t, err)
	f.items[model.KindWord].delErr = rejected
	err = words.DeleteItem(ctx, st.Items[0].Key())
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	require.NotErrorIs(t, err, collection.ErrStale)
	assert.Nil(t, f.mgr.Current())
	assert.Equal(t, collection.Idle, words.Phase())

	signIn()
	_, err = f.dash.PDF().LoadInitial(ctx, "doc")
	require.NoError(t, err)
	f.pdf.err = rejected
	_, err = f.dash.PDF().LoadMore(ctx, "doc")
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	require.NotErrorIs(t, err, feed.ErrStale)
	assert.Nil(t, f.mgr.Current())
	assert.Empty(t, f.dash.PDF().State().Items)
}
