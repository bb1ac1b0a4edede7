package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/session"
)

type fakeSessions struct {
	token   string
	err     error
	cleared int
}

func (f *fakeSessions) Token(context.Context, session.Refresher) (string, error) {
	return f.token, f.err
}

func (f *fakeSessions) Clear(context.Context) error {
	f.cleared++
	return nil
}

func upgradeErr() error {
	return &errs.RemoteError{Op: "fetch issues", Status: 403, Code: errs.CodeSubscriptionRequired, Message: "Upgrade to Pro"}
}

func TestRequireToken(t *testing.T) {
	g := New(&fakeSessions{token: "tok"})
	tok, err := g.RequireToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok", tok)

	g = New(&fakeSessions{err: errs.ErrUnauthenticated})
	_, err = g.RequireToken(context.Background())
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestCheck_UpgradeNotifiesOnceWhileActive(t *testing.T) {
	g := New(&fakeSessions{}, WithWindow(0), WithLogger(zaptest.NewLogger(t)))
	var calls atomic.Int32
	g.OnUpgradeRequired(func() { calls.Add(1) })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.Error(t, g.Check(ctx, upgradeErr()))
	}
	require.Equal(t, int32(1), calls.Load())
	require.True(t, g.Active())

	g.Dismiss()
	require.False(t, g.Active())
	_ = g.Check(ctx, upgradeErr())
	require.Equal(t, int32(2), calls.Load())
}

func TestCheck_WindowCollapsesAfterDismiss(t *testing.T) {
	g := New(&fakeSessions{}, WithWindow(time.Hour))
	var calls atomic.Int32
	g.OnUpgradeRequired(func() { calls.Add(1) })
	ctx := context.Background()

	_ = g.Check(ctx, upgradeErr())
	g.Dismiss()
	_ = g.Check(ctx, upgradeErr())
	require.Equal(t, int32(1), calls.Load())
	require.False(t, g.Active())
}

func TestCheck_FansOutToAllSubscribers(t *testing.T) {
	g := New(&fakeSessions{}, WithWindow(0))
	var a, b atomic.Int32
	unsubA := g.OnUpgradeRequired(func() { a.Add(1) })
	g.OnUpgradeRequired(func() { b.Add(1) })

	_ = g.Check(context.Background(), upgradeErr())
	require.Equal(t, int32(1), a.Load())
	require.Equal(t, int32(1), b.Load())

	unsubA()
	g.Dismiss()
	_ = g.Check(context.Background(), upgradeErr())
	require.Equal(t, int32(1), a.Load())
	require.Equal(t, int32(2), b.Load())
}

func TestCheck_PhraseFallbackWithoutCode(t *testing.T) {
	g := New(&fakeSessions{}, WithWindow(0))
	var calls atomic.Int32
	g.OnUpgradeRequired(func() { calls.Add(1) })

	_ = g.Check(context.Background(), &errs.RemoteError{Status: 403, Message: "Please upgrade your plan"})
	require.Equal(t, int32(1), calls.Load())
}

func TestCheck_OtherErrorsDoNotNotify(t *testing.T) {
	s := &fakeSessions{}
	g := New(s, WithWindow(0))
	var calls atomic.Int32
	g.OnUpgradeRequired(func() { calls.Add(1) })
	ctx := context.Background()

	require.NoError(t, g.Check(ctx, nil))
	_ = g.Check(ctx, &errs.RemoteError{Status: 400, Code: "bad_request", Message: "offset must be >= 0"})
	_ = g.Check(ctx, &errs.RemoteError{Status: 502})
	require.Equal(t, int32(0), calls.Load())
	require.Equal(t, 0, s.cleared)
}

func TestCheck_UnauthorizedClearsSession(t *testing.T) {
	s := &fakeSessions{}
	g := New(s)
	err := g.Check(context.Background(), &errs.RemoteError{Status: 401, Message: "token expired"})
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
	require.Equal(t, 1, s.cleared)
}

func TestCheck_ConcurrentBurstSingleNotification(t *testing.T) {
	g := New(&fakeSessions{}, WithWindow(0))
	var calls atomic.Int32
	g.OnUpgradeRequired(func() { calls.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Check(context.Background(), upgradeErr())
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), calls.Load())
}
