package service

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/model"
)

func newLibrary(plan string) (*LibraryServiceImpl, *fakeItems, uuid.UUID) {
	uid := uuid.Must(uuid.NewV4())
	users := &fakeUsers{byEmail: map[string]*model.User{
		"u@example.com": {ID: uid, Email: "u@example.com", Plan: plan},
	}}
	items := &fakeItems{}
	return NewLibraryService(items, users, 50), items, uid
}

func TestLibrary_List_WindowAndHasNext(t *testing.T) {
	t.Parallel()
	s, items, uid := newLibrary(model.PlanFree)
	items.items = make([]model.SavedItem, 10)
	items.total = 35
	ctx := context.Background()

	p, err := s.List(ctx, uid, model.ItemQuery{Kind: model.KindWord, Offset: 20, Limit: 10})
	require.NoError(t, err)
	assert.True(t, p.HasNext)
	assert.Equal(t, 35, p.Total)
	assert.Equal(t, 20, p.Offset)

	_, err = s.List(ctx, uid, model.ItemQuery{Kind: model.KindWord, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, items.lastQuery.Limit, "limit is capped")

	items.items = nil
	items.total = 0
	p, err = s.List(ctx, uid, model.ItemQuery{Kind: model.KindPage, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, p.Items)
	assert.False(t, p.HasNext)
}

func TestLibrary_List_Validation(t *testing.T) {
	t.Parallel()
	s, items, uid := newLibrary(model.PlanPro)
	ctx := context.Background()

	for _, q := range []model.ItemQuery{
		{Kind: "videos", Limit: 10},
		{Kind: model.KindWord, Limit: 0},
		{Kind: model.KindWord, Offset: -1, Limit: 10},
		{Kind: model.KindIssue, Limit: 10, Statuses: []string{"bogus"}},
		{Kind: model.KindWord, Limit: 10, Statuses: []string{model.StatusOpen}},
	} {
		_, err := s.List(ctx, uid, q)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, "%+v", q)
	}
	assert.Zero(t, items.listCalls)
}

func TestLibrary_PlanGating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	multi := model.ItemQuery{Kind: model.KindIssue, Limit: 10, Statuses: []string{model.StatusOpen, model.StatusIgnored}}

	free, freeItems, freeID := newLibrary(model.PlanFree)
	_, err := free.List(ctx, freeID, multi)
	require.ErrorIs(t, err, errs.ErrSubscriptionRequired)
	assert.Zero(t, freeItems.listCalls)

	_, err = free.List(ctx, freeID, model.ItemQuery{Kind: model.KindIssue, Limit: 10, Statuses: []string{model.StatusOpen}})
	require.NoError(t, err)

	_, err = free.PDFPages(ctx, freeID, uuid.Must(uuid.NewV4()), 0, 10)
	require.ErrorIs(t, err, errs.ErrSubscriptionRequired)

	pro, proItems, proID := newLibrary(model.PlanPro)
	_, err = pro.List(ctx, proID, multi)
	require.NoError(t, err)
	assert.Equal(t, multi.Statuses, proItems.lastQuery.Statuses)

	proItems.pages = []model.PDFPage{{Number: 1}}
	pp, err := pro.PDFPages(ctx, proID, uuid.Must(uuid.NewV4()), 0, 10)
	require.NoError(t, err)
	assert.True(t, pp.HasNext)
}

func TestLibrary_SaveDeleteSubscription(t *testing.T) {
	t.Parallel()
	s, items, uid := newLibrary(model.PlanFree)
	ctx := context.Background()

	_, err := s.Save(ctx, model.SavedItem{Kind: model.KindIssue, Text: "x"})
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	it, err := s.Save(ctx, model.SavedItem{UserID: uid, Kind: model.KindIssue, Text: "teh"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, it.ID)
	assert.Equal(t, model.StatusOpen, it.Status)
	require.Len(t, items.created, 1)

	require.NoError(t, s.Delete(ctx, uid, model.KindIssue, it.ID))
	items.delErr = errs.ErrNotFound
	require.ErrorIs(t, s.Delete(ctx, uid, model.KindIssue, it.ID), errs.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, uid, "videos", it.ID), errs.ErrInvalidArgument)

	sub, err := s.Subscription(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, model.Subscription{Plan: model.PlanFree, Status: "active"}, sub)
}
