package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/limiter"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/repository"
)

type fakeUsers struct {
	byEmail map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) SetPlan(_ context.Context, id uuid.UUID, plan string) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Plan = plan
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool

	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, nil
}

type fakeItems struct {
	lastQuery model.ItemQuery
	items     []model.SavedItem
	total     int
	created   []model.SavedItem
	delErr    error
	pages     []model.PDFPage
	listCalls int
}

var _ repository.ItemRepository = (*fakeItems)(nil)

func (f *fakeItems) List(_ context.Context, _ uuid.UUID, q model.ItemQuery) ([]model.SavedItem, int, error) {
	f.listCalls++
	f.lastQuery = q
	return f.items, f.total, nil
}

func (f *fakeItems) Create(_ context.Context, it *model.SavedItem) error {
	f.created = append(f.created, *it)
	return nil
}

func (f *fakeItems) Delete(context.Context, uuid.UUID, model.Kind, uuid.UUID) error { return f.delErr }

func (f *fakeItems) PDFPages(_ context.Context, _, _ uuid.UUID, _, _ int) ([]model.PDFPage, int, error) {
	return f.pages, 30, nil
}
