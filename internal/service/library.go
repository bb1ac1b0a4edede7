package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/repository"
)

// UpgradeMessage is shown to free-plan users hitting a Pro feature.
const UpgradeMessage = "Upgrade to Pro to use this feature"

// LibraryService serves the saved-item collections and the PDF reader.
type LibraryService interface {
	// List returns one page of items of q.Kind.
	List(ctx context.Context, userID uuid.UUID, q model.ItemQuery) (model.ListPage[model.SavedItem], error)
	// Save stores a new item for the user.
	Save(ctx context.Context, it model.SavedItem) (model.SavedItem, error)
	// Delete removes one item.
	Delete(ctx context.Context, userID uuid.UUID, kind model.Kind, id uuid.UUID) error
	// PDFPages returns one window of a document's pages. Pro only.
	PDFPages(ctx context.Context, userID, docID uuid.UUID, offset, limit int) (model.ListPage[model.PDFPage], error)
	// Subscription reports the user's plan.
	Subscription(ctx context.Context, userID uuid.UUID) (model.Subscription, error)
}

// LibraryServiceImpl implements LibraryService.
type LibraryServiceImpl struct {
	items   repository.ItemRepository
	users   repository.UserRepository
	maxPage int
}

// NewLibraryService constructs LibraryService; maxPage caps the page size a client may request.
func NewLibraryService(items repository.ItemRepository, users repository.UserRepository, maxPage int) *LibraryServiceImpl {
	if maxPage <= 0 {
		maxPage = 100
	}
	return &LibraryServiceImpl{items: items, users: users, maxPage: maxPage}
}

// List validates the query, applies plan gating and delegates to the repository.
// Filtering issues by more than one status is a Pro feature.
func (s *LibraryServiceImpl) List(ctx context.Context, userID uuid.UUID, q model.ItemQuery) (model.ListPage[model.SavedItem], error) {
	if !q.Kind.Valid() {
		return model.ListPage[model.SavedItem]{}, fmt.Errorf("%w: unknown kind %q", errs.ErrInvalidArgument, q.Kind)
	}
	offset, limit, err := s.window(q.Offset, q.Limit)
	if err != nil {
		return model.ListPage[model.SavedItem]{}, err
	}
	q.Offset, q.Limit = offset, limit
	for _, st := range q.Statuses {
		if !validStatus(st) {
			return model.ListPage[model.SavedItem]{}, fmt.Errorf("%w: unknown status %q", errs.ErrInvalidArgument, st)
		}
	}
	if len(q.Statuses) > 0 && q.Kind != model.KindIssue {
		return model.ListPage[model.SavedItem]{}, fmt.Errorf("%w: status filter applies to issues only", errs.ErrInvalidArgument)
	}
	if len(q.Statuses) > 1 {
		if err := s.requirePro(ctx, userID); err != nil {
			return model.ListPage[model.SavedItem]{}, err
		}
	}

	items, total, err := s.items.List(ctx, userID, q)
	if err != nil {
		return model.ListPage[model.SavedItem]{}, err
	}
	return page(items, total, offset, limit), nil
}

// Save validates and stores an item, assigning an ID when absent.
func (s *LibraryServiceImpl) Save(ctx context.Context, it model.SavedItem) (model.SavedItem, error) {
	if it.UserID == uuid.Nil || !it.Kind.Valid() || it.Text == "" {
		return model.SavedItem{}, fmt.Errorf("%w: user, kind and text are required", errs.ErrInvalidArgument)
	}
	if it.Kind == model.KindIssue && it.Status == "" {
		it.Status = model.StatusOpen
	}
	if it.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return model.SavedItem{}, err
		}
		it.ID = id
	}
	if err := s.items.Create(ctx, &it); err != nil {
		return model.SavedItem{}, err
	}
	return it, nil
}

// Delete removes one item of kind.
func (s *LibraryServiceImpl) Delete(ctx context.Context, userID uuid.UUID, kind model.Kind, id uuid.UUID) error {
	if !kind.Valid() || id == uuid.Nil {
		return fmt.Errorf("%w: kind/id", errs.ErrInvalidArgument)
	}
	return s.items.Delete(ctx, userID, kind, id)
}

// PDFPages serves the reader feed for Pro users.
func (s *LibraryServiceImpl) PDFPages(ctx context.Context, userID, docID uuid.UUID, offset, limit int) (model.ListPage[model.PDFPage], error) {
	offset, limit, err := s.window(offset, limit)
	if err != nil {
		return model.ListPage[model.PDFPage]{}, err
	}
	if err := s.requirePro(ctx, userID); err != nil {
		return model.ListPage[model.PDFPage]{}, err
	}
	pages, total, err := s.items.PDFPages(ctx, userID, docID, offset, limit)
	if err != nil {
		return model.ListPage[model.PDFPage]{}, err
	}
	return page(pages, total, offset, limit), nil
}

// Subscription reports the stored plan; every account is active.
func (s *LibraryServiceImpl) Subscription(ctx context.Context, userID uuid.UUID) (model.Subscription, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.Subscription{}, err
	}
	return model.Subscription{Plan: u.Plan, Status: "active"}, nil
}

func (s *LibraryServiceImpl) requirePro(ctx context.Context, userID uuid.UUID) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Plan != model.PlanPro {
		return errs.ErrSubscriptionRequired
	}
	return nil
}

func (s *LibraryServiceImpl) window(offset, limit int) (int, int, error) {
	if offset < 0 || limit <= 0 {
		return 0, 0, fmt.Errorf("%w: offset=%d limit=%d", errs.ErrInvalidArgument, offset, limit)
	}
	return offset, min(limit, s.maxPage), nil
}

func page[T any](items []T, total, offset, limit int) model.ListPage[T] {
	if items == nil {
		items = []T{}
	}
	return model.ListPage[T]{
		Items:   items,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasNext: offset+len(items) < total,
	}
}

func validStatus(s string) bool {
	switch s {
	case model.StatusOpen, model.StatusResolved, model.StatusIgnored:
		return true
	}
	return false
}
