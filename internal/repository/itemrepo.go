package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/wordshelf/internal/model"
)

// ItemRepository stores saved items and PDF pages.
type ItemRepository interface {
	// List returns one window of the user's items matching q and the total match count.
	List(ctx context.Context, userID uuid.UUID, q model.ItemQuery) ([]model.SavedItem, int, error)

	// Create stores a new item.
	Create(ctx context.Context, it *model.SavedItem) error

	// Delete removes an item of the given kind; a missing item yields errs.ErrNotFound.
	Delete(ctx context.Context, userID uuid.UUID, kind model.Kind, id uuid.UUID) error

	// PDFPages returns one window of a document's pages and the page count.
	PDFPages(ctx context.Context, userID, docID uuid.UUID, offset, limit int) ([]model.PDFPage, int, error)
}
