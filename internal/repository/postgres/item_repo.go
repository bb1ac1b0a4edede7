package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/model"
)

// ItemRepo implements repository.ItemRepository.
type ItemRepo struct{ db *DB }

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

// itemFilter renders the WHERE clause shared by the count and page queries.
func itemFilter(userID uuid.UUID, q model.ItemQuery) (string, []any) {
	var b strings.Builder
	args := []any{userID, string(q.Kind)}
	b.WriteString("user_id=$1 AND kind=$2")
	if q.Folder != "" {
		args = append(args, q.Folder)
		b.WriteString(" AND folder=$" + strconv.Itoa(len(args)))
	}
	if len(q.Statuses) > 0 {
		args = append(args, q.Statuses)
		b.WriteString(" AND status = ANY($" + strconv.Itoa(len(args)) + ")")
	}
	return b.String(), args
}

// List returns newest-first items matching q.
func (r *ItemRepo) List(ctx context.Context, userID uuid.UUID, q model.ItemQuery) ([]model.SavedItem, int, error) {
	where, args := itemFilter(userID, q)

	var total int
	if err := r.db.Pool.QueryRow(ctx, "SELECT count(*) FROM saved_items WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	n := len(args)
	args = append(args, q.Limit, q.Offset)
	sql := "SELECT id, kind, folder, text, url, status, created_at FROM saved_items WHERE " + where +
		" ORDER BY created_at DESC, id LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := make([]model.SavedItem, 0, q.Limit)
	for rows.Next() {
		it := model.SavedItem{UserID: userID}
		var kind string
		if err := rows.Scan(&it.ID, &kind, &it.Folder, &it.Text, &it.URL, &it.Status, &it.CreatedAt); err != nil {
			return nil, 0, err
		}
		it.Kind = model.Kind(kind)
		out = append(out, it)
	}
	return out, total, rows.Err()
}

// Create inserts an item.
func (r *ItemRepo) Create(ctx context.Context, it *model.SavedItem) error {
	const q = `
INSERT INTO saved_items (id, user_id, kind, folder, text, url, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q, it.ID, it.UserID, string(it.Kind), it.Folder, it.Text, it.URL, it.Status)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Delete removes an item owned by userID.
func (r *ItemRepo) Delete(ctx context.Context, userID uuid.UUID, kind model.Kind, id uuid.UUID) error {
	const q = `DELETE FROM saved_items WHERE id=$1 AND user_id=$2 AND kind=$3`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID, string(kind))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// PDFPages returns pages in reading order.
func (r *ItemRepo) PDFPages(ctx context.Context, userID, docID uuid.UUID, offset, limit int) ([]model.PDFPage, int, error) {
	const qDoc = `SELECT page_count FROM pdf_documents WHERE id=$1 AND user_id=$2`
	var total int
	if err := r.db.Pool.QueryRow(ctx, qDoc, docID, userID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, errs.ErrNotFound
		}
		return nil, 0, err
	}

	const qPages = `
SELECT number, text FROM pdf_pages
WHERE document_id=$1 ORDER BY number LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, qPages, docID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.PDFPage, 0, limit)
	for rows.Next() {
		p := model.PDFPage{DocumentID: docID}
		if err := rows.Scan(&p.Number, &p.Text); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
