package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/model"
)

// UserRepo implements repository.UserRepository.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, name, pwd_hash, salt_auth, plan)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Email, u.Name, u.PwdHash, u.SaltAuth, u.Plan)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `
SELECT id, email, name, pwd_hash, salt_auth, plan, created_at
FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
SELECT id, email, name, pwd_hash, salt_auth, plan, created_at
FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// SetPlan updates the subscription plan.
func (r *UserRepo) SetPlan(ctx context.Context, id uuid.UUID, plan string) error {
	const q = `UPDATE users SET plan=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, plan)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PwdHash, &u.SaltAuth, &u.Plan, &u.CreatedAt)
	switch {
	case err == nil:
		return &u, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, errs.ErrNotFound
	default:
		return nil, fmt.Errorf("scan user: %w", err)
	}
}
