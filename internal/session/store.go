// Package session owns the signed-in session record: persistence, expiry and change notification.
package session

import (
	"context"

	"github.com/and161185/wordshelf/internal/model"
)

// Persister stores at most one session record.
type Persister interface {
	// Read returns the persisted session, or (nil, nil) when none is stored.
	Read(ctx context.Context) (*model.Session, error)
	// Write atomically replaces the persisted session.
	Write(ctx context.Context, s model.Session) error
	// Remove deletes the persisted session; removing nothing is not an error.
	Remove(ctx context.Context) error
}
