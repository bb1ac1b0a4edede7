// Package model defines domain entities shared by the client core and the API server.
package model

import (
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Plan names.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// UserInfo is the identity attached to a session.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Plan  string `json:"plan"`
}

// Session holds token material for the single signed-in account.
// Expiry fields are epoch seconds.
type Session struct {
	AccessToken           string   `json:"access_token"`
	AccessTokenExpiresAt  int64    `json:"access_token_expires_at"`
	RefreshToken          string   `json:"refresh_token"`
	RefreshTokenExpiresAt int64    `json:"refresh_token_expires_at"`
	User                  UserInfo `json:"user"`
}

// Usable reports whether the access token is still valid at now.
func (s Session) Usable(now time.Time) bool {
	return s.AccessToken != "" && now.Unix() < s.AccessTokenExpiresAt
}

// Refreshable reports whether the refresh token may still be exchanged at now.
func (s Session) Refreshable(now time.Time) bool {
	return s.RefreshToken != "" && now.Unix() < s.RefreshTokenExpiresAt
}

// Kind names a saved-item resource.
type Kind string

// Resource kinds exposed by the API.
const (
	KindWord      Kind = "words"
	KindPage      Kind = "pages"
	KindParagraph Kind = "paragraphs"
	KindLink      Kind = "links"
	KindIssue     Kind = "issues"
)

// Kinds lists every saved-item kind in display order.
var Kinds = []Kind{KindWord, KindPage, KindParagraph, KindLink, KindIssue}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Issue statuses.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
	StatusIgnored  = "ignored"
)

// SavedItem is a word, page, paragraph, link or issue saved by the extension.
type SavedItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Kind      Kind      `json:"kind"`
	Folder    string    `json:"folder,omitempty"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	Status    string    `json:"status,omitempty"` // issues only
	CreatedAt time.Time `json:"created_at"`
}

// Key identifies the item inside a collection.
func (i SavedItem) Key() string { return i.ID.String() }

// PDFPage is one page of a saved PDF document.
type PDFPage struct {
	DocumentID uuid.UUID `json:"document_id"`
	Number     int       `json:"number"`
	Text       string    `json:"text"`
}

// Key identifies the page inside a feed.
func (p PDFPage) Key() string { return p.DocumentID.String() + "#" + strconv.Itoa(p.Number) }

// ListPage is the uniform list response of every resource endpoint.
type ListPage[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasNext bool `json:"has_next"`
}

// CollectionState is a paginated view of a remote collection.
type CollectionState[T any] struct {
	Items     []T
	Total     int
	Offset    int
	Limit     int
	Filter    string // cache signature of the active filter, "" when unfiltered
	IsLoading bool
	IsLoaded  bool
}

// FeedState is an append-only view of a remote collection.
type FeedState[T any] struct {
	ResourceID    string
	Items         []T
	OffsetLoaded  int
	HasNext       bool
	Total         int
	IsLoadingMore bool
}

// Subscription reports the billing state of the signed-in user.
type Subscription struct {
	Plan   string `json:"plan"`
	Status string `json:"status"`
}

// User represents an account stored on the server. Passwords are never stored in plaintext.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	PwdHash   []byte // Argon2id(password, SaltAuth)
	SaltAuth  []byte
	Plan      string
	CreatedAt time.Time
}

// Tokens collects issued access/refresh tokens.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// ItemQuery narrows a saved-item listing.
type ItemQuery struct {
	Kind     Kind
	Folder   string
	Statuses []string
	Offset   int
	Limit    int
}
