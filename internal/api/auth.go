package api

import (
	"context"
	"net/http"
	"time"

	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/session"
)

// Auth exchanges credentials for sessions and reads the subscription.
type Auth struct {
	c   *Client
	now func() time.Time
}

// NewAuth binds the auth endpoints to the client.
func NewAuth(c *Client) *Auth { return &Auth{c: c, now: time.Now} }

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login performs POST /v1/auth/login.
func (a *Auth) Login(ctx context.Context, username, password string) (model.Session, error) {
	var s model.Session
	err := a.c.do(ctx, call{
		method: http.MethodPost,
		path:   "/v1/auth/login",
		body:   loginRequest{Username: username, Password: password},
		verb:   "login",
		noun:   "user",
	}, &s)
	if err != nil {
		return model.Session{}, err
	}
	return session.Complete(s, a.now()), nil
}

// Refresh performs POST /v1/auth/refresh.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	var s model.Session
	err := a.c.do(ctx, call{
		method: http.MethodPost,
		path:   "/v1/auth/refresh",
		body:   refreshRequest{RefreshToken: refreshToken},
		verb:   "refresh",
		noun:   "session",
	}, &s)
	if err != nil {
		return model.Session{}, err
	}
	return session.Complete(s, a.now()), nil
}

// Subscription performs GET /v1/subscription.
func (a *Auth) Subscription(ctx context.Context, token string) (model.Subscription, error) {
	var sub model.Subscription
	err := a.c.do(ctx, call{
		method: http.MethodGet,
		path:   "/v1/subscription",
		token:  token,
		verb:   "fetch",
		noun:   "subscription",
	}, &sub)
	return sub, err
}

var _ session.Refresher = (*Auth)(nil)
