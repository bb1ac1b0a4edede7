// Package service contains the API server's application services: authentication and the saved-item library.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/wordshelf/internal/crypto"
	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/limiter"
	"github.com/and161185/wordshelf/internal/model"
	"github.com/and161185/wordshelf/internal/repository"
)

// Token audiences keep access and refresh tokens from being swapped.
const (
	audAccess  = "wordshelf:access"
	audRefresh = "wordshelf:refresh"
)

// AuthService defines account and token operations.
type AuthService interface {
	// Register creates a free-plan account.
	Register(ctx context.Context, email, name, password string) (model.User, error)
	// Login applies rate limiting, checks credentials and issues a token pair.
	Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// Refresh exchanges a valid refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, model.User, error)
	// Authenticate verifies an access token and returns its subject.
	Authenticate(accessToken string) (uuid.UUID, error)
}

// AuthServiceImpl implements AuthService with HS256 tokens.
type AuthServiceImpl struct {
	users      repository.UserRepository
	hasher     *pkgcrypto.Hasher
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	lim        limiter.Limiter
	now        func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository, hasher *pkgcrypto.Hasher, signKey []byte,
	accessTTL, refreshTTL time.Duration, lim limiter.Limiter,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:      users,
		hasher:     hasher,
		signKey:    signKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		lim:        lim,
		now:        time.Now,
	}
}

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, email, name, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || password == "" {
		return model.User{}, fmt.Errorf("%w: email and password are required", errs.ErrInvalidArgument)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.User{}, err
	}
	hash, salt, err := s.hasher.New([]byte(password))
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		ID:        uid,
		Email:     email,
		Name:      name,
		PwdHash:   hash,
		SaltAuth:  salt,
		Plan:      model.PlanFree,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, err
	}
	ok := false
	if u != nil {
		ok = s.hasher.Verify([]byte(password), u.SaltAuth, u.PwdHash)
	} else {
		s.hasher.Burn([]byte(password))
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// Unknown account and wrong password look the same.
		return model.Tokens{}, model.User{}, errs.ErrUnauthenticated
	}

	_ = s.lim.Success(ctx, email, ipHash)

	tok, err := s.issue(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}

// Refresh verifies the refresh token and issues a fresh pair for its subject.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, model.User, error) {
	uid, err := s.verify(refreshToken, audRefresh)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	u, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, errs.ErrUnauthenticated
	}
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	tok, err := s.issue(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}

// Authenticate verifies an access token.
func (s *AuthServiceImpl) Authenticate(accessToken string) (uuid.UUID, error) {
	return s.verify(accessToken, audAccess)
}

func (s *AuthServiceImpl) issue(userID uuid.UUID) (model.Tokens, error) {
	now := s.now()
	access, accessExp, err := s.sign(userID, audAccess, now, s.accessTTL)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, refreshExp, err := s.sign(userID, audRefresh, now, s.refreshTTL)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// sign creates a signed HS256 JWT for the given subject and audience.
func (s *AuthServiceImpl) sign(userID uuid.UUID, aud string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{aud},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	return signed, exp, err
}

func (s *AuthServiceImpl) verify(token, aud string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, errs.ErrUnauthenticated
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(aud),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}
	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", errs.ErrUnauthenticated)
	}
	return uid, nil
}
