// Package token issues and verifies the HS256 access and refresh tokens and
// tracks refresh tokens that have been revoked by logout or expiry.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/water-network-api/internal/model"
)

var (
	// ErrMissing is returned by Refresh when no token was supplied.
	ErrMissing = errors.New("token not provided")
	// ErrExpired means the signature was valid but exp has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers bad signatures, unexpected algorithms and malformed
	// tokens.
	ErrInvalid = errors.New("token is not valid")
	// ErrRevoked is returned by Refresh for tokens in the revocation set.
	ErrRevoked = errors.New("refresh token has been revoked")
	// ErrRefreshExpired is returned by Refresh when the token expired. The
	// token is revoked as a side effect, so the error also matches
	// ErrRevoked.
	ErrRefreshExpired = fmt.Errorf("%w: refresh token expired", ErrRevoked)
)

// Claims is the payload of both token types. Refresh tokens also carry a
// random jti in RegisteredClaims.ID.
type Claims struct {
	UserID string     `json:"id"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Subject identifies who a token is issued for.
type Subject struct {
	ID   string
	Role model.Role
}

// Config carries the signing secrets and lifetimes.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Service issues, verifies, refreshes and revokes tokens.
type Service struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    RevocationSet
	now        func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service. A nil revocation set defaults to an
// in-memory one.
func NewService(cfg Config, revoked RevocationSet, opts ...Option) *Service {
	if revoked == nil {
		revoked = NewMemorySet()
	}
	s := &Service{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		revoked:    revoked,
		now:        time.Now,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = time.Hour
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = 7 * 24 * time.Hour
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RefreshTTL is the lifetime given to new refresh tokens.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Service) sign(sub Subject, key []byte, ttl time.Duration, jti string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: sub.ID,
		Role:   sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// IssueAccessToken signs a short-lived token for sub.
func (s *Service) IssueAccessToken(sub Subject) (string, error) {
	return s.sign(sub, s.accessKey, s.accessTTL, "")
}

// IssueRefreshToken signs a long-lived token for sub.
func (s *Service) IssueRefreshToken(sub Subject) (string, error) {
	return s.sign(sub, s.refreshKey, s.refreshTTL, uuid.NewString())
}

// VerifyAccess checks an access token.
func (s *Service) VerifyAccess(raw string) (*Claims, error) { return s.verify(raw, s.accessKey) }

// VerifyRefresh checks a refresh token.
func (s *Service) VerifyRefresh(raw string) (*Claims, error) { return s.verify(raw, s.refreshKey) }

// verify returns ErrExpired only for tokens whose signature checked out;
// everything else is ErrInvalid.
func (s *Service) verify(raw string, key []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, ErrInvalid
	}
}

// Revoke adds raw to the revocation set. Revoking twice is harmless and
// any string is accepted.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	return s.revoked.Add(ctx, raw, s.expiryOf(raw))
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself stays valid until it expires or is revoked.
func (s *Service) Refresh(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrMissing
	}
	revoked, err := s.revoked.Contains(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return "", ErrRevoked
	}

	claims, err := s.VerifyRefresh(raw)
	if errors.Is(err, ErrExpired) {
		if err := s.Revoke(ctx, raw); err != nil {
			return "", fmt.Errorf("revoke expired token: %w", err)
		}
		return "", ErrRefreshExpired
	}
	if err != nil {
		return "", err
	}
	return s.IssueAccessToken(Subject{ID: claims.UserID, Role: claims.Role})
}

// expiryOf reads exp without checking the signature. Tokens without a
// readable exp are kept for a full refresh lifetime.
func (s *Service) expiryOf(raw string) time.Time {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err == nil && claims.ExpiresAt != nil {
		if exp := claims.ExpiresAt.Time; exp.After(s.now()) {
			return exp
		}
	}
	return s.now().Add(s.refreshTTL)
}
