// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenKind separates short-lived access tokens from refresh tokens.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims is the token payload.
type Claims struct {
	UserID string    `json:"userId"`
	Kind   TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService signs and verifies HS256 tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    map[TokenKind]time.Duration
	now    func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl: map[TokenKind]time.Duration{
			AccessToken:  cfg.AccessTTL,
			RefreshToken: cfg.RefreshTTL,
		},
		now: time.Now,
	}, nil
}

// Sign issues a token of the given kind for userID.
func (s *TokenService) Sign(userID string, kind TokenKind) (string, error) {
	ttl, ok := s.ttl[kind]
	if !ok {
		return "", fmt.Errorf("auth: unknown token kind %q", kind)
	}
	now := s.now()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and kind. Expiry is reported as
// ErrTokenExpired so callers can ask the client to log in again.
func (s *TokenService) Verify(token string, kind TokenKind) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Kind != kind || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
