package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blogapi/internal/apperr"
	"blogapi/internal/auth"
	"blogapi/internal/model"
	"blogapi/internal/repository"
)

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Sign(userID string, kind auth.TokenKind) (string, error)
	Verify(token string, kind auth.TokenKind) (*auth.Claims, error)
}

var (
	errUserExists         = apperr.New(apperr.ErrConstraintViolation, "User already exists")
	errUserNotFound       = apperr.New(apperr.ErrInvalidInput, "User not found")
	errInvalidCredentials = apperr.New(apperr.ErrInvalidInput, "Invalid credentials")
)

type RegisterInput struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AccessToken struct {
	AccessToken string `json:"accessToken"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResult struct {
	User   *model.User `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

// AuthService registers users and manages their sessions.
type AuthService interface {
	// Register creates the account and returns an access token for it.
	Register(ctx context.Context, in RegisterInput) (*AccessToken, error)
	// Login checks the credentials and returns the user with a token pair.
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (*AccessToken, error)
}

type authService struct {
	users  repository.UserRepository
	tokens TokenIssuer
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer) AuthService {
	return &authService{users: users, tokens: tokens}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AccessToken, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return nil, err
	}

	existing, err := s.users.FindOne(ctx, repository.Eq("email", in.Email), repository.FindOptions{})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errUserExists
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, &model.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    in.Email,
		Password: hash,
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errUserExists
		}
		return nil, err
	}

	token, err := s.tokens.Sign(user.ID.Hex(), auth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &AccessToken{AccessToken: token}, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindOne(ctx, repository.Eq("email", in.Email), repository.FindOptions{
		Projection:       repository.Include("fullName", "email"),
		IncludeSensitive: true,
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errUserNotFound
	}
	if !auth.ComparePassword(user.Password, in.Password) {
		return nil, errInvalidCredentials
	}
	user.Password = ""

	id := user.ID.Hex()
	access, err := s.tokens.Sign(id, auth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.Sign(id, auth.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &LoginResult{
		User:   user,
		Tokens: TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AccessToken, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperr.New(apperr.ErrInvalidInput, "refreshToken should not be empty")
	}
	claims, err := s.tokens.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperr.ErrSessionExpired
		}
		return nil, apperr.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.UserID, repository.FindOptions{})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrUnauthorized
	}

	token, err := s.tokens.Sign(user.ID.Hex(), auth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &AccessToken{AccessToken: token}, nil
}
