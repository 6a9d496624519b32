package session

import (
	"context"
	"fmt"

	"github.com/cliptube/identity-api/internal/domain"
	jwtinfra "github.com/cliptube/identity-api/internal/infrastructure/jwt"
	"github.com/cliptube/identity-api/internal/metrics"
	"github.com/cliptube/identity-api/internal/pkg/password"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResult struct {
	User *domain.User
	TokenPair
}

// Service owns the access/refresh pair lifecycle. It is the sole writer of
// the user's refresh-token slot: IssuePair and Rotate overwrite it, Logout
// clears it. A refresh token is Current only while it equals the stored
// value; every overwrite permanently supersedes the previous token.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	IssuePair(ctx context.Context, userID string) (*TokenPair, error)
	Rotate(ctx context.Context, presented string) (*TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

type userStore interface {
	FindByIdentity(ctx context.Context, identifier string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, presented, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

type tokenSigner interface {
	SignAccess(userID string) (string, error)
	SignRefresh(userID string) (string, error)
	VerifyRefresh(token string) (*jwtinfra.Claims, error)
}

type service struct {
	repo    userStore
	tokens  tokenSigner
	metrics metrics.Collector
}

type ServiceDeps struct {
	UserRepo userStore
	Tokens   tokenSigner
	Metrics  metrics.Collector
}

func NewService(deps ServiceDeps) Service {
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}
	return &service{repo: deps.UserRepo, tokens: deps.Tokens, metrics: m}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}
	if identifier == "" || req.Password == "" {
		return nil, fmt.Errorf("email or username and password are required: %w", domain.ErrBadRequest)
	}
	u, err := s.repo.FindByIdentity(ctx, identifier)
	if err != nil {
		s.metrics.RecordLogin(false)
		// Identical shape whether the identifier is unknown or the password
		// is wrong: the response must not reveal which check failed.
		return nil, fmt.Errorf("invalid user credentials: %w", domain.ErrInvalidCredentials)
	}
	if !password.Check(req.Password, u.PasswordHash) {
		s.metrics.RecordLogin(false)
		return nil, fmt.Errorf("invalid user credentials: %w", domain.ErrInvalidCredentials)
	}
	pair, err := s.IssuePair(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(true)
	return &LoginResult{User: u.Sanitized(), TokenPair: *pair}, nil
}

func (s *service) IssuePair(ctx context.Context, userID string) (*TokenPair, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	access, err := s.tokens.SignAccess(u.UserID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.SignRefresh(u.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRefreshToken(ctx, u.UserID, refresh); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) Rotate(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, fmt.Errorf("refresh token is required: %w", domain.ErrBadRequest)
	}
	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		s.metrics.RecordRotation(false)
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	u, err := s.repo.Get(ctx, claims.UserID)
	if err != nil {
		s.metrics.RecordRotation(false)
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if u.RefreshToken != presented {
		// Signature is fine, but the slot has moved on: this token was
		// superseded by a later rotation or cleared by logout.
		s.metrics.RecordRotation(false)
		return nil, fmt.Errorf("refresh token superseded: %w", domain.ErrStaleToken)
	}
	access, err := s.tokens.SignAccess(u.UserID)
	if err != nil {
		return nil, err
	}
	next, err := s.tokens.SignRefresh(u.UserID)
	if err != nil {
		return nil, err
	}
	// Conditional write: the swap succeeds only if the slot still holds the
	// presented value. A concurrent rotation that won the race surfaces here
	// as ErrStaleToken.
	if err := s.repo.RotateRefreshToken(ctx, u.UserID, presented, next); err != nil {
		s.metrics.RecordRotation(false)
		return nil, err
	}
	s.metrics.RecordRotation(true)
	return &TokenPair{AccessToken: access, RefreshToken: next}, nil
}

func (s *service) Logout(ctx context.Context, userID string) error {
	return s.repo.ClearRefreshToken(ctx, userID)
}
