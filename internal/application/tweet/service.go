package tweet

import (
	"context"
	"fmt"
	"time"

	"github.com/cliptube/identity-api/internal/domain"
	"github.com/cliptube/identity-api/internal/pkg/id"
	"github.com/cliptube/identity-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, ownerID string, req domain.CreateTweetRequest) (*domain.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error)
	Update(ctx context.Context, ownerID, tweetID string, req domain.UpdateTweetRequest) (*domain.Tweet, error)
	Delete(ctx context.Context, ownerID, tweetID string) error
}

type tweetStore interface {
	Put(ctx context.Context, t *domain.Tweet) error
	Get(ctx context.Context, tweetID string) (*domain.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error)
	UpdateContent(ctx context.Context, tweetID, content string) error
	Delete(ctx context.Context, tweetID string) error
}

type service struct {
	repo tweetStore
}

type ServiceDeps struct {
	TweetRepo tweetStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.TweetRepo}
}

func (s *service) Create(ctx context.Context, ownerID string, req domain.CreateTweetRequest) (*domain.Tweet, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	t := &domain.Tweet{
		TweetID:   id.New(),
		OwnerID:   ownerID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *service) Update(ctx context.Context, ownerID, tweetID string, req domain.UpdateTweetRequest) (*domain.Tweet, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	t, err := s.ownedTweet(ctx, ownerID, tweetID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContent(ctx, tweetID, req.Content); err != nil {
		return nil, err
	}
	t.Content = req.Content
	t.UpdatedAt = time.Now().UTC()
	return t, nil
}

func (s *service) Delete(ctx context.Context, ownerID, tweetID string) error {
	if _, err := s.ownedTweet(ctx, ownerID, tweetID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, tweetID)
}

// ownedTweet loads a tweet and rejects callers that do not own it. Ownership
// failures surface as not-found so the endpoint does not leak which IDs exist.
func (s *service) ownedTweet(ctx context.Context, ownerID, tweetID string) (*domain.Tweet, error) {
	t, err := s.repo.Get(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, fmt.Errorf("tweet not found: %w", domain.ErrNotFound)
	}
	return t, nil
}
