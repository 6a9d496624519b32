package tweet

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cliptube/identity-api/internal/domain"
)

type mockTweetStore struct{ mock.Mock }

func (m *mockTweetStore) Put(ctx context.Context, t *domain.Tweet) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTweetStore) Get(ctx context.Context, tweetID string) (*domain.Tweet, error) {
	args := m.Called(ctx, tweetID)
	t, _ := args.Get(0).(*domain.Tweet)
	return t, args.Error(1)
}

func (m *mockTweetStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error) {
	args := m.Called(ctx, ownerID)
	ts, _ := args.Get(0).([]domain.Tweet)
	return ts, args.Error(1)
}

func (m *mockTweetStore) UpdateContent(ctx context.Context, tweetID, content string) error {
	args := m.Called(ctx, tweetID, content)
	return args.Error(0)
}

func (m *mockTweetStore) Delete(ctx context.Context, tweetID string) error {
	args := m.Called(ctx, tweetID)
	return args.Error(0)
}

func newTestService() (Service, *mockTweetStore) {
	repo := new(mockTweetStore)
	return NewService(ServiceDeps{TweetRepo: repo}), repo
}

func TestCreate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	repo.On("Put", ctx, mock.MatchedBy(func(tw *domain.Tweet) bool {
		return tw.TweetID != "" && tw.OwnerID == "user-1" && tw.Content == "hello"
	})).Return(nil).Once()

	tw, err := svc.Create(ctx, "user-1", domain.CreateTweetRequest{Content: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, tw.TweetID)
	assert.Equal(t, "user-1", tw.OwnerID)
	assert.False(t, tw.CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestCreate_Validation(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Create(context.Background(), "user-1", domain.CreateTweetRequest{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = svc.Create(context.Background(), "user-1", domain.CreateTweetRequest{
		Content: strings.Repeat("x", 281),
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestUpdate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	repo.On("Get", ctx, "tweet-1").
		Return(&domain.Tweet{TweetID: "tweet-1", OwnerID: "user-1", Content: "old"}, nil).Once()
	repo.On("UpdateContent", ctx, "tweet-1", "new text").Return(nil).Once()

	tw, err := svc.Update(ctx, "user-1", "tweet-1", domain.UpdateTweetRequest{Content: "new text"})
	require.NoError(t, err)
	assert.Equal(t, "new text", tw.Content)
	repo.AssertExpectations(t)
}

func TestUpdate_NotOwner(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	repo.On("Get", ctx, "tweet-1").
		Return(&domain.Tweet{TweetID: "tweet-1", OwnerID: "someone-else"}, nil).Once()

	_, err := svc.Update(ctx, "user-1", "tweet-1", domain.UpdateTweetRequest{Content: "new text"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	repo.On("Get", ctx, "tweet-1").
		Return(&domain.Tweet{TweetID: "tweet-1", OwnerID: "user-1"}, nil).Once()
	repo.On("Delete", ctx, "tweet-1").Return(nil).Once()

	require.NoError(t, svc.Delete(ctx, "user-1", "tweet-1"))
	repo.AssertExpectations(t)
}

func TestDelete_NotOwner(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	repo.On("Get", ctx, "tweet-1").
		Return(&domain.Tweet{TweetID: "tweet-1", OwnerID: "someone-else"}, nil).Once()

	err := svc.Delete(ctx, "user-1", "tweet-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_Missing(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	repo.On("Get", ctx, "nope").Return(nil, domain.ErrNotFound).Once()

	assert.ErrorIs(t, svc.Delete(ctx, "user-1", "nope"), domain.ErrNotFound)
}

func TestListByOwner(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	repo.On("ListByOwner", ctx, "user-1").
		Return([]domain.Tweet{{TweetID: "b"}, {TweetID: "a"}}, nil).Once()

	ts, err := svc.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, ts, 2)
}

func TestListByOwner_StoreError(t *testing.T) {
	svc, repo := newTestService()

	repo.On("ListByOwner", mock.Anything, "user-1").Return(nil, errors.New("query failed")).Once()

	_, err := svc.ListByOwner(context.Background(), "user-1")
	assert.Error(t, err)
}
