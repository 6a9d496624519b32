package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/cliptube/identity-api/internal/domain"
	"github.com/cliptube/identity-api/internal/pkg/id"
	"github.com/cliptube/identity-api/internal/pkg/password"
	"github.com/cliptube/identity-api/internal/pkg/validate"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldEmail        = "email"
	fieldFullName     = "full_name"
	fieldPasswordHash = "password_hash"
	fieldAvatarKey    = "avatar_key"
	fieldAvatarURL    = "avatar_url"
	fieldCoverKey     = "cover_key"
	fieldCoverURL     = "cover_url"
)

// MediaUpdate is an inbound replacement image for an avatar or cover patch.
type MediaUpdate struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateAccount(ctx context.Context, userID string, req domain.UpdateAccountRequest) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID string, upd MediaUpdate) (*domain.User, error)
	UpdateCover(ctx context.Context, userID string, upd MediaUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetProjection(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type mediaStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (*domain.Artifact, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo  userStore
	media mediaStore
}

type ServiceDeps struct {
	UserRepo userStore
	Media    mediaStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo, media: deps.Media}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetProjection(ctx, userID)
}

func (s *service) UpdateAccount(ctx context.Context, userID string, req domain.UpdateAccountRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates[fieldFullName] = *req.FullName
	}
	if req.Email != nil {
		updates[fieldEmail] = strings.ToLower(*req.Email)
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.GetProjection(ctx, userID)
}

func (s *service) UpdateAvatar(ctx context.Context, userID string, upd MediaUpdate) (*domain.User, error) {
	return s.replaceImage(ctx, userID, upd, "avatars",
		func(u *domain.User) string { return u.AvatarKey },
		fieldAvatarKey, fieldAvatarURL)
}

func (s *service) UpdateCover(ctx context.Context, userID string, upd MediaUpdate) (*domain.User, error) {
	return s.replaceImage(ctx, userID, upd, "covers",
		func(u *domain.User) string { return u.CoverKey },
		fieldCoverKey, fieldCoverURL)
}

// replaceImage uploads the new image, persists the reference, then deletes
// the previous object best-effort. The old object is only removed after the
// record points at the new one, so a failure mid-way never leaves the user
// referencing a missing asset.
func (s *service) replaceImage(ctx context.Context, userID string, upd MediaUpdate, prefix string, currentKey func(*domain.User) string, keyField, urlField string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	art, err := s.media.Upload(ctx, objectKey(prefix, upd.Filename), upd.Reader, upd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("uploading image: %w", domain.ErrUploadFailed)
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{
		keyField: art.Key,
		urlField: art.URL,
	}); err != nil {
		// The record still references the old object; remove the new upload.
		if derr := s.media.Delete(ctx, art.Key); derr != nil {
			slog.Error("failed to delete replacement image after update failure", "key", art.Key, "err", derr)
		}
		return nil, err
	}
	if old := currentKey(u); old != "" {
		if derr := s.media.Delete(ctx, old); derr != nil {
			slog.Warn("failed to delete previous image", "key", old, "err", derr)
		}
	}
	return s.repo.GetProjection(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Check(oldPassword, u.PasswordHash) {
		return fmt.Errorf("invalid user credentials: %w", domain.ErrInvalidCredentials)
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: hash})
}

func objectKey(prefix, filename string) string {
	key := prefix + "/" + id.New()
	switch ext := strings.ToLower(path.Ext(filename)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		key += ext
	}
	return key
}
