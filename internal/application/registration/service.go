package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cliptube/identity-api/internal/domain"
	"github.com/cliptube/identity-api/internal/metrics"
	"github.com/cliptube/identity-api/internal/pkg/id"
	"github.com/cliptube/identity-api/internal/pkg/password"
	"github.com/cliptube/identity-api/internal/pkg/validate"
	"golang.org/x/sync/errgroup"
)

const defaultCompensationTimeout = 10 * time.Second

// Upload is an inbound media file attached to a registration.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

type RegisterRequest struct {
	FullName string `validate:"required"`
	Email    string `validate:"required,email"`
	Username string `validate:"required,min=3,max=30"`
	Password string `validate:"required,min=8,max=72"`
	Avatar   *Upload // required
	Cover    *Upload // optional
}

// Service coordinates the registration workflow: two concurrent media
// uploads joined before a single persistence step. Whatever fails, the
// system ends consistent — either a persisted user references the uploaded
// objects, or every object uploaded during the attempt is deleted.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
}

type userStore interface {
	FindByIdentity(ctx context.Context, identifier string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type mediaStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (*domain.Artifact, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo                userStore
	media               mediaStore
	metrics             metrics.Collector
	compensationTimeout time.Duration
}

type ServiceDeps struct {
	UserRepo            userStore
	Media               mediaStore
	Metrics             metrics.Collector
	CompensationTimeout time.Duration
}

func NewService(deps ServiceDeps) Service {
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}
	timeout := deps.CompensationTimeout
	if timeout <= 0 {
		timeout = defaultCompensationTimeout
	}
	return &service{
		repo:                deps.UserRepo,
		media:               deps.Media,
		metrics:             m,
		compensationTimeout: timeout,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		s.metrics.RecordRegistration("bad_request")
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	// Pre-check only: not atomic with Create. Two concurrent registrations
	// with the same identity can both pass here; the transactional guards in
	// Create are the real enforcement point.
	if _, err := s.repo.FindByIdentity(ctx, req.Email); err == nil {
		s.metrics.RecordRegistration("conflict")
		return nil, fmt.Errorf("user with email or username already exists: %w", domain.ErrConflict)
	}
	if _, err := s.repo.FindByIdentity(ctx, req.Username); err == nil {
		s.metrics.RecordRegistration("conflict")
		return nil, fmt.Errorf("user with email or username already exists: %w", domain.ErrConflict)
	}

	if req.Avatar == nil {
		s.metrics.RecordRegistration("bad_request")
		return nil, fmt.Errorf("avatar is required: %w", domain.ErrBadRequest)
	}

	// Fan-out: avatar and cover upload run concurrently and are joined
	// before persistence. Client aborts cancel gctx and surface as upload
	// errors, which funnels them into the same compensation path below.
	var avatarArt, coverArt *domain.Artifact
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.media.Upload(gctx, objectKey("avatars", req.Avatar.Filename), req.Avatar.Reader, req.Avatar.ContentType)
		if err != nil {
			return fmt.Errorf("avatar upload: %w", err)
		}
		avatarArt = a
		return nil
	})
	if req.Cover != nil {
		g.Go(func() error {
			a, err := s.media.Upload(gctx, objectKey("covers", req.Cover.Filename), req.Cover.Reader, req.Cover.ContentType)
			if err != nil {
				return fmt.Errorf("cover upload: %w", err)
			}
			coverArt = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("registration upload failed", "err", err)
		s.compensate(ctx, avatarArt, coverArt)
		s.metrics.RecordRegistration("upload_failed")
		return nil, fmt.Errorf("uploading media: %w", domain.ErrUploadFailed)
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		s.compensate(ctx, avatarArt, coverArt)
		s.metrics.RecordRegistration("persist_failed")
		return nil, fmt.Errorf("hashing password: %w", domain.ErrRegistrationFailed)
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     strings.ToLower(req.Username),
		Email:        strings.ToLower(req.Email),
		FullName:     req.FullName,
		PasswordHash: hash,
		AvatarKey:    avatarArt.Key,
		AvatarURL:    avatarArt.URL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if coverArt != nil {
		u.CoverKey = coverArt.Key
		u.CoverURL = coverArt.URL
	}

	if err := s.repo.Create(ctx, u); err != nil {
		slog.Error("registration persistence failed", "err", err)
		s.compensate(ctx, avatarArt, coverArt)
		if errors.Is(err, domain.ErrConflict) {
			// Lost the uniqueness race past the pre-check.
			s.metrics.RecordRegistration("conflict")
			return nil, err
		}
		s.metrics.RecordRegistration("persist_failed")
		return nil, fmt.Errorf("persisting user: %w", domain.ErrRegistrationFailed)
	}

	s.metrics.RecordRegistration("success")
	return u.Sanitized(), nil
}

// compensate deletes every artifact the attempt uploaded. It runs on a
// context detached from request cancellation with a bounded deadline: a
// client abort must still clean up, but the response never blocks on
// deletions indefinitely. Deletion errors are logged, never propagated.
func (s *service) compensate(ctx context.Context, artifacts ...*domain.Artifact) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	var wg sync.WaitGroup
	n := 0
	for _, a := range artifacts {
		if a == nil {
			continue
		}
		n++
		wg.Add(1)
		go func(a *domain.Artifact) {
			defer wg.Done()
			if err := s.media.Delete(dctx, a.Key); err != nil {
				slog.Error("failed to delete uploaded artifact during compensation", "key", a.Key, "err", err)
			}
		}(a)
	}
	wg.Wait()
	if n > 0 {
		s.metrics.RecordCompensatedArtifacts(n)
	}
}

// objectKey builds a storage key under prefix, keeping only a safe
// lowercase extension from the client-supplied filename.
func objectKey(prefix, filename string) string {
	key := prefix + "/" + id.New()
	switch ext := strings.ToLower(path.Ext(filename)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		key += ext
	}
	return key
}
