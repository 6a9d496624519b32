package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cliptube/identity-api/internal/application/registration"
	userapp "github.com/cliptube/identity-api/internal/application/user"
	"github.com/cliptube/identity-api/internal/domain"
	"github.com/cliptube/identity-api/internal/transport/http/middleware"
)

type mockRegSvc struct{ mock.Mock }

func (m *mockRegSvc) Register(ctx context.Context, req registration.RegisterRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserSvc) UpdateAccount(ctx context.Context, userID string, req domain.UpdateAccountRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserSvc) UpdateAvatar(ctx context.Context, userID string, upd userapp.MediaUpdate) (*domain.User, error) {
	args := m.Called(ctx, userID, upd)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserSvc) UpdateCover(ctx context.Context, userID string, upd userapp.MediaUpdate) (*domain.User, error) {
	args := m.Called(ctx, userID, upd)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserSvc) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}

// registerForm builds a multipart body with the standard registration
// fields plus the given file parts.
func registerForm(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"fullname": "Carol Jones",
		"email":    "carol@example.com",
		"username": "carol",
		"password": "secret-password",
	} {
		require.NoError(t, mw.WriteField(field, value))
	}
	for field, filename := range files {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRegister(t *testing.T) {
	reg := new(mockRegSvc)
	h := NewUserHandler(reg, new(mockUserSvc))

	reg.On("Register", mock.Anything, mock.MatchedBy(func(req registration.RegisterRequest) bool {
		if req.Username != "carol" || req.Email != "carol@example.com" || req.Avatar == nil {
			return false
		}
		data, err := io.ReadAll(req.Avatar.Reader)
		return err == nil && string(data) == "fake image bytes" && req.Cover == nil
	})).Return(&domain.User{UserID: "u1", Username: "carol"}, nil).Once()

	body, contentType := registerForm(t, map[string]string{"avatar": "me.png"})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var env UserEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotNil(t, env.User)
	assert.Equal(t, "carol", env.User.Username)
	reg.AssertExpectations(t)
}

func TestRegister_WithCover(t *testing.T) {
	reg := new(mockRegSvc)
	h := NewUserHandler(reg, new(mockUserSvc))

	reg.On("Register", mock.Anything, mock.MatchedBy(func(req registration.RegisterRequest) bool {
		return req.Avatar != nil && req.Cover != nil && req.Cover.Filename == "beach.jpg"
	})).Return(&domain.User{UserID: "u1"}, nil).Once()

	body, contentType := registerForm(t, map[string]string{"avatar": "me.png", "coverImage": "beach.jpg"})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	reg.AssertExpectations(t)
}

func TestRegister_MissingAvatar(t *testing.T) {
	reg := new(mockRegSvc)
	h := NewUserHandler(reg, new(mockUserSvc))

	body, contentType := registerForm(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	reg.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister_Conflict(t *testing.T) {
	reg := new(mockRegSvc)
	h := NewUserHandler(reg, new(mockUserSvc))

	reg.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict).Once()

	body, contentType := registerForm(t, map[string]string{"avatar": "me.png"})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegister_NotMultipart(t *testing.T) {
	h := NewUserHandler(new(mockRegSvc), new(mockUserSvc))

	req := httptest.NewRequest(http.MethodPost, "/v1/users/register", strings.NewReader(`{"username":"carol"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Register(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMe(t *testing.T) {
	h := NewUserHandler(new(mockRegSvc), new(mockUserSvc))

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), &domain.User{UserID: "u1", Username: "carol"}))
	rr := httptest.NewRecorder()
	h.Me(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var env UserEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "carol", env.User.Username)
}

func TestMe_Unauthenticated(t *testing.T) {
	h := NewUserHandler(new(mockRegSvc), new(mockUserSvc))

	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateAccount(t *testing.T) {
	svc := new(mockUserSvc)
	h := NewUserHandler(new(mockRegSvc), svc)

	fullname := "Carol J."
	svc.On("UpdateAccount", mock.Anything, "u1", domain.UpdateAccountRequest{FullName: &fullname}).
		Return(&domain.User{UserID: "u1", FullName: "Carol J."}, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/v1/users/me", strings.NewReader(`{"fullname":"Carol J."}`))
	req = req.WithContext(middleware.WithUser(req.Context(), &domain.User{UserID: "u1"}))
	rr := httptest.NewRecorder()
	h.UpdateAccount(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestUpdateAvatar(t *testing.T) {
	svc := new(mockUserSvc)
	h := NewUserHandler(new(mockRegSvc), svc)

	svc.On("UpdateAvatar", mock.Anything, "u1", mock.MatchedBy(func(upd userapp.MediaUpdate) bool {
		return upd.Filename == "new.png"
	})).Return(&domain.User{UserID: "u1"}, nil).Once()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "new.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("img"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/v1/users/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(middleware.WithUser(req.Context(), &domain.User{UserID: "u1"}))
	rr := httptest.NewRecorder()
	h.UpdateAvatar(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestChangePassword(t *testing.T) {
	svc := new(mockUserSvc)
	h := NewUserHandler(new(mockRegSvc), svc)

	svc.On("ChangePassword", mock.Anything, "u1", "old-secret", "new-secret-123").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/v1/users/me/password",
		strings.NewReader(`{"old_password":"old-secret","new_password":"new-secret-123"}`))
	req = req.WithContext(middleware.WithUser(req.Context(), &domain.User{UserID: "u1"}))
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc := new(mockUserSvc)
	h := NewUserHandler(new(mockRegSvc), svc)

	svc.On("ChangePassword", mock.Anything, "u1", "guess", "new-secret-123").
		Return(domain.ErrInvalidCredentials).Once()

	req := httptest.NewRequest(http.MethodPatch, "/v1/users/me/password",
		strings.NewReader(`{"old_password":"guess","new_password":"new-secret-123"}`))
	req = req.WithContext(middleware.WithUser(req.Context(), &domain.User{UserID: "u1"}))
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
