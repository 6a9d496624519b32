package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cliptube/identity-api/internal/application/registration"
	userapp "github.com/cliptube/identity-api/internal/application/user"
	"github.com/cliptube/identity-api/internal/domain"
	"github.com/cliptube/identity-api/internal/pkg/validate"
	"github.com/cliptube/identity-api/internal/transport/http/middleware"
)

// maxMultipartMemory bounds the in-memory portion of a multipart parse;
// larger files spill to temp storage.
const maxMultipartMemory = 32 << 20

// UserHandler handles registration and profile endpoints.
type UserHandler struct {
	reg registration.Service
	svc userapp.Service
}

func NewUserHandler(reg registration.Service, svc userapp.Service) *UserHandler {
	return &UserHandler{reg: reg, svc: svc}
}

// Register accepts a multipart form with fullname, email, username, password,
// a required avatar file and an optional coverImage file.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	req := registration.RegisterRequest{
		FullName: r.FormValue("fullname"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}

	avatar, closeAvatar, err := formUpload(r, "avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer closeAvatar()
	req.Avatar = avatar

	if cover, closeCover, err := formUpload(r, "coverImage"); err == nil {
		defer closeCover()
		req.Cover = cover
	}

	u, err := h.reg.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserEnvelope{User: u, Message: "user registered"})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.svc.UpdateAccount(r.Context(), u.UserID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: updated, Message: "account updated"})
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.svc.UpdateAvatar)
}

func (h *UserHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.svc.UpdateCover)
}

func (h *UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, apply func(ctx context.Context, userID string, upd userapp.MediaUpdate) (*domain.User, error)) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, field+" file is required")
		return
	}
	defer file.Close()

	updated, err := apply(r.Context(), u.UserID, userapp.MediaUpdate{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: updated, Message: "image updated"})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ChangePassword(r.Context(), u.UserID, req.OldPassword, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}

func formUpload(r *http.Request, field string) (*registration.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	return &registration.Upload{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, func() { _ = file.Close() }, nil
}
