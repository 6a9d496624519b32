package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cliptube/identity-api/internal/application/tweet"
	"github.com/cliptube/identity-api/internal/domain"
	"github.com/cliptube/identity-api/internal/transport/http/middleware"
)

// TweetHandler handles tweet CRUD endpoints.
type TweetHandler struct {
	svc tweet.Service
}

func NewTweetHandler(svc tweet.Service) *TweetHandler { return &TweetHandler{svc: svc} }

func (h *TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateTweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.Create(r.Context(), u.UserID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TweetEnvelope{Tweet: t, Message: "tweet created"})
}

func (h *TweetHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ts, err := h.svc.ListByOwner(r.Context(), u.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ts == nil {
		ts = []domain.Tweet{}
	}
	writeJSON(w, http.StatusOK, TweetListEnvelope{Tweets: ts})
}

func (h *TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateTweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.Update(r.Context(), u.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TweetEnvelope{Tweet: t, Message: "tweet updated"})
}

func (h *TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), u.UserID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "tweet deleted"})
}
