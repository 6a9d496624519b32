package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cliptube/identity-api/internal/application/session"
	"github.com/cliptube/identity-api/internal/config"
	"github.com/cliptube/identity-api/internal/transport/http/middleware"
)

// RefreshTokenCookie names the cookie holding the current refresh token.
const RefreshTokenCookie = "refreshToken"

// SessionHandler handles login, refresh and logout endpoints. Tokens travel
// both as httpOnly cookies and in the JSON body so browser and non-browser
// clients are served by the same endpoints.
type SessionHandler struct {
	svc session.Service
	cfg *config.Config
}

func NewSessionHandler(svc session.Service, cfg *config.Config) *SessionHandler {
	return &SessionHandler{svc: svc, cfg: cfg}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.setTokenCookies(w, result.AccessToken, result.RefreshToken)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User,
		Message:      "logged in",
	})
}

// Refresh rotates the refresh token. The incoming token is read from the
// refreshToken cookie first, then from the request body.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	pair, err := h.svc.Rotate(r.Context(), presented)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.setTokenCookies(w, pair.AccessToken, pair.RefreshToken)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Message:      "tokens refreshed",
	})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), u.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	h.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func (h *SessionHandler) setTokenCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, h.tokenCookie(middleware.AccessTokenCookie, access, h.cfg.AccessTokenTTL))
	http.SetCookie(w, h.tokenCookie(RefreshTokenCookie, refresh, h.cfg.RefreshTokenTTL))
}

func (h *SessionHandler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.tokenCookie(middleware.AccessTokenCookie, "", -time.Second))
	http.SetCookie(w, h.tokenCookie(RefreshTokenCookie, "", -time.Second))
}

func (h *SessionHandler) tokenCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
}
