package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/ender-accounts/internal/api/render"
	"github.com/isdelr/ender-accounts/internal/apperrors"
	"github.com/isdelr/ender-accounts/internal/auth"
	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/isdelr/ender-accounts/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service      services.UserServiceProvider
	tokenTTL     time.Duration
	secureCookie bool
}

// NewUserHandler creates a new UserHandler. tokenTTL sets the login cookie
// lifetime; secureCookie marks it Secure.
func NewUserHandler(service services.UserServiceProvider, tokenTTL time.Duration, secureCookie bool) *UserHandler {
	return &UserHandler{service: service, tokenTTL: tokenTTL, secureCookie: secureCookie}
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	if _, err := h.service.Register(r.Context(), req); err != nil {
		log.Warn().Err(err).Str("username", req.Username).Msg("Failed to register user")
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, models.APIResponse{Message: "Registration successful"})
}

// Login handles user authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		log.Warn().Str("username", req.Username).Msg("Failed authentication attempt")
		render.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Expires:  time.Now().Add(h.tokenTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	render.JSON(w, http.StatusOK, models.APIResponse{Message: "Login Successfully", Token: token})
}

// GetMe returns the authenticated user's profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrFail(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), principal)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, profile)
}

// List returns all users. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrFail(w, r)
	if !ok {
		return
	}

	users, err := h.service.ListUsers(r.Context(), principal)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	if len(users) == 0 {
		render.JSON(w, http.StatusOK, models.APIResponse{Message: "There are no users found"})
		return
	}
	render.JSON(w, http.StatusOK, users)
}

// Update handles updating a user's profile information.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrFail(w, r)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	if _, err := h.service.UpdateUser(r.Context(), principal, req); err != nil {
		log.Warn().Err(err).Str("target", req.Username).Str("by", principal.Username).Msg("Failed to update user")
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, models.APIResponse{Message: "Update successful"})
}

// Delete handles the permanent deletion of the caller's own account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrFail(w, r)
	if !ok {
		return
	}

	var req models.DeleteAccountRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), principal, req); err != nil {
		log.Warn().Err(err).Str("target", req.Username).Str("by", principal.Username).Msg("Failed to delete user")
		render.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: auth.TokenCookieName, Value: "", MaxAge: -1, Path: "/"})
	w.WriteHeader(http.StatusNoContent)
}

func principalOrFail(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Could not retrieve principal from context")
		render.Error(w, r, apperrors.Unauthenticated())
		return auth.Principal{}, false
	}
	return principal, true
}
