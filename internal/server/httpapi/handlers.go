package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mzheleznov/profilehub/internal/common"
	"github.com/mzheleznov/profilehub/internal/server/models"
	"github.com/mzheleznov/profilehub/internal/server/services"
)

// --- wire types ---

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateProfileRequest struct {
	Username string `json:"username"`
}

type avatarUploadURLRequest struct {
	Ext         string `json:"ext"`
	ContentType string `json:"content_type"`
}

type confirmAvatarRequest struct {
	Key string `json:"key"`
}

type authResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type profileResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	AvatarKey string    `json:"avatar_key,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type avatarUploadURLResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- handlers ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, pair, err := s.identity.Register(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAuthResponse(user, pair))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, pair, err := s.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(user, pair))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := s.identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.identity.Logout(r.Context(), req.RefreshToken); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	view, err := s.profile.Get(r.Context(), requestUserID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(view))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := requestUserID(r)
	if err := s.profile.UpdateUsername(r.Context(), userID, req.Username); err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.profile.Get(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(view))
}

func (s *Server) handleAvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	var req avatarUploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key, url, err := s.profile.NewAvatarUploadURL(r.Context(), requestUserID(r), req.Ext, req.ContentType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, avatarUploadURLResponse{Key: key, UploadURL: url})
}

func (s *Server) handleConfirmAvatar(w http.ResponseWriter, r *http.Request) {
	var req confirmAvatarRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := s.profile.SetAvatar(r.Context(), requestUserID(r), req.Key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newProfileResponse(view))
}

// --- helpers ---

func newAuthResponse(user *models.User, pair *services.TokenPair) authResponse {
	return authResponse{
		UserID:       user.ID,
		Email:        user.Email,
		Username:     user.Username,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

func newProfileResponse(view *services.ProfileView) profileResponse {
	return profileResponse{
		UserID:    view.UserID,
		Email:     view.Email,
		Username:  view.Username,
		AvatarKey: view.AvatarKey,
		AvatarURL: view.AvatarURL,
		CreatedAt: view.CreatedAt,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrAuth),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	writeJSONError(w, status, err.Error())
}
