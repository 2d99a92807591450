package api

import (
	"net/http"

	"github.com/friendhotline/hotline/internal/api/middleware"
	"github.com/friendhotline/hotline/internal/database"
	"github.com/friendhotline/hotline/internal/database/models"
)

// credentialsRequest is the JSON request body for setup and login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSetup creates the first organizer account. It only works while no
// account exists, so an exposed instance can't be taken over after setup.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	count, err := s.adminUsers.Count(r.Context())
	if err != nil {
		s.logger.Error("setup: failed to count users", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if count > 0 {
		writeError(w, http.StatusForbidden, "setup has already been completed")
		return
	}

	var req credentialsRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	if msg := validateRequiredStringLen("username", req.Username, maxUsernameLen); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if msg := validateStringLen("password", req.Password, maxPasswordLen); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := database.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("setup: failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &models.AdminUser{
		Username:     req.Username,
		PasswordHash: hash,
	}
	if err := s.adminUsers.Create(r.Context(), user); err != nil {
		s.logger.Error("setup: failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("organizer account created", "username", user.Username)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"username": user.Username,
	})
}

// handleLogin verifies credentials and establishes a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	user, err := s.adminUsers.GetByUsername(r.Context(), req.Username)
	if err != nil {
		s.logger.Error("login: failed to query user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Same response whether the username or the password was wrong.
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	match, err := database.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("login: failed to check password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !match {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	sess, err := s.sessions.Create(user.ID, user.Username)
	if err != nil {
		s.logger.Error("login: failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	middleware.SetSessionCookie(w, sess, r.TLS != nil)

	s.logger.Info("organizer logged in", "username", user.Username)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"csrf_token": sess.CSRFToken,
	})
}

// handleLogout tears down the current session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := middleware.SessionIDFromContext(r.Context()); id != "" {
		s.sessions.Delete(id)
	}
	middleware.ClearSessionCookie(w, r.TLS != nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the authenticated organizer.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.AdminUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       user.ID,
		"username": user.Username,
	})
}
