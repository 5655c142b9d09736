package site

import (
	"errors"
	"net/http"

	"inkwell/auth"
	"inkwell/constants"
	"inkwell/database"
)

type userResponse struct {
	User UserView `json:"user"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req LoginRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.store.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		respondInternal(w, r, "Login failed", err)
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.auth.Issue(user.ID, user.Email)
	if err != nil {
		respondInternal(w, r, "Login failed", err)
		return
	}

	s.setAuthCookie(w, token)
	respondJSON(w, http.StatusOK, userResponse{User: toUserView(user)})
}

// CheckAuth reports who the auth cookie belongs to. It verifies the token
// itself so it can tell the failure modes apart.
func (s *Server) CheckAuth(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(constants.AUTH_COOKIE_NAME)
	if err != nil || cookie.Value == "" {
		respondError(w, http.StatusUnauthorized, "No token found")
		return
	}

	userID, err := s.auth.Verify(cookie.Value)
	if err != nil {
		s.clearAuthCookie(w)
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	user, err := s.store.FindUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.clearAuthCookie(w)
			respondError(w, http.StatusUnauthorized, "User not found")
			return
		}
		respondInternal(w, r, "Failed to check authentication", err)
		return
	}

	respondJSON(w, http.StatusOK, userResponse{User: toUserView(user)})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
