package site

import (
	"context"
	"errors"
	"log"
	"net/http"

	"inkwell/constants"
	"inkwell/database"
)

type contextKey string

const authenticatedUserKey = contextKey("authenticated_user")

func getSignedInUserOrNil(r *http.Request) *database.User {
	user, _ := r.Context().Value(authenticatedUserKey).(*database.User)
	return user
}

func viewerFor(r *http.Request) database.Viewer {
	viewer := database.Viewer{Key: r.URL.Query().Get("key")}
	if user := getSignedInUserOrNil(r); user != nil {
		viewer.UserID = user.ID
	}
	return viewer
}

func hasAuthCookie(r *http.Request) bool {
	cookie, err := r.Cookie(constants.AUTH_COOKIE_NAME)
	return err == nil && cookie.Value != ""
}

// TryPutUserInContextMiddleware resolves the auth cookie to a user for the
// rest of the request. Requests without a valid cookie continue anonymously.
func (s *Server) TryPutUserInContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(constants.AUTH_COOKIE_NAME)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := s.auth.Verify(cookie.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.store.FindUserByID(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				log.Printf("Failed to load signed in user %d: %v", userID, err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), authenticatedUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) AuthProtectedMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasAuthCookie(r) {
			respondError(w, http.StatusUnauthorized, "No token found")
			return
		}
		if getSignedInUserOrNil(r) == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.AUTH_COOKIE_NAME,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.AUTH_COOKIE_NAME,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
