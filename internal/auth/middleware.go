package auth

import (
	"net/http"
	"time"
)

// CookieName is the session cookie the login handler sets and the
// middleware reads.
const CookieName = "token"

// SessionCookie builds the HttpOnly session cookie for a signed token.
// HttpOnly keeps JavaScript away from it; SameSite=Lax stops cross-site
// POSTs from riding the session.
func SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(SessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie builds an expired cookie that removes the session.
func ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// RequireAuth protects API routes: requests without a valid session cookie
// get 401 and the chain stops.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := validateCookie(r, tokens); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid session required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePage protects HTML routes: browsers without a valid session are
// redirected to the login page instead of seeing a bare 401.
func RequirePage(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := validateCookie(r, tokens); err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validateCookie reads the session cookie and verifies the token inside it.
func validateCookie(r *http.Request, tokens *TokenService) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return err
	}
	return tokens.Validate(cookie.Value)
}
