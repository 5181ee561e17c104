package handler_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/wishlist/internal/auth"
	"github.com/sakif/wishlist/internal/handler"
)

func newAuthRouter(t *testing.T) *chi.Mux {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	gate, err := auth.NewAccessGate("open-sesame")
	if err != nil {
		t.Fatalf("creating access gate: %v", err)
	}
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}

	h := handler.NewAuthHandler(gate, tokens, logger)

	r := chi.NewRouter()
	r.Post("/api/login", h.HandleLogin)
	r.Post("/api/logout", h.HandleLogout)

	// A protected probe route, to exercise the middleware with real cookies.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/api/protected", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	t.Run("correct code sets session cookie", func(t *testing.T) {
		r := newAuthRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"code":"open-sesame"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		cookies := rr.Result().Cookies()
		if assert.Len(t, cookies, 1) {
			assert.Equal(t, auth.CookieName, cookies[0].Name)
			assert.NotEmpty(t, cookies[0].Value)
			assert.True(t, cookies[0].HttpOnly)
		}
	})

	t.Run("wrong code gets 401 and no cookie", func(t *testing.T) {
		r := newAuthRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"code":"guess"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		r := newAuthRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"code":`))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter(t)

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("garbage cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "not-a-token"})
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("cookie from a real login", func(t *testing.T) {
		login := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"code":"open-sesame"}`))
		login.Header.Set("Content-Type", "application/json")
		loginRR := httptest.NewRecorder()
		r.ServeHTTP(loginRR, login)
		assert.Equal(t, http.StatusOK, loginRR.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		for _, c := range loginRR.Result().Cookies() {
			req.AddCookie(c)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
