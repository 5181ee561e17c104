package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/wishlist/internal/auth"
)

// AuthHandler exchanges the access code for a session cookie.
//
// There is no user table: the whole app is protected by one code. A
// correct code gets a signed JWT in an HttpOnly cookie; everything else
// gets a 401 with a deliberately vague message.
type AuthHandler struct {
	gate   *auth.AccessGate
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(gate *auth.AccessGate, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, tokens: tokens, logger: logger}
}

// HandleLogin verifies the submitted access code and starts a session.
//
// HTTP: POST /api/login  body: {"code": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	if err := h.gate.Verify(req.Code); err != nil {
		if !errors.Is(err, auth.ErrInvalidCode) {
			h.logger.Error("access code verification failed", slog.String("error", err.Error()))
		}
		// Same response for "wrong code" and internal comparison errors —
		// nothing here should help someone probing the gate.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "invalid access code",
		})
		return
	}

	token, err := h.tokens.Generate()
	if err != nil {
		h.logger.Error("issuing session token failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	http.SetCookie(w, auth.SessionCookie(token))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearSessionCookie())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
