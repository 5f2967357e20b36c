package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/emna-bh/EchecGame/internal/auth"
	"github.com/emna-bh/EchecGame/pkg/chessdto"
	"go.uber.org/zap"
)

type credentialFunc func(ctx context.Context, username, password string) (*auth.Session, error)

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	h.credentials(w, r, "register", h.auth.Register)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	h.credentials(w, r, "login", h.auth.Login)
}

func (h *handlers) credentials(w http.ResponseWriter, r *http.Request, op string, fn credentialFunc) {
	var req chessdto.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", h.msgs.Text("http.error.bad_request", nil))
		return
	}
	sess, err := fn(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, chessdto.AuthResponse{
			UserID:   sess.UserID,
			Username: sess.Username,
			Token:    sess.Token,
		})
	case errors.Is(err, auth.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "missing_credentials", h.msgs.Text("http.error.missing_credentials", nil))
	case errors.Is(err, auth.ErrUsernameTooLong):
		writeError(w, http.StatusBadRequest, "username_too_long",
			h.msgs.Text("http.error.username_too_long", map[string]int{"Max": auth.MaxUsernameLen}))
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, "password_too_long",
			h.msgs.Text("http.error.password_too_long", map[string]int{"Max": auth.MaxPasswordBytes}))
	case errors.Is(err, auth.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken", h.msgs.Text("http.error.username_taken", nil))
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", h.msgs.Text("http.error.invalid_credentials", nil))
	default:
		h.logger.Error("auth_failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", h.msgs.Text("http.error.internal", nil))
	}
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenKey{}).(string)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		h.logger.Error("auth_failed", zap.String("op", "logout"), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", h.msgs.Text("http.error.internal", nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) onlineUsers(w http.ResponseWriter, _ *http.Request) {
	online := h.presence.List()
	out := make([]chessdto.OnlineUser, len(online))
	for i, u := range online {
		out[i] = chessdto.OnlineUser{UserID: u.UserID, Username: u.Username}
	}
	writeJSON(w, http.StatusOK, out)
}
