package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type CredentialLookup interface {
	GetByEmail(ctx context.Context, email string) (model.Account, error)
}

// SessionHandler exchanges email and password for an HS256 access token.
type SessionHandler struct {
	accounts CredentialLookup
	secret   string
	ttl      time.Duration
	clock    clock.Clock
	logger   *slog.Logger
}

func NewSessionHandler(accounts CredentialLookup, secret string, ttl time.Duration, clk clock.Clock, logger *slog.Logger) *SessionHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionHandler{accounts: accounts, secret: secret, ttl: ttl, clock: clk, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	AccountID   string `json:"account_id"`
	Role        string `json:"role"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	if h.secret == "" {
		http.Error(w, "login not enabled", http.StatusNotFound)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	acct, err := h.accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error("lookup account failed", "err", err)
		http.Error(w, "failed to lookup account", http.StatusInternalServerError)
		return
	}
	if err := auth.VerifyPassword(acct.PasswordHash, req.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !acct.IsActive {
		http.Error(w, "account inactive", http.StatusForbidden)
		return
	}

	now := h.clock.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:  acct.ID,
		Role: string(acct.Role),
		Iat:  now.Unix(),
		Exp:  now.Add(h.ttl).Unix(),
	}, h.secret)
	if err != nil {
		h.logger.Error("sign token failed", "err", err)
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.ttl / time.Second),
		AccountID:   acct.ID,
		Role:        string(acct.Role),
	})
}
