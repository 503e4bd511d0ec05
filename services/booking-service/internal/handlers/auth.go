package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// Principal is the authenticated caller. Handlers pass its fields to the core
// explicitly.
type Principal struct {
	AccountID string
	Role      model.Role
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

type AccountLookup interface {
	GetByID(ctx context.Context, id string) (model.Account, error)
}

// RequireAuth verifies the bearer token and loads the account it names. The
// stored role wins over the token claim so demotions apply immediately.
func RequireAuth(next http.Handler, verifier TokenVerifier, accounts AccountLookup, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := verifier.Verify(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		acct, err := accounts.GetByID(r.Context(), claims.Sub)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "unknown account", http.StatusUnauthorized)
			return
		}
		if err != nil {
			logger.Error("load account failed", "err", err, "account_id", claims.Sub)
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if !acct.IsActive {
			http.Error(w, "account inactive", http.StatusForbidden)
			return
		}

		ctx := ContextWithPrincipal(r.Context(), Principal{AccountID: acct.ID, Role: acct.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireRole(next http.Handler, roles ...model.Role) http.Handler {
	allowed := map[model.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if _, ok := allowed[p.Role]; !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalKey buckets rate limits by account, falling back to client IP.
func PrincipalKey(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return "account:" + p.AccountID
	}
	return "ip:" + httpx.ClientIP(r)
}
