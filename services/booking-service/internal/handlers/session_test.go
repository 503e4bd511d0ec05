package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentials map[string]model.Account

func (f fakeCredentials) GetByEmail(_ context.Context, email string) (model.Account, error) {
	acct, ok := f[email]
	if !ok {
		return model.Account{}, storage.ErrNotFound
	}
	return acct, nil
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	accounts := fakeCredentials{
		"ann@example.com": {ID: "acct-1", Email: "ann@example.com", PasswordHash: hash, Role: model.RoleUser, IsActive: true},
		"bob@example.com": {ID: "acct-2", Email: "bob@example.com", PasswordHash: hash, Role: model.RoleUser},
	}
	now := time.Now()
	h := NewSessionHandler(accounts, "secret", 2*time.Hour, clock.Fixed{T: now}, testLogger)

	post := func(body string) *httptest.ResponseRecorder {
		rw := httptest.NewRecorder()
		h.Login(rw, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body)))
		return rw
	}

	rw := post(`{"email":"ann@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, int64(7200), resp.ExpiresIn)
	claims, err := auth.ParseAndVerifyHS256(resp.AccessToken, "secret", now)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.Sub)
	assert.Equal(t, "user", claims.Role)

	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"ann@example.com","password":"nope"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"who@example.com","password":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, post(`{"email":"bob@example.com","password":"correct-horse"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"email":""}`).Code)

	disabled := NewSessionHandler(accounts, "", time.Hour, clock.Fixed{T: now}, testLogger)
	rw = httptest.NewRecorder()
	disabled.Login(rw, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rw.Code)
}
