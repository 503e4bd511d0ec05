package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountFlags(t *testing.T) {
	in, err := parseAccountFlags([]string{
		"-email", " owner@example.com ", "-password", "longenough", "-role", "Business",
		"-first-name", "Ada", "-phone", "+100",
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", in.account.Email)
	assert.Equal(t, model.RoleBusiness, in.account.Role)
	assert.Equal(t, "Ada", in.account.FirstName)
	assert.Equal(t, "+100", in.account.Phone)
	assert.True(t, in.account.IsActive)

	cases := map[string][]string{
		"missing email":  {"-password", "longenough"},
		"short password": {"-email", "a@b.c", "-password", "short"},
		"bad role":       {"-email", "a@b.c", "-password", "longenough", "-role", "root"},
		"unknown flag":   {"-nope"},
	}
	for name, args := range cases {
		_, err := parseAccountFlags(args)
		assert.Error(t, err, name)
	}
}

func TestIssueToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	now := time.Now()

	var out bytes.Buffer
	require.NoError(t, issueToken([]string{"-account", "acct-1", "-role", "admin", "-ttl", "1h"}, &out, now))

	claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(out.String()), "cli-secret", now)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.Sub)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.Exp)

	assert.Error(t, issueToken([]string{"-role", "admin"}, io.Discard, now))
	assert.Error(t, issueToken([]string{"-account", "a", "-ttl", "-1h"}, io.Discard, now))

	t.Setenv("JWT_SECRET", "")
	assert.Error(t, issueToken([]string{"-account", "a"}, io.Discard, now))
}

func TestRunUsage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var out bytes.Buffer
	err := run(context.Background(), nil, &out, logger)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "usage: booking-admin")

	out.Reset()
	assert.Error(t, run(context.Background(), []string{"bogus"}, &out, logger))
	assert.Contains(t, out.String(), "create-account")
}
