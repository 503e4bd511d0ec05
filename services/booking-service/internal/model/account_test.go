package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{"user": RoleUser, " Business ": RoleBusiness, "ADMIN": RoleAdmin} {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseRole("owner")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Account{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", Account{FirstName: "Ada"}.FullName())
}
