package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/site-cms-api/internal/models"
)

func TestNewUserHashesPassword(t *testing.T) {
	user, err := newUser(" Editor <editor@example.com> ", "", "correct-horse", "Editor", "superadmin")
	require.NoError(t, err)

	assert.Equal(t, "editor@example.com", user.Email)
	assert.Equal(t, "editor", user.Username)
	assert.Equal(t, models.RoleSuperAdmin, user.Role)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))
}

func TestNewUserRejectsBadInput(t *testing.T) {
	_, err := newUser("not-an-email", "", "correct-horse", "", "ADMIN")
	assert.Error(t, err)

	_, err = newUser("a@example.com", "", "short", "", "ADMIN")
	assert.Error(t, err)

	_, err = newUser("a@example.com", "", "correct-horse", "", "TEACHER")
	assert.Error(t, err)
}

func TestMigrateRejectsUnknownAction(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.Error(t, cmd.Args(cmd, []string{"sideways"}))
	assert.NoError(t, cmd.Args(cmd, []string{"status"}))
}
