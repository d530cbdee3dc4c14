package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)

	token, err := svc.Generate("user-1", "mod@example.com", "moderator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "mod@example.com", claims.Email)
	assert.Equal(t, "moderator", claims.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate("user-1", "a@b.c", "admin")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("secret", 1).Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	token, err := NewJWTService("secret", -1).Generate("user-1", "a@b.c", "admin")
	require.NoError(t, err)

	_, err = NewJWTService("secret", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
