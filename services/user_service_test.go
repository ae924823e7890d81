// services/user_service_test.go
package services

import (
	"testing"
	"time"

	"chess-match-system/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(newTestDB(t), "test-secret", 24*time.Hour)
}

func TestCreateUserAndLogin(t *testing.T) {
	s := newUserService(t)

	user, err := s.CreateUser("alice", "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	require.NotNil(t, user.Password)
	// the stored credential is a hash, never the plaintext
	assert.NotEqual(t, "hunter2", *user.Password)

	tokenStr, err := s.Login("alice", "hunter2")
	require.NoError(t, err)

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.Secret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.EqualValues(t, user.ID, claims["user_id"])
	assert.Equal(t, "alice", claims["user_name"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(s.TokenTTL), exp.Time, time.Minute)
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newUserService(t)

	_, err := s.CreateUser("alice", "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = s.CreateUser("alice", "other@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.CreateUser("other", "alice@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginBadCredentials(t *testing.T) {
	s := newUserService(t)

	_, err := s.CreateUser("alice", "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = s.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.Login("nobody", "hunter2")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteUserSoft(t *testing.T) {
	s := newUserService(t)

	user, err := s.CreateUser("alice", "alice@example.com", "hunter2")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(user.ID))

	// the row survives for historical foreign keys, credentials are gone
	var got models.User
	require.NoError(t, s.DB.First(&got, user.ID).Error)
	assert.True(t, got.Deleted)
	assert.Nil(t, got.Email)
	assert.Nil(t, got.Password)

	_, err = s.Login("alice", "hunter2")
	assert.ErrorIs(t, err, ErrForbidden)

	// delete is one-shot
	assert.ErrorIs(t, s.DeleteUser(user.ID), ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(999), ErrNotFound)
}
