package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndAuthenticate(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "1h")
	require.NoError(t, Init())

	id := uuid.New()
	token, err := CreateJWT(id, "abebe")
	require.NoError(t, err)

	got, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, got.UserID)
	assert.Equal(t, "abebe", got.Username)
	assert.False(t, got.IsGuest())
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "")
	require.NoError(t, Init())

	_, err := AuthenticateJWT("not-a-token")
	assert.Error(t, err)

	// signed by a different key
	_, otherKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": uuid.NewString()}).SignedString(otherKey)
	require.NoError(t, err)
	_, err = AuthenticateJWT(forged)
	assert.Error(t, err)

	// expired
	expired, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString(privateKey)
	require.NoError(t, err)
	_, err = AuthenticateJWT(expired)
	assert.Error(t, err)

	// sub is not a user id
	bad, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": "alice"}).SignedString(privateKey)
	require.NoError(t, err)
	_, err = AuthenticateJWT(bad)
	assert.Error(t, err)
}

func TestInitFromPath(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "")
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_ed25519"), priv, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_ed25519.pub"), pub, 0o644))

	require.NoError(t, InitFromPath(dir))
	token, err := CreateJWT(uuid.New(), "x")
	require.NoError(t, err)
	_, err = AuthenticateJWT(token)
	assert.NoError(t, err)

	assert.Error(t, InitFromPath(t.TempDir()))
}
