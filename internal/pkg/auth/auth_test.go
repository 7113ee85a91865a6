package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
)

const secret = "0123456789abcdef0123"

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager(secret, "fleetwatch", time.Hour)

	token, err := m.Issue("user-1", "Manager")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Manager", claims.Role)
}

func TestTokenRejected(t *testing.T) {
	m := NewTokenManager(secret, "fleetwatch", time.Hour)
	token, err := m.Issue("user-1", "Manager")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := m.Verify("")
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Verify("not.a.token")
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-value", "fleetwatch", time.Hour)
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenManager(secret, "someone-else", time.Hour)
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokenManager(secret, "fleetwatch", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := expired.Issue("user-1", "Manager")
		require.NoError(t, err)

		_, err = m.Verify(old)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
		assert.EqualError(t, err, "token expired")
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "fleetwatch",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.Verify(unsigned)
		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)

	ok, err := h.Compare(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare("not-a-hash", "s3cret")
	assert.Error(t, err)
}
