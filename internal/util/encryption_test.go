package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey   = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testPhone = "+15551234567"
)

func TestSealSession(t *testing.T) {
	t.Run("round trips a session blob", func(t *testing.T) {
		sealed, err := SealSession(testKey, testPhone, "1BVtsOK8Bu0session")
		require.NoError(t, err)
		assert.True(t, len(sealed) > len(sealedPrefix))
		assert.Equal(t, sealedPrefix, sealed[:len(sealedPrefix)])

		blob, err := OpenSession(testKey, testPhone, sealed)
		require.NoError(t, err)
		assert.Equal(t, "1BVtsOK8Bu0session", blob)
	})

	t.Run("uses a fresh nonce per call", func(t *testing.T) {
		a, err := SealSession(testKey, testPhone, "same")
		require.NoError(t, err)
		b, err := SealSession(testKey, testPhone, "same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := SealSession("abcd", testPhone, "data")
		assert.Error(t, err)
	})
}

func TestOpenSession(t *testing.T) {
	sealed, err := SealSession(testKey, testPhone, "data")
	require.NoError(t, err)

	t.Run("fails with wrong key", func(t *testing.T) {
		otherKey := "1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100"
		_, err := OpenSession(otherKey, testPhone, sealed)
		assert.Error(t, err)
	})

	t.Run("fails for another phone", func(t *testing.T) {
		_, err := OpenSession(testKey, "+15550000000", sealed)
		assert.Error(t, err)
	})

	t.Run("plaintext blob is not sealed", func(t *testing.T) {
		_, err := OpenSession(testKey, testPhone, "1BVtsOK8Bu0session")
		assert.ErrorIs(t, err, ErrNotSealed)
	})

	t.Run("rejects truncated blob", func(t *testing.T) {
		_, err := OpenSession(testKey, testPhone, sealedPrefix+"AAAA")
		assert.ErrorContains(t, err, "too short")
	})
}
