package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHash(t *testing.T) {
	t.Parallel()

	h1, err := Hash("secret")
	require.NoError(t, err)
	h2, err := Hash("secret")
	require.NoError(t, err)

	assert.NotEqual(t, "secret", h1)
	assert.NotEqual(t, h1, h2, "every hash must use its own salt")

	cost, err := bcrypt.Cost([]byte(h1))
	require.NoError(t, err)
	assert.Equal(t, Cost, cost)
}

func TestHashEmpty(t *testing.T) {
	t.Parallel()

	h, err := Hash("")
	require.NoError(t, err)
	assert.Equal(t, NoPassword, h)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	h, err := Hash("secret")
	require.NoError(t, err)

	ok, err := Verify("secret", h)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify("wrong", h)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Verify("", h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyNoPassword(t *testing.T) {
	t.Parallel()

	for _, candidate := range []string{"", " ", "secret", strings.Repeat("x", MaxLength)} {
		ok, err := Verify(candidate, NoPassword)
		require.NoError(t, err)
		assert.False(t, ok, "candidate %q must not unlock a share without password", candidate)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	t.Parallel()

	ok, err := Verify("secret", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}
