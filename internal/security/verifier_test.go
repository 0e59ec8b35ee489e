package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Params{N: 1 << 10, R: 8, P: 1, SaltLen: 16, KeyLen: 64}

func TestHashAndVerify(t *testing.T) {
	v := NewVerifier(fastParams, "pepper")

	digest, err := v.Hash("1234")
	require.NoError(t, err)

	salt, key, ok := strings.Cut(digest, ":")
	require.True(t, ok)
	assert.Len(t, salt, 32)
	assert.Len(t, key, 128)

	assert.True(t, v.Verify("1234", digest))
	assert.False(t, v.Verify("1235", digest))
	assert.False(t, v.Verify("", digest))
}

func TestHashIsSalted(t *testing.T) {
	v := NewVerifier(fastParams, "pepper")

	a, err := v.Hash("4321")
	require.NoError(t, err)
	b, err := v.Hash("4321")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, v.Verify("4321", a))
	assert.True(t, v.Verify("4321", b))
}

func TestVerifyMalformedDigest(t *testing.T) {
	v := NewVerifier(fastParams, "pepper")

	for _, digest := range []string{
		"",
		"nocolon",
		":",
		"abcd:",
		":abcd",
		"zz:abcd",
		"abcd:zz",
		"abcd:ef:01",
	} {
		assert.False(t, v.Verify("1234", digest), "digest %q", digest)
	}
}

func TestVerifyNormalizesInput(t *testing.T) {
	v := NewVerifier(fastParams, "pepper")

	// Fullwidth digits fold to ASCII under NFKC.
	digest, err := v.Hash("１２３４")
	require.NoError(t, err)
	assert.True(t, v.Verify("1234", digest))
}

func TestFingerprint(t *testing.T) {
	v := NewVerifier(fastParams, "pepper")

	assert.Equal(t, v.Fingerprint("event:1", "1234"), v.Fingerprint("event:1", "1234"))
	assert.NotEqual(t, v.Fingerprint("event:1", "1234"), v.Fingerprint("event:2", "1234"))
	assert.NotEqual(t, v.Fingerprint("event:1", "1234"), v.Fingerprint("event:1", "12345"))

	other := NewVerifier(fastParams, "other-pepper")
	assert.NotEqual(t, v.Fingerprint("event:1", "1234"), other.Fingerprint("event:1", "1234"))
}
