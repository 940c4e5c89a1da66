package idkeygen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProducesValidFormat(t *testing.T) {
	id, err := New(make([]byte, 32), make([]byte, 32))
	require.NoError(t, err)
	assert.True(t, Valid(id), "expected %q to match WhisperID pattern", id)
}

func TestNew_Deterministic(t *testing.T) {
	enc := []byte("0123456789abcdef0123456789abcdef")[:32]
	sign := []byte("fedcba9876543210fedcba9876543210")[:32]

	id1, err := New(enc, sign)
	require.NoError(t, err)
	id2, err := New(enc, sign)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestValid_RejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"WSP-AAAA-BBBB",
		"wsp-aaaa-bbbb-cccc",
		"WSP-AAA1-BBBB-CCCC", // '1' not in Base32 alphabet
		"XYZ-AAAA-BBBB-CCCC",
	}
	for _, c := range cases {
		assert.False(t, Valid(c), "expected %q to be invalid", c)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "WSP-AAAA-BBBB-CCCC", Normalize("  wsp-aaaa-bbbb-cccc  "))
}
