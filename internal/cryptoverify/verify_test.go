package cryptoverify

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalMessage_ExactBytes(t *testing.T) {
	got := CanonicalMessage("text", "m-1", "WSP-AAAA-BBBB-CCCC", "WSP-DDDD-EEEE-FFFF", 1700000000000, "bm9uY2U=", "Y2lwaGVy")
	want := "v1\ntext\nm-1\nWSP-AAAA-BBBB-CCCC\nWSP-DDDD-EEEE-FFFF\n1700000000000\nbm9uY2U=\nY2lwaGVy\n"
	assert.Equal(t, want, string(got))
}

func TestCanonicalRegisterProof_ExactBytes(t *testing.T) {
	got := CanonicalRegisterProof("c-1", "7a6b", "android", "encKey==", "signKey==")
	want := "v1\nregister_proof\nc-1\n7a6b\nandroid\nencKey==\nsignKey==\n"
	assert.Equal(t, want, string(got))
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	msg := CanonicalRegisterProof("c-1", "dev", "ios", "enc==", "sign==")
	digest := sha256.Sum256(msg)
	sig := ed25519.Sign(priv, digest[:])
	sigB64 := base64.StdEncoding.EncodeToString(sig)

	require.NoError(t, VerifySignature(pub, msg, sigB64))
}

func TestVerifySignature_Tampered(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	msg := CanonicalRegisterProof("c-1", "dev", "ios", "enc==", "sign==")
	digest := sha256.Sum256(msg)
	sig := ed25519.Sign(priv, digest[:])
	sigB64 := base64.StdEncoding.EncodeToString(sig)

	tampered := CanonicalRegisterProof("c-2", "dev", "ios", "enc==", "sign==")
	err = VerifySignature(pub, tampered, sigB64)
	assert.Error(t, err)
}

func TestDecodeStrictBase64_RejectsBadLength(t *testing.T) {
	_, err := DecodeStrictBase64("abc")
	assert.Error(t, err)
}

func TestDecodeNonce_RequiresExactSize(t *testing.T) {
	short := base64.StdEncoding.EncodeToString(make([]byte, 16))
	_, err := DecodeNonce(short)
	assert.Error(t, err)

	ok := base64.StdEncoding.EncodeToString(make([]byte, NonceSize))
	got, err := DecodeNonce(ok)
	require.NoError(t, err)
	assert.Len(t, got, NonceSize)
}
