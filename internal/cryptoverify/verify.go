// Package cryptoverify implements the Ed25519 signature verification and
// canonical byte-string construction described in spec §4.2. The server
// never signs or decrypts; it only verifies signatures and treats
// ciphertext/fileKeyBox as opaque base64 blobs.
package cryptoverify

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	NonceSize     = 24
	SignPubSize   = ed25519.PublicKeySize // 32
	SignatureSize = ed25519.SignatureSize // 64
)

// CanonicalMessage builds the v1 canonical byte form for a signable
// send_message / receipt / call frame:
//
//	v1
//	<messageType>
//	<messageId>
//	<from>
//	<toOrGroupId>
//	<timestamp>
//	<base64(nonce)>
//	<base64(ciphertext)>
//
// every line, including the last, is terminated by \n.
func CanonicalMessage(messageType, messageID, from, to string, timestamp int64, nonceB64, ciphertextB64 string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "v1\n%s\n%s\n%s\n%s\n%d\n%s\n%s\n",
		messageType, messageID, from, to, timestamp, nonceB64, ciphertextB64)
	return []byte(b.String())
}

// CanonicalRegisterProof builds the canonical bytes for a register_proof,
// per spec §4.3: "v1\nregister_proof\n<challengeId>\n<deviceId>\n<platform>\n<encPublicKey>\n<signPublicKey>\n".
func CanonicalRegisterProof(challengeID, deviceID, platform, encPublicKeyB64, signPublicKeyB64 string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "v1\nregister_proof\n%s\n%s\n%s\n%s\n%s\n",
		challengeID, deviceID, platform, encPublicKeyB64, signPublicKeyB64)
	return []byte(b.String())
}

// DecodeStrictBase64 decodes padded standard base64 and rejects anything
// that isn't length%4==0 with the standard (non-URL-safe) alphabet.
func DecodeStrictBase64(s string) ([]byte, error) {
	if len(s)%4 != 0 {
		return nil, fmt.Errorf("base64 length not a multiple of 4")
	}
	return base64.StdEncoding.DecodeString(s)
}

// DecodeNonce decodes a base64 nonce and checks it is exactly NonceSize bytes.
func DecodeNonce(nonceB64 string) ([]byte, error) {
	raw, err := DecodeStrictBase64(nonceB64)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce encoding: %w", err)
	}
	if len(raw) != NonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceSize, len(raw))
	}
	return raw, nil
}

// VerifySignature checks that signatureB64 is a valid 64-byte Ed25519
// signature over SHA-256(message), signed by signPublicKey.
func VerifySignature(signPublicKey []byte, message []byte, signatureB64 string) error {
	if len(signPublicKey) != SignPubSize {
		return fmt.Errorf("signing public key must be %d bytes, got %d", SignPubSize, len(signPublicKey))
	}
	sig, err := DecodeStrictBase64(signatureB64)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(sig))
	}
	digest := sha256.Sum256(message)
	if !ed25519.Verify(ed25519.PublicKey(signPublicKey), digest[:], sig) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}

// VerifySignatureB64Key is VerifySignature with the signer's key itself
// base64-encoded, the common case when the key comes off the wire or out
// of a device record.
func VerifySignatureB64Key(signPublicKeyB64 string, message []byte, signatureB64 string) error {
	key, err := DecodeStrictBase64(signPublicKeyB64)
	if err != nil {
		return fmt.Errorf("invalid signing key encoding: %w", err)
	}
	return VerifySignature(key, message, signatureB64)
}
