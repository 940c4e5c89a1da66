// Package idkeygen mints WhisperIDs: server-assigned, stable account
// identifiers in the form WSP-XXXX-XXXX-XXXX where X is drawn from the
// Base32 alphabet A-Z2-7. A new id is derived deterministically from the
// device's public keys via HKDF so that two processes minting for the
// same never-before-seen key pair concurrently produce the same id
// (avoiding a second round trip to the durable store to resolve a race).
package idkeygen

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// Pattern matches a well-formed WhisperID.
var Pattern = regexp.MustCompile(`^WSP-[A-Z2-7]{4}-[A-Z2-7]{4}-[A-Z2-7]{4}$`)

// Valid reports whether s is a syntactically valid WhisperID.
func Valid(s string) bool { return Pattern.MatchString(s) }

// New derives a WhisperID from the device's long-term public keys. HKDF
// is seeded with a fixed, public info string so the derivation is a pure
// function of the keys -- no secret material is needed to mint an id.
func New(encPublicKey, signPublicKey []byte) (string, error) {
	salt := sha256.Sum256(append(append([]byte{}, encPublicKey...), signPublicKey...))
	kdf := hkdf.New(sha256.New, salt[:], nil, []byte("whisper2-identity-v1"))

	buf := make([]byte, 12)
	if _, err := io.ReadFull(kdf, buf); err != nil {
		return "", fmt.Errorf("derive identity bytes: %w", err)
	}
	return format(buf), nil
}

// NewRandom mints a WhisperID from fresh entropy rather than from keys.
// Nothing in the server calls it; registration mints ids with New.
func NewRandom() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random identity bytes: %w", err)
	}
	return format(buf), nil
}

func format(buf []byte) string {
	// Map 12 bytes (96 bits) onto 12 base32 symbols, 8 bits per symbol
	// truncated to the 5 bits the alphabet needs -- simplicity over
	// entropy-density since collision probability is irrelevant at this
	// id-space size for a messaging service's account volume.
	symbols := make([]byte, 12)
	for i, b := range buf {
		symbols[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("WSP-%s-%s-%s", symbols[0:4], symbols[4:8], symbols[8:12])
}

// Normalize uppercases and trims a WhisperID presented by a client so
// comparisons are case-insensitive even though storage keys are
// canonical uppercase.
func Normalize(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
