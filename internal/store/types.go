// Package store defines the durable and volatile storage interfaces used
// by every other component (spec §3). Durable state outlives a process;
// volatile state is safe to lose on restart.
package store

import "time"

// IdentityStatus is one of the two states an identity can be in.
type IdentityStatus string

const (
	IdentityActive IdentityStatus = "active"
	IdentityBanned IdentityStatus = "banned"
)

// Identity is the durable account record.
type Identity struct {
	WhisperID string
	Status    IdentityStatus
	CreatedAt time.Time
}

// Device is the durable, single-per-identity device record.
type Device struct {
	WhisperID     string
	DeviceID      string
	Platform      string // "ios" | "android"
	EncPublicKey  []byte // 32-byte X25519
	SignPublicKey []byte // 32-byte Ed25519
	PushToken     string
	VoipToken     string
	UpdatedAt     time.Time
}

// Ban records why and when an identity was banned.
type Ban struct {
	WhisperID string
	Reason    string
	BannedAt  time.Time
	BannedBy  string
}

// ContactBackup is the opaque per-identity contact backup blob.
type ContactBackup struct {
	WhisperID  string
	Nonce      []byte
	Ciphertext []byte
	SizeBytes  int
	UpdatedAt  time.Time
}

// Session is the opaque bearer token bound to (identity, device, platform).
type Session struct {
	Token     string
	WhisperID string
	DeviceID  string
	Platform  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Challenge is the single-use registration challenge.
type Challenge struct {
	ID        string
	Bytes     []byte
	ExpiresAt time.Time
}

// Presence is the volatile online/last-seen record.
type Presence struct {
	WhisperID    string
	ConnectionID string
	LastSeen     time.Time
	Platform     string
	ShareFlag    bool
}

// PendingEnvelope is a stored message_received payload for an offline
// recipient, ordered FIFO per recipient.
type PendingEnvelope struct {
	Sequence            int64
	MessageID           string
	From                string
	MsgType             string
	Timestamp           int64
	Nonce               []byte
	Ciphertext          []byte
	Signature           []byte
	SenderEncPublicKey  []byte
	SenderSignPublicKey []byte
	AttachmentObjectKey string
	AttachmentFileKeyBox string
	ExpiresAt           time.Time
}

// AttachmentRef records who may legitimately presign a download for an
// object key: the device that uploaded it, and, once the attachment is
// referenced by a sent message, the intended recipient.
type AttachmentRef struct {
	ObjectKey string
	Uploader  string
	Recipient string
	CreatedAt time.Time
}

// CallState is the short-lived signalling-relay record.
type CallState string

const (
	CallInitiating CallState = "initiating"
	CallRinging    CallState = "ringing"
	CallAnswered   CallState = "answered"
	CallEnded      CallState = "ended"
)

// Call is the volatile call-signalling record.
type Call struct {
	CallID    string
	Initiator string
	Recipient string
	State     CallState
	IsVideo   bool
	CreatedAt time.Time
}
