package wire

// RegisterBegin is the payload of a register_begin frame.
type RegisterBegin struct {
	ProtocolVersion int    `json:"protocolVersion"`
	CryptoVersion   int    `json:"cryptoVersion"`
	DeviceID        string `json:"deviceId"`
	Platform        string `json:"platform"`
	WhisperID       string `json:"whisperId,omitempty"`
}

// RegisterChallenge is the payload of a register_challenge frame.
type RegisterChallenge struct {
	ChallengeID string `json:"challengeId"`
	Challenge   string `json:"challenge"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// RegisterProof is the payload of a register_proof frame.
type RegisterProof struct {
	ChallengeID   string `json:"challengeId"`
	DeviceID      string `json:"deviceId"`
	Platform      string `json:"platform"`
	WhisperID     string `json:"whisperId,omitempty"`
	EncPublicKey  string `json:"encPublicKey"`
	SignPublicKey string `json:"signPublicKey"`
	Signature     string `json:"signature"`
	PushToken     string `json:"pushToken,omitempty"`
	VoipToken     string `json:"voipToken,omitempty"`
}

// RegisterAck is the payload of a register_ack frame.
type RegisterAck struct {
	Success          bool   `json:"success"`
	WhisperID        string `json:"whisperId"`
	SessionToken     string `json:"sessionToken"`
	SessionExpiresAt int64  `json:"sessionExpiresAt"`
	ServerTime       int64  `json:"serverTime"`
}

// SessionRefresh is the payload of a session_refresh frame.
type SessionRefresh struct {
	SessionToken string `json:"sessionToken"`
}

// ForceLogout is the payload of a force_logout frame.
type ForceLogout struct {
	Reason string `json:"reason"`
}

// Ping/Pong carry only a client-chosen timestamp, echoed back verbatim.
type Ping struct {
	Timestamp int64 `json:"timestamp"`
}

type Pong struct {
	Timestamp int64 `json:"timestamp"`
}

// SendMessage is the payload of a send_message frame.
type SendMessage struct {
	MessageID  string `json:"messageId"`
	From       string `json:"from"`
	To         string `json:"to"`
	MsgType    string `json:"msgType"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Signature  string `json:"sig"`
	Attachment *AttachmentRef `json:"attachment,omitempty"`
}

// AttachmentRef is the opaque attachment reference carried on a message.
type AttachmentRef struct {
	ObjectKey  string `json:"objectKey"`
	FileKeyBox string `json:"fileKeyBox"`
}

// MessageReceived is delivered to the recipient, online or via pending drain.
type MessageReceived struct {
	MessageID           string         `json:"messageId"`
	From                string         `json:"from"`
	MsgType             string         `json:"msgType"`
	Timestamp           int64          `json:"timestamp"`
	Nonce               string         `json:"nonce"`
	Ciphertext          string         `json:"ciphertext"`
	Signature           string         `json:"sig"`
	SenderEncPublicKey  string         `json:"senderEncPublicKey"`
	SenderSignPublicKey string         `json:"senderSignPublicKey"`
	Attachment          *AttachmentRef `json:"attachment,omitempty"`
}

// MessageAccepted/MessageDelivered report delivery progress to the sender.
type MessageAccepted struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

type MessageDelivered struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// DeliveryReceipt is forwarded verbatim from the recipient to the sender.
type DeliveryReceipt struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// FetchPending/PendingMessages implement the offline drain.
type FetchPending struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type PendingMessages struct {
	Messages   []MessageReceived `json:"messages"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

// PresenceUpdate is broadcast on connect/disconnect.
type PresenceUpdate struct {
	WhisperID string `json:"whisperId"`
	Status    string `json:"status"`
	LastSeen  int64  `json:"lastSeen,omitempty"`
}

// Typing is forwarded ephemerally, no persistence, no receipts.
type Typing struct {
	To        string `json:"to"`
	IsTyping  bool   `json:"isTyping"`
}

// Call signalling payloads. All share the same envelope shape as
// send_message for the signature/replay pipeline, with call-specific
// fields layered on.
type CallInitiate struct {
	CallID      string `json:"callId"`
	From        string `json:"from"`
	To          string `json:"to"`
	IsVideo     bool   `json:"isVideo"`
	Timestamp   int64  `json:"timestamp"`
	Nonce       string `json:"nonce"`
	Ciphertext  string `json:"ciphertext"`
	Signature   string `json:"sig"`
}

type CallIncoming struct {
	CallID              string `json:"callId"`
	CallerWhisperID      string `json:"callerWhisperId"`
	IsVideo             bool   `json:"isVideo"`
	Timestamp           int64  `json:"timestamp"`
	Ciphertext          string `json:"ciphertext"`
	SenderEncPublicKey  string `json:"senderEncPublicKey"`
	SenderSignPublicKey string `json:"senderSignPublicKey"`
}

type CallAnswer struct {
	CallID     string `json:"callId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Signature  string `json:"sig"`
}

type CallICECandidate struct {
	CallID     string `json:"callId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Signature  string `json:"sig"`
}

type CallEnd struct {
	CallID     string `json:"callId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Signature  string `json:"sig"`
}

type CallRinging struct {
	CallID    string `json:"callId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
}

// PresignUpload/PresignDownload and TURN credentials: boundary adapters.
type PresignUploadRequest struct {
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type PresignUploadResponse struct {
	ObjectKey   string            `json:"objectKey"`
	UploadURL   string            `json:"uploadUrl"`
	Headers     map[string]string `json:"headers"`
	ExpiresAtMs int64             `json:"expiresAtMs"`
}

type PresignDownloadRequest struct {
	ObjectKey string `json:"objectKey"`
}

type PresignDownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	ExpiresAtMs int64  `json:"expiresAtMs"`
}

// TurnCredentialsRequest carries no fields today; the frame type exists
// so schema.Validate has something to decode before the handler mints
// short-lived TURN credentials for the requesting session.
type TurnCredentialsRequest struct{}

type TurnCredentialsResponse struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
	TTL        int64    `json:"ttl"`
}
