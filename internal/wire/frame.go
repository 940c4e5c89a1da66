// Package wire defines the Whisper2 websocket frame envelope and the
// constant surface (protocol/crypto versions, frame types, error codes)
// that the schema gate and every component validate against.
package wire

import "encoding/json"

const (
	ProtocolVersion = 1
	CryptoVersion   = 1
)

// Frame is the envelope every inbound and outbound message is wrapped in.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Frame types. Public types may be presented on an unauthenticated
// connection; all others require a live session.
const (
	TypeRegisterBegin  = "register_begin"
	TypeRegisterChlg   = "register_challenge"
	TypeRegisterProof  = "register_proof"
	TypeRegisterAck    = "register_ack"
	TypeSessionRefresh = "session_refresh"
	TypeLogout         = "logout"
	TypeForceLogout    = "force_logout"
	TypePing           = "ping"
	TypePong           = "pong"

	TypeSendMessage      = "send_message"
	TypeMessageReceived  = "message_received"
	TypeMessageAccepted  = "message_accepted"
	TypeMessageDelivered = "message_delivered"
	TypeDeliveryReceipt  = "delivery_receipt"
	TypeFetchPending     = "fetch_pending"
	TypePendingMessages  = "pending_messages"

	TypePresenceUpdate = "presence_update"
	TypeTyping         = "typing"

	TypeCallInitiate    = "call_initiate"
	TypeCallIncoming    = "call_incoming"
	TypeCallAnswer      = "call_answer"
	TypeCallICECandiate = "call_ice_candidate"
	TypeCallEnd         = "call_end"
	TypeCallRinging     = "call_ringing"

	TypePresignUpload   = "presign_upload"
	TypePresignDownload = "presign_download"
	TypeTurnCredentials = "get_turn_credentials"

	TypeError = "error"
)

// PublicTypes do not require an authenticated connection.
var PublicTypes = map[string]bool{
	TypeRegisterBegin: true,
	TypeRegisterProof: true,
	TypePing:          true,
}

// Error codes, exactly the set enumerated in the protocol error envelope.
const (
	CodeNotRegistered    = "NOT_REGISTERED"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeInvalidPayload   = "INVALID_PAYLOAD"
	CodeInvalidTimestamp = "INVALID_TIMESTAMP"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUserBanned       = "USER_BANNED"
	CodeNotFound         = "NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeInternalError    = "INTERNAL_ERROR"
)

// ErrorPayload is the payload of an outbound `error` frame.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	RetryAfter int   `json:"retryAfter,omitempty"`
}

// Encode marshals a typed payload into a Frame.
func Encode(typ, requestID string, payload any) (*Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Frame{Type: typ, RequestID: requestID, Payload: raw}, nil
}
