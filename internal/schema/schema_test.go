package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper2/server/internal/schema"
	"github.com/whisper2/server/internal/wire"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

const testDeviceID = "11111111-1111-4111-8111-111111111111"

func TestValidate_RegisterBegin_Valid(t *testing.T) {
	payload := mustJSON(t, wire.RegisterBegin{
		ProtocolVersion: wire.ProtocolVersion,
		CryptoVersion:   wire.CryptoVersion,
		DeviceID:        testDeviceID,
		Platform:        "ios",
	})
	_, errs, err := schema.Validate(wire.TypeRegisterBegin, payload)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidate_RegisterBegin_RejectsBadVersion(t *testing.T) {
	payload := mustJSON(t, wire.RegisterBegin{
		ProtocolVersion: 99,
		CryptoVersion:   wire.CryptoVersion,
		DeviceID:        testDeviceID,
		Platform:        "ios",
	})
	_, errs, err := schema.Validate(wire.TypeRegisterBegin, payload)
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	assert.Equal(t, "protocolVersion", errs[0].Path)
}

func TestValidate_RegisterBegin_RejectsMalformedWhisperID(t *testing.T) {
	payload := mustJSON(t, wire.RegisterBegin{
		ProtocolVersion: wire.ProtocolVersion,
		CryptoVersion:   wire.CryptoVersion,
		DeviceID:        testDeviceID,
		Platform:        "ios",
		WhisperID:       "not-a-whisper-id",
	})
	_, errs, err := schema.Validate(wire.TypeRegisterBegin, payload)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "whisperId", errs[0].Path)
}

func TestValidate_RegisterBegin_RejectsMalformedDeviceID(t *testing.T) {
	payload := mustJSON(t, wire.RegisterBegin{
		ProtocolVersion: wire.ProtocolVersion,
		CryptoVersion:   wire.CryptoVersion,
		DeviceID:        "not-a-uuid",
		Platform:        "ios",
	})
	_, errs, err := schema.Validate(wire.TypeRegisterBegin, payload)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "deviceId", errs[0].Path)
}

func TestValidate_SendMessage_RejectsNonBase64Ciphertext(t *testing.T) {
	payload := mustJSON(t, wire.SendMessage{
		MessageID: "m-1", From: "WSP-AAAA-AAAA-AAAA", To: "WSP-BBBB-BBBB-BBBB",
		MsgType: "text", Timestamp: 1700000000000,
		Nonce: "not base64!!", Ciphertext: "not base64!!", Signature: "not base64!!",
	})
	_, errs, err := schema.Validate(wire.TypeSendMessage, payload)
	require.NoError(t, err)
	assert.NotEmpty(t, errs)
}

func TestValidate_SendMessage_RejectsUnknownMsgType(t *testing.T) {
	payload := mustJSON(t, wire.SendMessage{
		MessageID: "m-1", From: "WSP-AAAA-AAAA-AAAA", To: "WSP-BBBB-BBBB-BBBB",
		MsgType: "carrier-pigeon", Timestamp: 1700000000000,
		Nonce: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", Ciphertext: "aGVsbG8=", Signature: "aGVsbG8=",
	})
	_, errs, err := schema.Validate(wire.TypeSendMessage, payload)
	require.NoError(t, err)
	found := false
	for _, e := range errs {
		if e.Path == "msgType" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_UnknownFrameType(t *testing.T) {
	_, _, err := schema.Validate("not_a_real_type", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestValidate_MalformedJSONIsDecodeError(t *testing.T) {
	_, _, err := schema.Validate(wire.TypePing, json.RawMessage(`{not json`))
	assert.Error(t, err)
}

func TestValidate_FetchPending_RejectsOutOfRangeLimit(t *testing.T) {
	payload := mustJSON(t, wire.FetchPending{Limit: 5000})
	_, errs, err := schema.Validate(wire.TypeFetchPending, payload)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "limit", errs[0].Path)
}
