package schema

import (
	"github.com/whisper2/server/internal/wire"
)

func registerAuthTypes() {
	register(wire.TypeRegisterBegin, decodeJSON[wire.RegisterBegin], checkRegisterBegin)
	register(wire.TypeRegisterProof, decodeJSON[wire.RegisterProof], checkRegisterProof)
	register(wire.TypeSessionRefresh, decodeJSON[wire.SessionRefresh], checkSessionRefresh)
	register(wire.TypeLogout, decodeJSON[wire.SessionRefresh], checkSessionRefresh)
	register(wire.TypePing, decodeJSON[wire.Ping], checkPing)
}

func checkRegisterBegin(v any) []FieldError {
	b := v.(wire.RegisterBegin)
	var errs []FieldError
	if b.ProtocolVersion != wire.ProtocolVersion {
		errs = append(errs, FieldError{Path: "protocolVersion", Reason: "unsupported protocol version"})
	}
	if b.CryptoVersion != wire.CryptoVersion {
		errs = append(errs, FieldError{Path: "cryptoVersion", Reason: "unsupported crypto version"})
	}
	errs = notEmpty("deviceId", b.DeviceID, errs)
	errs = maxLen("deviceId", b.DeviceID, 128, errs)
	errs = isValidUUID("deviceId", b.DeviceID, errs)
	errs = notEmpty("platform", b.Platform, errs)
	errs = validWhisperIDIfPresent("whisperId", b.WhisperID, errs)
	return errs
}

func checkRegisterProof(v any) []FieldError {
	p := v.(wire.RegisterProof)
	var errs []FieldError
	errs = notEmpty("challengeId", p.ChallengeID, errs)
	errs = isValidUUID("challengeId", p.ChallengeID, errs)
	errs = notEmpty("deviceId", p.DeviceID, errs)
	errs = maxLen("deviceId", p.DeviceID, 128, errs)
	errs = isValidUUID("deviceId", p.DeviceID, errs)
	errs = notEmpty("platform", p.Platform, errs)
	errs = validWhisperIDIfPresent("whisperId", p.WhisperID, errs)
	errs = isStdBase64("encPublicKey", p.EncPublicKey, errs)
	errs = isStdBase64("signPublicKey", p.SignPublicKey, errs)
	errs = isStdBase64("signature", p.Signature, errs)
	errs = maxLen("pushToken", p.PushToken, 4096, errs)
	errs = maxLen("voipToken", p.VoipToken, 4096, errs)
	return errs
}

func checkSessionRefresh(v any) []FieldError {
	s := v.(wire.SessionRefresh)
	return notEmpty("sessionToken", s.SessionToken, nil)
}

func checkPing(v any) []FieldError {
	p := v.(wire.Ping)
	return positiveTimestamp("timestamp", p.Timestamp, nil)
}
