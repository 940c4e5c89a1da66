package schema

import (
	"github.com/whisper2/server/internal/wire"
)

func registerCallTypes() {
	register(wire.TypeCallInitiate, decodeJSON[wire.CallInitiate], checkCallInitiate)
	register(wire.TypeCallAnswer, decodeJSON[wire.CallAnswer], checkCallAnswer)
	register(wire.TypeCallICECandiate, decodeJSON[wire.CallICECandidate], checkCallICECandidate)
	register(wire.TypeCallEnd, decodeJSON[wire.CallEnd], checkCallEnd)
}

func checkCallEnvelope(callID, from, to, nonce, ciphertext, sig string, timestamp int64) []FieldError {
	var errs []FieldError
	errs = notEmpty("callId", callID, errs)
	errs = maxLen("callId", callID, 128, errs)
	errs = notEmpty("from", from, errs)
	errs = validWhisperIDIfPresent("from", from, errs)
	errs = notEmpty("to", to, errs)
	errs = validWhisperIDIfPresent("to", to, errs)
	errs = positiveTimestamp("timestamp", timestamp, errs)
	errs = isStdBase64("nonce", nonce, errs)
	errs = isStdBase64("ciphertext", ciphertext, errs)
	errs = isStdBase64("sig", sig, errs)
	return errs
}

func checkCallInitiate(v any) []FieldError {
	c := v.(wire.CallInitiate)
	return checkCallEnvelope(c.CallID, c.From, c.To, c.Nonce, c.Ciphertext, c.Signature, c.Timestamp)
}

func checkCallAnswer(v any) []FieldError {
	c := v.(wire.CallAnswer)
	return checkCallEnvelope(c.CallID, c.From, c.To, c.Nonce, c.Ciphertext, c.Signature, c.Timestamp)
}

func checkCallICECandidate(v any) []FieldError {
	c := v.(wire.CallICECandidate)
	return checkCallEnvelope(c.CallID, c.From, c.To, c.Nonce, c.Ciphertext, c.Signature, c.Timestamp)
}

func checkCallEnd(v any) []FieldError {
	c := v.(wire.CallEnd)
	return checkCallEnvelope(c.CallID, c.From, c.To, c.Nonce, c.Ciphertext, c.Signature, c.Timestamp)
}
