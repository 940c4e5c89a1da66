package schema

import (
	"github.com/whisper2/server/internal/wire"
)

var allowedMsgTypes = map[string]bool{
	"text": true, "image": true, "video": true, "audio": true, "file": true,
}

func registerMessagingTypes() {
	register(wire.TypeSendMessage, decodeJSON[wire.SendMessage], checkSendMessage)
	register(wire.TypeFetchPending, decodeJSON[wire.FetchPending], checkFetchPending)
	register(wire.TypeDeliveryReceipt, decodeJSON[wire.DeliveryReceipt], checkDeliveryReceipt)
	register(wire.TypeTyping, decodeJSON[wire.Typing], checkTyping)
}

func checkSendMessage(v any) []FieldError {
	m := v.(wire.SendMessage)
	var errs []FieldError
	errs = notEmpty("messageId", m.MessageID, errs)
	errs = maxLen("messageId", m.MessageID, 128, errs)
	errs = notEmpty("from", m.From, errs)
	errs = validWhisperIDIfPresent("from", m.From, errs)
	errs = notEmpty("to", m.To, errs)
	errs = validWhisperIDIfPresent("to", m.To, errs)
	if !allowedMsgTypes[m.MsgType] {
		errs = append(errs, FieldError{Path: "msgType", Reason: "unrecognized message type"})
	}
	errs = positiveTimestamp("timestamp", m.Timestamp, errs)
	errs = isStdBase64("nonce", m.Nonce, errs)
	errs = isStdBase64("ciphertext", m.Ciphertext, errs)
	errs = maxLen("ciphertext", m.Ciphertext, 1<<20, errs)
	errs = isStdBase64("sig", m.Signature, errs)
	if m.Attachment != nil {
		errs = notEmpty("attachment.objectKey", m.Attachment.ObjectKey, errs)
		errs = isStdBase64("attachment.fileKeyBox", m.Attachment.FileKeyBox, errs)
	}
	return errs
}

func checkFetchPending(v any) []FieldError {
	f := v.(wire.FetchPending)
	var errs []FieldError
	if f.Limit < 0 || f.Limit > 500 {
		errs = append(errs, FieldError{Path: "limit", Reason: "must be between 0 and 500"})
	}
	errs = maxLen("cursor", f.Cursor, 64, errs)
	return errs
}

func checkDeliveryReceipt(v any) []FieldError {
	r := v.(wire.DeliveryReceipt)
	var errs []FieldError
	errs = notEmpty("messageId", r.MessageID, errs)
	errs = notEmpty("from", r.From, errs)
	errs = validWhisperIDIfPresent("from", r.From, errs)
	errs = notEmpty("to", r.To, errs)
	errs = validWhisperIDIfPresent("to", r.To, errs)
	if r.Status != "delivered" && r.Status != "read" {
		errs = append(errs, FieldError{Path: "status", Reason: "must be delivered or read"})
	}
	errs = positiveTimestamp("timestamp", r.Timestamp, errs)
	return errs
}

func checkTyping(v any) []FieldError {
	t := v.(wire.Typing)
	var errs []FieldError
	errs = notEmpty("to", t.To, errs)
	errs = validWhisperIDIfPresent("to", t.To, errs)
	return errs
}
