package router

import "encoding/base64"

func encodeB64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// decodeB64 decodes a strict-base64 string already validated by the
// schema gate before dispatch, so a decode error here would
// indicate a programming error rather than bad client input.
func decodeB64(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
