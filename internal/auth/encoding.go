package auth

import "encoding/base64"

func encodeB64(b []byte) string     { return base64.StdEncoding.EncodeToString(b) }
func encodeB64URL(b []byte) string  { return base64.RawURLEncoding.EncodeToString(b) }
