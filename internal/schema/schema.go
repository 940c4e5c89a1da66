// Package schema is the frame-validation gate: before the auth engine,
// the router, or presence ever sees a decoded frame, it passes through a
// Validator registered for its type. Validators are explicit per-field
// checks compiled once into a map, in the style of the teacher's
// core/handshake/types.go -- no JSON-schema library, no reflection.
package schema

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/whisper2/server/internal/idkeygen"
	"github.com/whisper2/server/internal/wire"
)

// FieldError names one rejected field and why.
type FieldError struct {
	Path   string
	Reason string
}

func (e FieldError) String() string { return e.Path + ": " + e.Reason }

// Validator decodes a frame's raw payload into its typed struct and runs
// its field checks. Decode failures (malformed JSON) are distinct from
// Check failures (well-formed JSON, invalid values) so callers can map
// the former straight to INVALID_PAYLOAD without enumerating fields.
type Validator struct {
	Decode func(payload json.RawMessage) (any, error)
	Check  func(v any) []FieldError
}

var registry = map[string]Validator{}

func register(frameType string, decode func(json.RawMessage) (any, error), check func(any) []FieldError) {
	registry[frameType] = Validator{Decode: decode, Check: check}
}

// Lookup returns the validator registered for frameType, if any.
func Lookup(frameType string) (Validator, bool) {
	v, ok := registry[frameType]
	return v, ok
}

// Validate decodes and checks payload against the validator registered
// for frameType. The returned value is the decoded typed payload, ready
// for a type assertion by the caller.
func Validate(frameType string, payload json.RawMessage) (any, []FieldError, error) {
	v, ok := registry[frameType]
	if !ok {
		return nil, nil, fmt.Errorf("no validator registered for frame type %q", frameType)
	}
	val, err := v.Decode(payload)
	if err != nil {
		return nil, nil, err
	}
	return val, v.Check(val), nil
}

func decodeJSON[T any](payload json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func notEmpty(path, val string, errs []FieldError) []FieldError {
	if val == "" {
		return append(errs, FieldError{Path: path, Reason: "must not be empty"})
	}
	return errs
}

func isStdBase64(path, val string, errs []FieldError) []FieldError {
	if val == "" {
		return append(errs, FieldError{Path: path, Reason: "must not be empty"})
	}
	if _, err := base64.StdEncoding.DecodeString(val); err != nil {
		return append(errs, FieldError{Path: path, Reason: "must be standard base64"})
	}
	return errs
}

func maxLen(path, val string, n int, errs []FieldError) []FieldError {
	if len(val) > n {
		return append(errs, FieldError{Path: path, Reason: fmt.Sprintf("must be at most %d characters", n)})
	}
	return errs
}

func positiveTimestamp(path string, ts int64, errs []FieldError) []FieldError {
	if ts <= 0 {
		return append(errs, FieldError{Path: path, Reason: "must be a positive unix millisecond timestamp"})
	}
	return errs
}

func validWhisperIDIfPresent(path, val string, errs []FieldError) []FieldError {
	if val != "" && !idkeygen.Valid(idkeygen.Normalize(val)) {
		errs = append(errs, FieldError{Path: path, Reason: "malformed whisperId"})
	}
	return errs
}

// isValidUUID checks the wire-level string format spec calls out for
// device ids and challenge ids. Empty values are left to notEmpty.
func isValidUUID(path, val string, errs []FieldError) []FieldError {
	if val == "" {
		return errs
	}
	if _, err := uuid.Parse(val); err != nil {
		errs = append(errs, FieldError{Path: path, Reason: "must be a valid UUID"})
	}
	return errs
}

func init() {
	registerAuthTypes()
	registerMessagingTypes()
	registerCallTypes()
	registerBoundaryTypes()
}
