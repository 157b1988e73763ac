package protocol

import (
	"errors"

	"voxeldisplay.ai/internal/sim/rotation"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Rotation decoding.
	ErrUnknownRotationName = "E_UNKNOWN_ROTATION_NAME"
	ErrMissingAxis         = "E_MISSING_AXIS"
	ErrInvalidDegrees      = "E_INVALID_DEGREES"
	ErrInvalidRotation     = "E_INVALID_ROTATION"
	ErrRotationOutOfRange  = "E_ROTATION_OUT_OF_RANGE"
	ErrMalformedRotation   = "E_MALFORMED_ROTATION"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:     {},
	ErrUnknownRotationName: {},
	ErrMissingAxis:         {},
	ErrInvalidDegrees:      {},
	ErrInvalidRotation:     {},
	ErrRotationOutOfRange:  {},
	ErrMalformedRotation:   {},
	ErrInternal:            {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeForError maps rotation decode failures onto wire codes. Anything else
// is internal.
func CodeForError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, rotation.ErrUnknownRotationName):
		return ErrUnknownRotationName
	case errors.Is(err, rotation.ErrMissingAxis):
		return ErrMissingAxis
	case errors.Is(err, rotation.ErrInvalidDegrees):
		return ErrInvalidDegrees
	case errors.Is(err, rotation.ErrInvalidRotation):
		return ErrInvalidRotation
	case errors.Is(err, rotation.ErrIndexOutOfRange):
		return ErrRotationOutOfRange
	case errors.Is(err, rotation.ErrMalformedVarint):
		return ErrMalformedRotation
	case errors.Is(err, ErrBadEnvelope):
		return ErrProtoBadRequest
	}
	return ErrInternal
}
