package rotation

import (
	"errors"
	"fmt"
)

// Format names the codec that produced a DecodeError.
type Format string

const (
	FormatJSON   Format = "json"
	FormatBinary Format = "binary"
	FormatTree   Format = "tree"
)

// Error kinds. Match with errors.Is.
var (
	ErrUnknownRotationName = errors.New("unknown rotation name")
	ErrMissingAxis         = errors.New("axis name was not defined, must be x, y, or z")
	ErrInvalidDegrees      = errors.New("invalid degrees, must be 0, 90, 180, or 270")
	ErrInvalidRotation     = errors.New("invalid rotation defined")
	ErrIndexOutOfRange     = errors.New("rotation index out of range")
	ErrMalformedVarint     = errors.New("malformed rotation varint")
)

// Error families, one per format.
var (
	ErrJSON   = errors.New("rotation json")
	ErrBinary = errors.New("rotation binary")
	ErrTree   = errors.New("rotation tree")
)

type DecodeError struct {
	Format Format
	Kind   error
	// Value is the offending input: the upper-cased token, the degrees
	// value, or the raw text that failed.
	Value any
	Err   error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: %v", family(e.Format), e.Kind)
	if e.Value != nil {
		msg += fmt.Sprintf(": %v", e.Value)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	errs := []error{e.Kind, family(e.Format)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func family(f Format) error {
	switch f {
	case FormatBinary:
		return ErrBinary
	case FormatTree:
		return ErrTree
	default:
		return ErrJSON
	}
}

// ErrInvalidState is returned when encoding a State outside the catalog.
var ErrInvalidState = errors.New("rotation: state not in catalog")

func checkEncodable(s State) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidState, uint8(s))
	}
	return nil
}
