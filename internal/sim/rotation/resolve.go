package rotation

import (
	"fmt"
	"strings"
)

// degreesAbsent stands in for a degrees field that was not supplied.
const degreesAbsent = -1

// resolveName is the single-token rule shared by the JSON and tree codecs.
func resolveName(f Format, token string) (State, error) {
	name := strings.ToUpper(token)
	if s, ok := byName[name]; ok {
		return s, nil
	}
	return 0, &DecodeError{Format: f, Kind: ErrUnknownRotationName, Value: name}
}

// resolvePair is the (axis, degrees) rule shared by the JSON and tree codecs.
// An empty axis counts as absent.
func resolvePair(f Format, axis string, degrees int) (State, error) {
	if axis == "" {
		return 0, &DecodeError{Format: f, Kind: ErrMissingAxis}
	}
	if _, ok := AmountFromDegrees(degrees); !ok {
		return 0, &DecodeError{Format: f, Kind: ErrInvalidDegrees, Value: degrees}
	}
	name := strings.ToUpper(fmt.Sprintf("%s_%d", axis, degrees))
	if s, ok := byName[name]; ok {
		return s, nil
	}
	return 0, &DecodeError{Format: f, Kind: ErrInvalidRotation, Value: name}
}

// fieldText is the string form of a supplied axis field. A missing or null
// field reads as "", which resolvePair reports as a missing axis; any other
// value keeps its text and is judged by the final name lookup.
func fieldText(present, null bool, text string) string {
	if !present || null {
		return ""
	}
	return text
}

func invalid(f Format, value any, cause error) error {
	return &DecodeError{Format: f, Kind: ErrInvalidRotation, Value: value, Err: cause}
}
