package rotation

import (
	"bytes"
	"encoding/json"
)

// DecodeJSON accepts a canonical name string ("x_90") or an object
// {"axis":"x","degrees":90}.
func DecodeJSON(data []byte) (State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, invalid(FormatJSON, "", nil)
	}
	switch data[0] {
	case '"':
		var token string
		if err := json.Unmarshal(data, &token); err != nil {
			return 0, invalid(FormatJSON, string(data), err)
		}
		return resolveName(FormatJSON, token)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return 0, invalid(FormatJSON, string(data), err)
		}
		return decodeJSONObject(obj)
	}
	return 0, invalid(FormatJSON, string(data), nil)
}

func decodeJSONObject(obj map[string]json.RawMessage) (State, error) {
	rawAxis, ok := obj["axis"]
	axis := fieldText(ok, isJSONNull(rawAxis), jsonText(rawAxis))
	if axis == "" {
		return 0, &DecodeError{Format: FormatJSON, Kind: ErrMissingAxis}
	}

	degrees := degreesAbsent
	if raw, ok := obj["degrees"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &degrees); err != nil {
			return 0, &DecodeError{Format: FormatJSON, Kind: ErrInvalidDegrees, Value: jsonText(raw), Err: err}
		}
	}
	return resolvePair(FormatJSON, axis, degrees)
}

// jsonText unquotes a JSON string and returns any other value as written.
func jsonText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// EncodeJSON always emits the bare canonical name string.
func EncodeJSON(s State) ([]byte, error) {
	if err := checkEncodable(s); err != nil {
		return nil, err
	}
	return json.Marshal(s.Name())
}

func (s State) MarshalJSON() ([]byte, error) { return EncodeJSON(s) }

func (s *State) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
