package rotation

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// AppendBinary appends the state's catalog ordinal as a uvarint.
func AppendBinary(dst []byte, s State) ([]byte, error) {
	if err := checkEncodable(s); err != nil {
		return dst, err
	}
	return binary.AppendUvarint(dst, uint64(s)), nil
}

func EncodeBinary(s State) ([]byte, error) {
	return AppendBinary(nil, s)
}

// DecodeBinary reads one uvarint ordinal from the front of data and reports
// how many bytes it consumed. There is no name fallback.
func DecodeBinary(data []byte) (State, int, error) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, 0, malformed(data, nil)
	}
	s, err := fromOrdinal(v)
	if err != nil {
		return 0, 0, err
	}
	return s, n, nil
}

// ReadBinary reads one ordinal from a stream of concatenated encodings.
func ReadBinary(r io.ByteReader) (State, error) {
	rec := byteRecorder{r: r}
	v, err := binary.ReadUvarint(&rec)
	if err != nil {
		return 0, malformed(rec.buf, err)
	}
	return fromOrdinal(v)
}

// malformed carries the offending bytes as hex.
func malformed(raw []byte, cause error) error {
	return &DecodeError{Format: FormatBinary, Kind: ErrMalformedVarint, Value: hex.EncodeToString(raw), Err: cause}
}

type byteRecorder struct {
	r   io.ByteReader
	buf []byte
}

func (b *byteRecorder) ReadByte() (byte, error) {
	c, err := b.r.ReadByte()
	if err == nil {
		b.buf = append(b.buf, c)
	}
	return c, err
}

func fromOrdinal(v uint64) (State, error) {
	if v >= NumStates {
		return 0, &DecodeError{Format: FormatBinary, Kind: ErrIndexOutOfRange, Value: v}
	}
	return State(v), nil
}

func (s State) MarshalBinary() ([]byte, error) { return EncodeBinary(s) }

// UnmarshalBinary requires data to hold exactly one ordinal.
func (s *State) UnmarshalBinary(data []byte) error {
	v, n, err := DecodeBinary(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return malformed(data, fmt.Errorf("%d trailing bytes", len(data)-n))
	}
	*s = v
	return nil
}
