package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"voxeldisplay.ai/internal/sim/rotation"
)

// FrameRotation tags a binary ROTATION frame:
// tag, zigzag varint x, y, z, uvarint rotation ordinal.
const FrameRotation byte = 0x01

func AppendRotationFrame(dst []byte, pos [3]int, s rotation.State) ([]byte, error) {
	dst = append(dst, FrameRotation)
	for _, v := range pos {
		dst = binary.AppendVarint(dst, int64(v))
	}
	return rotation.AppendBinary(dst, s)
}

func DecodeRotationFrame(b []byte) (pos [3]int, s rotation.State, err error) {
	if len(b) == 0 || b[0] != FrameRotation {
		return pos, s, fmt.Errorf("%w: not a rotation frame", ErrBadEnvelope)
	}
	r := bytes.NewReader(b[1:])
	for k := range pos {
		v, err := binary.ReadVarint(r)
		if err != nil {
			return pos, s, fmt.Errorf("%w: bad varint for coordinate %d", ErrBadEnvelope, k)
		}
		pos[k] = int(v)
	}
	if s, err = rotation.ReadBinary(r); err != nil {
		return pos, s, err
	}
	if r.Len() != 0 {
		return pos, s, fmt.Errorf("%w: %d trailing bytes", ErrBadEnvelope, r.Len())
	}
	return pos, s, nil
}
