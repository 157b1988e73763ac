package protocol

import (
	"encoding/json"
	"errors"

	"voxeldisplay.ai/internal/sim/rotation"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	// BinaryFrames asks for ROTATION updates as binary websocket frames.
	BinaryFrames bool `json:"binary_frames,omitempty"`
	MaxQueue     int  `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	SessionID       string       `json:"session_id"`
	Rotations       []string     `json:"rotations"` // catalog in wire order
	Displays        []DisplayRef `json:"displays"`
}

type DisplayRef struct {
	Pos      [3]int         `json:"pos"`
	Rotation rotation.State `json:"rotation"`
}

// SET_ROTATION (client -> server). Rotation is any JSON the rotation codec
// accepts: a canonical name or an {axis, degrees} object.
type SetRotationMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ReqID           string          `json:"req_id,omitempty"`
	Pos             [3]int          `json:"pos"`
	Rotation        json.RawMessage `json:"rotation"`
}

// ROTATION (server -> client)
type RotationMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Pos             [3]int         `json:"pos"`
	Rotation        rotation.State `json:"rotation"`
	By              string         `json:"by,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	Value           any    `json:"value,omitempty"`
}

// NewError builds an ERROR message. Codes outside the known set are reported
// as E_INTERNAL.
func NewError(reqID, code, message string) ErrorMsg {
	if !IsKnownCode(code) {
		code = ErrInternal
		if message == "" {
			message = "unknown error code"
		}
	}
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		ReqID:           reqID,
		Code:            code,
		Message:         message,
	}
}

func NewErrorMsg(reqID string, err error) ErrorMsg {
	m := NewError(reqID, CodeForError(err), err.Error())
	var de *rotation.DecodeError
	if errors.As(err, &de) {
		m.Value = de.Value
	}
	return m
}
