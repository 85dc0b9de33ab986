package api

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Wire formats for live-stream frames.
const (
	// FormatJSON is the default, human-readable frame format.
	FormatJSON = "json"
	// FormatMsgpack is the compact binary frame format.
	FormatMsgpack = "msgpack"
)

// Codec encodes and decodes live-stream frames. Implementations are
// stateless and safe for concurrent use.
type Codec interface {
	// Encode serializes a frame for transmission.
	Encode(f *Frame) ([]byte, error)
	// Decode parses a received frame.
	Decode(data []byte) (*Frame, error)
	// Name returns the wire name of the format.
	Name() string
	// Binary reports whether frames travel as binary WebSocket messages.
	Binary() bool
}

// GetCodec returns the codec for the given wire format name.
func GetCodec(format string) (Codec, error) {
	switch format {
	case FormatJSON, "":
		return &JSONCodec{}, nil
	case FormatMsgpack:
		return &MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported frame format: %s", format)
	}
}

// JSONCodec carries frames as JSON text messages.
type JSONCodec struct{}

// Encode serializes the frame as JSON.
func (c *JSONCodec) Encode(f *Frame) ([]byte, error) {
	return json.Marshal(f)
}

// Decode parses a JSON frame.
func (c *JSONCodec) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode json frame: %w", err)
	}

	return &f, nil
}

// Name returns "json".
func (c *JSONCodec) Name() string { return FormatJSON }

// Binary returns false; JSON frames travel as text messages.
func (c *JSONCodec) Binary() bool { return false }

// MsgpackCodec carries frames as MessagePack binary messages.
type MsgpackCodec struct{}

// Encode serializes the frame as MessagePack.
func (c *MsgpackCodec) Encode(f *Frame) ([]byte, error) {
	return msgpack.Marshal(f)
}

// Decode parses a MessagePack frame.
func (c *MsgpackCodec) Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode msgpack frame: %w", err)
	}

	return &f, nil
}

// Name returns "msgpack".
func (c *MsgpackCodec) Name() string { return FormatMsgpack }

// Binary returns true; MessagePack frames travel as binary messages.
func (c *MsgpackCodec) Binary() bool { return true }
