package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zfxlabs/subzero/codec"
)

// maxFrameSize bounds a single message's encoded payload, guarding a peer
// connection against an adversarial or corrupt length prefix driving an
// unbounded allocation.
const maxFrameSize = 16 << 20

// ErrFrameTooLarge is returned by ReadMessage when a peer's length prefix
// exceeds maxFrameSize.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// WriteMessage frames and writes a single message: a 4-byte big-endian
// length (covering the type byte and the CBOR payload that follows),
// the Type byte, then the CBOR-encoded payload itself. One request or
// response per call, matching this protocol's one-message-per-write
// discipline.
func WriteMessage(w io.Writer, typ Type, v interface{}) error {
	payload, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: encode payload: %w", err)
	}
	frame := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(1+len(payload)))
	frame[4] = byte(typ)
	copy(frame[5:], payload)

	_, err = w.Write(frame)
	return err
}

// ReadMessage reads the next framed message off r, returning its type tag
// and the still-CBOR-encoded payload. Callers unmarshal the payload into
// the concrete struct the Type indicates (see Decode).
func ReadMessage(r io.Reader) (Type, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	if size == 0 {
		return 0, nil, fmt.Errorf("wire: empty frame")
	}
	if size > maxFrameSize {
		return 0, nil, ErrFrameTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return Type(body[0]), body[1:], nil
}

// Decode unmarshals a payload previously returned by ReadMessage into v.
func Decode(payload []byte, v interface{}) error {
	return codec.Unmarshal(payload, v)
}
