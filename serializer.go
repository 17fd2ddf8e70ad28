package namedsem

import (
	"encoding/binary"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializer defines the interface for encoding values exchanged with other
// processes. The default implementation uses MessagePack.
type Serializer interface {
	// Marshal encodes a Go value to bytes.
	Marshal(v interface{}) ([]byte, error)

	// Unmarshal decodes bytes into a Go value.
	Unmarshal(data []byte, v interface{}) error
}

// MsgpackSerializer implements Serializer with MessagePack.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackSerializer) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// maxFrameSize rejects corrupt length prefixes before allocating.
const maxFrameSize = 16 << 20

// writeFrame writes data preceded by its length as a 4-byte big-endian
// integer, in a single Write. Payloads over maxFrameSize are rejected, since
// readFrame would refuse them.
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return newError("write", "", KindResourceLimit, "frame of %d bytes exceeds %d", len(data), maxFrameSize)
	}
	frame := frames.getFrame(len(data))
	defer frames.putFrame(frame)

	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[frameHeaderSize:], data)
	_, err := w.Write(frame)
	return err
}

// readFrame reads one frame written by writeFrame.
func readFrame(r io.Reader) ([]byte, error) {
	var length [frameHeaderSize]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(length[:])
	if n > maxFrameSize {
		return nil, newError("read", "", KindResourceLimit, "frame of %d bytes exceeds %d", n, maxFrameSize)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
