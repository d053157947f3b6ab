// Package codec packs protocol messages into self-describing TCP frames.
//
// Frame layout, all integers big-endian:
//
//	total_len (4) | name_len (4) | type_name bytes + 0x00 | payload
//
// total_len counts the whole frame including itself; name_len counts the name
// including its terminating zero byte. The framer on the receive path hands
// Decode exactly one whole frame.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/yuntianze/trading-platform/cspkg"
)

const (
	// HeadFieldSize is the byte width of each length field.
	HeadFieldSize = 4
	// MaxFrameLen bounds a frame to the per-slot receive buffer size.
	MaxFrameLen = 16384
	// MinFrameLen is the smallest decodable frame: two length fields, a
	// one-byte name and its terminator, empty payload.
	MinFrameLen = 2*HeadFieldSize + 2
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrPayloadDecode  = errors.New("payload decode failed")
)

// Encode packs m into a wire frame. It fails only if serialization fails.
func Encode(m cspkg.Message) ([]byte, error) {
	payload, err := m.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.ProtoName(), err)
	}

	name := m.ProtoName()
	nameLen := len(name) + 1 // terminating zero byte included
	total := 2*HeadFieldSize + nameLen + len(payload)

	buf := make([]byte, 0, total)
	buf = binary.BigEndian.AppendUint32(buf, uint32(total))
	buf = binary.BigEndian.AppendUint32(buf, uint32(nameLen))
	buf = append(buf, name...)
	buf = append(buf, 0)
	buf = append(buf, payload...)
	return buf, nil
}

// Decode unpacks one whole frame into its message.
func Decode(buf []byte) (cspkg.Message, error) {
	if len(buf) < 2*HeadFieldSize {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrMalformedFrame, len(buf))
	}

	// The framer hands over exactly one frame; any mismatch means bytes
	// went missing, and a truncated frame must never decode.
	if total := int(binary.BigEndian.Uint32(buf[:HeadFieldSize])); total != len(buf) {
		return nil, fmt.Errorf("%w: total_len %d but %d bytes", ErrMalformedFrame, total, len(buf))
	}

	nameLen := int(binary.BigEndian.Uint32(buf[HeadFieldSize : 2*HeadFieldSize]))
	if nameLen < 2 || nameLen > len(buf)-2*HeadFieldSize {
		return nil, fmt.Errorf("%w: name_len %d in %d-byte frame", ErrMalformedFrame, nameLen, len(buf))
	}

	// Drop the terminating zero byte from the name.
	name := string(buf[2*HeadFieldSize : 2*HeadFieldSize+nameLen-1])
	msg, err := cspkg.New(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", cspkg.ErrUnknownType, name)
	}

	if err := msg.Unmarshal(buf[2*HeadFieldSize+nameLen:]); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPayloadDecode, name, err)
	}
	return msg, nil
}
