package broker

import (
	"bytes"
	"fmt"

	"github.com/yuntianze/trading-platform/cspkg"
)

// Records on the broker are not TCP frames: the consumer dispatches by the
// leading fully-qualified name, split from the payload at the first zero
// byte.
//
//	type_name || 0x00 || serialized_payload

// EncodeRecord packs a message into its broker record form.
func EncodeRecord(m cspkg.Message) ([]byte, error) {
	payload, err := m.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", m.ProtoName(), err)
	}
	name := m.ProtoName()
	rec := make([]byte, 0, len(name)+1+len(payload))
	rec = append(rec, name...)
	rec = append(rec, 0)
	rec = append(rec, payload...)
	return rec, nil
}

// DecodeRecord unpacks a broker record into its typed message.
func DecodeRecord(rec []byte) (cspkg.Message, error) {
	sep := bytes.IndexByte(rec, 0)
	if sep <= 0 {
		return nil, fmt.Errorf("%w: no type name separator", ErrRecordInvalid)
	}
	name := string(rec[:sep])
	msg, err := cspkg.New(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", cspkg.ErrUnknownType, name)
	}
	if err := msg.Unmarshal(rec[sep+1:]); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRecordInvalid, name, err)
	}
	return msg, nil
}
