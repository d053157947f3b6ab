// Package cspkg defines the client<->server protocol messages.
//
// The fully-qualified message name doubles as the command word: frames on the
// TCP wire and records on the broker both carry the name next to the payload,
// so no separate cmd id or version field is needed. Payloads use the protobuf
// wire format; unknown fields are skipped on decode so old peers tolerate new
// fields.
package cspkg

import "errors"

// Message is one protocol message kind.
type Message interface {
	// ProtoName returns the fully-qualified message name, e.g.
	// "cspkg.AccountLoginReq".
	ProtoName() string
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
	// Clone returns a deep copy. Senders that stamp routing metadata must
	// clone first and never mutate the caller's message.
	Clone() Message
}

// Routable is implemented by messages carrying the client_id routing field.
type Routable interface {
	GetClientID() uint32
	SetClientID(id uint32)
}

var ErrUnknownType = errors.New("unknown message type")

// Fully-qualified message names. The cspkg/cs_proto split mirrors the wire
// protocol's package layout and must not change: peers dispatch on these
// exact strings.
const (
	AccountLoginReqName = "cspkg.AccountLoginReq"
	AccountLoginResName = "cspkg.AccountLoginRes"
	FuturesOrderName    = "cs_proto.FuturesOrder"
	OrderResponseName   = "cs_proto.OrderResponse"
)

var registry = map[string]func() Message{
	AccountLoginReqName: func() Message { return new(AccountLoginReq) },
	AccountLoginResName: func() Message { return new(AccountLoginRes) },
	FuturesOrderName:    func() Message { return new(FuturesOrder) },
	OrderResponseName:   func() Message { return new(OrderResponse) },
}

// New creates an empty message for a fully-qualified name.
func New(name string) (Message, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, ErrUnknownType
	}
	return ctor(), nil
}

// Known reports whether name is a registered message name.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}
