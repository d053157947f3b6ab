package cspkg

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// OrderSide selects the intake queue on the order side.
type OrderSide int32

const (
	OrderSideBuy  OrderSide = 0
	OrderSideSell OrderSide = 1
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return fmt.Sprintf("SIDE(%d)", int32(s))
	}
}

// Valid reports whether s is a defined side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

type OrderType int32

const (
	OrderTypeLimit     OrderType = 0
	OrderTypeMarket    OrderType = 1
	OrderTypeStop      OrderType = 2
	OrderTypeStopLimit OrderType = 3
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeStop:
		return "STOP"
	case OrderTypeStopLimit:
		return "STOP_LIMIT"
	default:
		return fmt.Sprintf("TYPE(%d)", int32(t))
	}
}

func (t OrderType) Valid() bool {
	return t >= OrderTypeLimit && t <= OrderTypeStopLimit
}

type OrderStatus int32

const (
	OrderStatusPending  OrderStatus = 0
	OrderStatusAccepted OrderStatus = 1
	OrderStatusRejected OrderStatus = 2
	OrderStatusFilled   OrderStatus = 3
	OrderStatusCanceled OrderStatus = 4
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "PENDING"
	case OrderStatusAccepted:
		return "ACCEPTED"
	case OrderStatusRejected:
		return "REJECTED"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCanceled:
		return "CANCELED"
	default:
		return fmt.Sprintf("STATUS(%d)", int32(s))
	}
}

// AccountLoginReq asks the order side to validate a session token.
type AccountLoginReq struct {
	Account    uint32
	SessionKey string
	ClientID   uint32
}

func (m *AccountLoginReq) ProtoName() string { return AccountLoginReqName }

func (m *AccountLoginReq) Marshal() ([]byte, error) {
	var b []byte
	if m.Account != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Account))
	}
	if m.SessionKey != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, m.SessionKey)
	}
	if m.ClientID != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ClientID))
	}
	return b, nil
}

func (m *AccountLoginReq) Unmarshal(data []byte) error {
	*m = AccountLoginReq{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Account = uint32(v)
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m.SessionKey = string(v)
			}
			return n, nil
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.ClientID = uint32(v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

func (m *AccountLoginReq) Clone() Message {
	c := *m
	return &c
}

func (m *AccountLoginReq) GetClientID() uint32   { return m.ClientID }
func (m *AccountLoginReq) SetClientID(id uint32) { m.ClientID = id }

// AccountLoginRes reports a login result; 0 means success.
type AccountLoginRes struct {
	Account  uint32
	Result   int32
	ClientID uint32
}

func (m *AccountLoginRes) ProtoName() string { return AccountLoginResName }

func (m *AccountLoginRes) Marshal() ([]byte, error) {
	var b []byte
	if m.Account != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Account))
	}
	if m.Result != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.Result)))
	}
	if m.ClientID != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ClientID))
	}
	return b, nil
}

func (m *AccountLoginRes) Unmarshal(data []byte) error {
	*m = AccountLoginRes{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Account = uint32(v)
			return n, nil
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Result = int32(v)
			return n, nil
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.ClientID = uint32(v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

func (m *AccountLoginRes) Clone() Message {
	c := *m
	return &c
}

func (m *AccountLoginRes) GetClientID() uint32   { return m.ClientID }
func (m *AccountLoginRes) SetClientID(id uint32) { m.ClientID = id }

// FuturesOrder is a client order request. Timestamp is unix milliseconds.
type FuturesOrder struct {
	OrderID   string
	UserID    uint64
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Quantity  float64
	Price     float64
	Status    OrderStatus
	Timestamp int64
	ClientID  uint32
}

func (m *FuturesOrder) ProtoName() string { return FuturesOrderName }

func (m *FuturesOrder) Marshal() ([]byte, error) {
	var b []byte
	if m.OrderID != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.OrderID)
	}
	if m.UserID != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, m.UserID)
	}
	if m.Symbol != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, m.Symbol)
	}
	if m.Side != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.Side)))
	}
	if m.Type != 0 {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.Type)))
	}
	if m.Quantity != 0 {
		b = protowire.AppendTag(b, 6, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(m.Quantity))
	}
	if m.Price != 0 {
		b = protowire.AppendTag(b, 7, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(m.Price))
	}
	if m.Status != 0 {
		b = protowire.AppendTag(b, 8, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.Status)))
	}
	if m.Timestamp != 0 {
		b = protowire.AppendTag(b, 9, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Timestamp))
	}
	if m.ClientID != 0 {
		b = protowire.AppendTag(b, 10, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ClientID))
	}
	return b, nil
}

func (m *FuturesOrder) Unmarshal(data []byte) error {
	*m = FuturesOrder{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m.OrderID = string(v)
			}
			return n, nil
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.UserID = v
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m.Symbol = string(v)
			}
			return n, nil
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Side = OrderSide(v)
			return n, nil
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Type = OrderType(v)
			return n, nil
		case num == 6 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			m.Quantity = math.Float64frombits(v)
			return n, nil
		case num == 7 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			m.Price = math.Float64frombits(v)
			return n, nil
		case num == 8 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Status = OrderStatus(v)
			return n, nil
		case num == 9 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Timestamp = int64(v)
			return n, nil
		case num == 10 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.ClientID = uint32(v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

func (m *FuturesOrder) Clone() Message {
	c := *m
	return &c
}

func (m *FuturesOrder) GetClientID() uint32   { return m.ClientID }
func (m *FuturesOrder) SetClientID(id uint32) { m.ClientID = id }

// OrderResponse reports intake status for one order back to its client.
type OrderResponse struct {
	OrderID  string
	Status   OrderStatus
	Message  string
	ClientID uint32
}

func (m *OrderResponse) ProtoName() string { return OrderResponseName }

func (m *OrderResponse) Marshal() ([]byte, error) {
	var b []byte
	if m.OrderID != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.OrderID)
	}
	if m.Status != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.Status)))
	}
	if m.Message != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, m.Message)
	}
	if m.ClientID != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ClientID))
	}
	return b, nil
}

func (m *OrderResponse) Unmarshal(data []byte) error {
	*m = OrderResponse{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m.OrderID = string(v)
			}
			return n, nil
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Status = OrderStatus(v)
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				m.Message = string(v)
			}
			return n, nil
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.ClientID = uint32(v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

func (m *OrderResponse) Clone() Message {
	c := *m
	return &c
}

func (m *OrderResponse) GetClientID() uint32   { return m.ClientID }
func (m *OrderResponse) SetClientID(id uint32) { m.ClientID = id }

// walkFields iterates the wire fields of data, letting consume handle known
// fields and falling through to ConsumeFieldValue for unknown ones.
func walkFields(data []byte, consume func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		n, err := consume(num, typ, data)
		if err != nil {
			return err
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
	}
	return nil
}
