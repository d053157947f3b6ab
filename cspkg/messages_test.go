package cspkg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "login request",
			msg:  &AccountLoginReq{Account: 10000, SessionKey: "k", ClientID: 7},
		},
		{
			name: "login response",
			msg:  &AccountLoginRes{Account: 10000, Result: 1, ClientID: 7},
		},
		{
			name: "futures order",
			msg: &FuturesOrder{
				OrderID:   "ord1",
				UserID:    10000,
				Symbol:    "BTC-PERP",
				Side:      OrderSideSell,
				Type:      OrderTypeStopLimit,
				Quantity:  1.5,
				Price:     50000.25,
				Status:    OrderStatusPending,
				Timestamp: 1721000000123,
				ClientID:  3,
			},
		},
		{
			name: "order response",
			msg: &OrderResponse{
				OrderID:  "ord1",
				Status:   OrderStatusRejected,
				Message:  "quantity must be positive",
				ClientID: 3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.msg.Marshal()
			require.NoError(t, err)

			decoded, err := New(tt.msg.ProtoName())
			require.NoError(t, err)
			require.NoError(t, decoded.Unmarshal(data))
			require.Equal(t, tt.msg, decoded)
		})
	}
}

func TestZeroValueRoundTrip(t *testing.T) {
	for _, name := range []string{
		AccountLoginReqName, AccountLoginResName, FuturesOrderName, OrderResponseName,
	} {
		msg, err := New(name)
		require.NoError(t, err)

		data, err := msg.Marshal()
		require.NoError(t, err)
		require.Empty(t, data, "zero message should marshal to no fields")

		decoded, err := New(name)
		require.NoError(t, err)
		require.NoError(t, decoded.Unmarshal(data))
		require.Equal(t, msg, decoded)
	}
}

// Peers with newer schemas may send fields we do not know; decoding must
// skip them and keep the known ones.
func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	data, err := (&AccountLoginReq{Account: 42, SessionKey: "s"}).Marshal()
	require.NoError(t, err)

	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendString(data, "from the future")
	data = protowire.AppendTag(data, 100, protowire.VarintType)
	data = protowire.AppendVarint(data, 12345)

	var got AccountLoginReq
	require.NoError(t, got.Unmarshal(data))
	require.Equal(t, uint32(42), got.Account)
	require.Equal(t, "s", got.SessionKey)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var got FuturesOrder
	require.Error(t, got.Unmarshal([]byte{0xFF}))
}

func TestCloneIsIndependent(t *testing.T) {
	orig := &FuturesOrder{OrderID: "ord1", Side: OrderSideBuy, ClientID: 1}
	clone := orig.Clone().(*FuturesOrder)
	clone.SetClientID(99)
	clone.OrderID = "other"

	require.Equal(t, uint32(1), orig.ClientID)
	require.Equal(t, "ord1", orig.OrderID)
}

func TestRegistry(t *testing.T) {
	require.True(t, Known(FuturesOrderName))
	require.False(t, Known("cs_proto.Unheard"))

	_, err := New("cs_proto.Unheard")
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestAllKindsRoutable(t *testing.T) {
	for _, name := range []string{
		AccountLoginReqName, AccountLoginResName, FuturesOrderName, OrderResponseName,
	} {
		msg, err := New(name)
		require.NoError(t, err)

		r, ok := msg.(Routable)
		require.True(t, ok, "%s must carry client_id", name)
		r.SetClientID(11)
		require.Equal(t, uint32(11), r.GetClientID())
	}
}
