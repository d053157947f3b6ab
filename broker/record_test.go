package broker

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuntianze/trading-platform/cspkg"
)

func TestRecordRoundTrip(t *testing.T) {
	msgs := []cspkg.Message{
		&cspkg.AccountLoginReq{Account: 10000, SessionKey: "k", ClientID: 1},
		&cspkg.AccountLoginRes{Account: 10000, Result: 0, ClientID: 1},
		&cspkg.FuturesOrder{OrderID: "ord1", Symbol: "BTC-PERP", Side: cspkg.OrderSideBuy, Quantity: 1, Price: 50000, ClientID: 1},
		&cspkg.OrderResponse{OrderID: "ord1", Status: cspkg.OrderStatusAccepted, ClientID: 1},
	}
	for _, msg := range msgs {
		rec, err := EncodeRecord(msg)
		require.NoError(t, err)

		// name || 0x00 || payload
		require.True(t, bytes.HasPrefix(rec, append([]byte(msg.ProtoName()), 0)))

		got, err := DecodeRecord(rec)
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
}

func TestDecodeRecordErrors(t *testing.T) {
	t.Run("no separator", func(t *testing.T) {
		_, err := DecodeRecord([]byte("cspkg.AccountLoginReq"))
		require.ErrorIs(t, err, ErrRecordInvalid)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := DecodeRecord([]byte{0, 1, 2})
		require.ErrorIs(t, err, ErrRecordInvalid)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := DecodeRecord(append([]byte("cs_proto.Nope"), 0))
		require.ErrorIs(t, err, cspkg.ErrUnknownType)
	})

	t.Run("payload of the wrong shape", func(t *testing.T) {
		rec := append([]byte(cspkg.FuturesOrderName), 0)
		rec = append(rec, 0xFF)
		_, err := DecodeRecord(rec)
		require.ErrorIs(t, err, ErrRecordInvalid)
	})
}

// unroutedMessage has no client_id field, so it must be refused at produce
// time rather than travel unaddressable.
type unroutedMessage struct{}

func (unroutedMessage) ProtoName() string           { return "cs_proto.Heartbeat" }
func (unroutedMessage) Marshal() ([]byte, error)    { return nil, nil }
func (unroutedMessage) Unmarshal(data []byte) error { return nil }
func (m unroutedMessage) Clone() cspkg.Message      { return m }

func TestProduceRequiresRoutingField(t *testing.T) {
	c, err := New(Config{Brokers: []string{"127.0.0.1:9092"}})
	require.NoError(t, err)

	err = c.Produce(t.Context(), "any-topic", unroutedMessage{}, 3)
	require.ErrorIs(t, err, ErrMissingRoutingField)
}
