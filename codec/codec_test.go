package codec_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuntianze/trading-platform/codec"
	"github.com/yuntianze/trading-platform/cspkg"
)

func TestEncodeLayout(t *testing.T) {
	msg := &cspkg.AccountLoginRes{Account: 10000, ClientID: 4}
	frame, err := codec.Encode(msg)
	require.NoError(t, err)

	total := binary.BigEndian.Uint32(frame[:4])
	require.Equal(t, uint32(len(frame)), total, "total_len counts the whole frame")

	nameLen := binary.BigEndian.Uint32(frame[4:8])
	require.Equal(t, uint32(len(cspkg.AccountLoginResName)+1), nameLen)
	require.True(t, strings.Contains(string(frame), cspkg.AccountLoginResName+"\x00"),
		"frame carries the zero-terminated type name")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msgs := []cspkg.Message{
		&cspkg.AccountLoginReq{Account: 10000, SessionKey: "k"},
		&cspkg.AccountLoginRes{Account: 10000, Result: 0, ClientID: 2},
		&cspkg.FuturesOrder{OrderID: "ord1", Symbol: "ETH-PERP", Side: cspkg.OrderSideBuy, Quantity: 1, Price: 50000, ClientID: 2},
		&cspkg.OrderResponse{OrderID: "ord1", Status: cspkg.OrderStatusAccepted, ClientID: 2},
	}
	for _, msg := range msgs {
		frame, err := codec.Encode(msg)
		require.NoError(t, err)

		got, err := codec.Decode(frame)
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
}

// Any byte missing from a valid frame must fail to decode, whichever byte it
// is.
func TestDecodeTruncatedNeverSucceeds(t *testing.T) {
	frame, err := codec.Encode(&cspkg.FuturesOrder{
		OrderID: "ord1", Symbol: "BTC-PERP", Side: cspkg.OrderSideBuy,
		Quantity: 1.0, Price: 50000.0, ClientID: 1,
	})
	require.NoError(t, err)

	for cut := 0; cut < len(frame); cut++ {
		_, err := codec.Decode(frame[:cut])
		require.Error(t, err, "truncated at %d of %d bytes", cut, len(frame))
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, err := codec.Encode(&cspkg.AccountLoginReq{Account: 1, SessionKey: "k"})
	require.NoError(t, err)

	t.Run("short frame", func(t *testing.T) {
		_, err := codec.Decode([]byte{0, 0, 0, 3, 0xFF})
		require.ErrorIs(t, err, codec.ErrMalformedFrame)
	})

	t.Run("name_len too small", func(t *testing.T) {
		bad := append([]byte(nil), valid...)
		binary.BigEndian.PutUint32(bad[4:8], 1)
		_, err := codec.Decode(bad)
		require.ErrorIs(t, err, codec.ErrMalformedFrame)
	})

	t.Run("name_len beyond frame", func(t *testing.T) {
		bad := append([]byte(nil), valid...)
		binary.BigEndian.PutUint32(bad[4:8], uint32(len(bad)))
		_, err := codec.Decode(bad)
		require.ErrorIs(t, err, codec.ErrMalformedFrame)
	})

	t.Run("unknown type", func(t *testing.T) {
		name := "cspkg.NoSuchThing"
		frame := make([]byte, 0, 8+len(name)+1)
		frame = binary.BigEndian.AppendUint32(frame, uint32(8+len(name)+1))
		frame = binary.BigEndian.AppendUint32(frame, uint32(len(name)+1))
		frame = append(frame, name...)
		frame = append(frame, 0)
		_, err := codec.Decode(frame)
		require.ErrorIs(t, err, cspkg.ErrUnknownType)
	})

	t.Run("payload not the named type", func(t *testing.T) {
		bad := append([]byte(nil), valid...)
		bad = append(bad, 0xFF) // dangling tag byte
		binary.BigEndian.PutUint32(bad[:4], uint32(len(bad)))
		_, err := codec.Decode(bad)
		require.ErrorIs(t, err, codec.ErrPayloadDecode)
	})
}
