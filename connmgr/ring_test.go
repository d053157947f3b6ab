package connmgr

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// frame builds a syntactically valid wire frame of total bytes.
func frame(t *testing.T, total int) []byte {
	t.Helper()
	require.GreaterOrEqual(t, total, 4)
	b := make([]byte, total)
	binary.BigEndian.PutUint32(b, uint32(total))
	for i := 4; i < total; i++ {
		b[i] = byte(i)
	}
	return b
}

// feed writes data into the ring through the writable-tail interface, the
// way the reader goroutine does.
func feed(t *testing.T, r *Ring, data []byte) {
	t.Helper()
	for len(data) > 0 {
		buf, err := r.Writable()
		require.NoError(t, err)
		n := copy(buf, data)
		r.Commit(n)
		data = data[n:]
	}
}

func drain(t *testing.T, r *Ring) [][]byte {
	t.Helper()
	var frames [][]byte
	for {
		f, err := r.Next()
		require.NoError(t, err)
		if f == nil {
			return frames
		}
		frames = append(frames, f)
	}
}

func TestPrefixBuffersInsteadOfEmitting(t *testing.T) {
	full := frame(t, 100)
	for cut := 0; cut < len(full); cut++ {
		r := NewRing()
		feed(t, r, full[:cut])

		f, err := r.Next()
		require.NoError(t, err)
		require.Nil(t, f, "prefix of %d/%d bytes must buffer", cut, len(full))
		require.Equal(t, cut, r.Len())
	}
}

func TestTwoFramesAnyChunking(t *testing.T) {
	f1 := frame(t, 37)
	f2 := frame(t, 251)
	stream := append(append([]byte(nil), f1...), f2...)

	for cut := 1; cut < len(stream); cut++ {
		r := NewRing()
		var got [][]byte

		feed(t, r, stream[:cut])
		got = append(got, drain(t, r)...)
		feed(t, r, stream[cut:])
		got = append(got, drain(t, r)...)

		require.Len(t, got, 2, "split at %d", cut)
		require.Equal(t, f1, got[0])
		require.Equal(t, f2, got[1])
		require.Zero(t, r.Len())
	}
}

func TestInvalidFrameLength(t *testing.T) {
	tests := []struct {
		name string
		head uint32
	}{
		{"zero", 0},
		{"negative when signed", 0x80000000},
		{"beyond buffer", RecvBufLen + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing()
			var head [4]byte
			binary.BigEndian.PutUint32(head[:], tt.head)
			feed(t, r, head[:])

			_, err := r.Next()
			require.ErrorIs(t, err, ErrPacketInvalid)
		})
	}
}

// A frame wrapping the end of the buffer must come out contiguous and
// intact.
func TestWrapAroundExtraction(t *testing.T) {
	r := NewRing()

	// Walk the cursor near the end of the buffer, then feed a frame that
	// must wrap.
	warmup := frame(t, RecvBufLen-10)
	feed(t, r, warmup)
	require.Equal(t, warmup, drain(t, r)[0])

	wrapped := frame(t, 100)
	feed(t, r, wrapped)
	got := drain(t, r)
	require.Len(t, got, 1)
	require.Equal(t, wrapped, got[0])
	require.Zero(t, r.Len())
}

func TestHeaderSplitAcrossWrap(t *testing.T) {
	r := NewRing()

	warmup := frame(t, RecvBufLen-2)
	feed(t, r, warmup)
	drain(t, r)

	// The four length bytes now straddle the wrap point.
	f := frame(t, 64)
	feed(t, r, f)
	got := drain(t, r)
	require.Len(t, got, 1)
	require.Equal(t, f, got[0])
}

func TestWritableNeverOverlapsUnread(t *testing.T) {
	r := NewRing()
	f := frame(t, 5000)
	feed(t, r, f)

	buf, err := r.Writable()
	require.NoError(t, err)
	require.LessOrEqual(t, len(buf), RecvBufLen-r.Len())
}

func TestFullBufferRejectsAllocation(t *testing.T) {
	r := NewRing()

	// One maximum-size frame fills the buffer exactly when nothing is
	// drained in between.
	feed(t, r, frame(t, RecvBufLen))
	require.Equal(t, RecvBufLen, r.Len())

	_, err := r.Writable()
	require.ErrorIs(t, err, ErrBufferFull)

	// The frame is still extractable: full and empty are distinct states.
	got := drain(t, r)
	require.Len(t, got, 1)
	require.Equal(t, RecvBufLen, len(got[0]))

	_, err = r.Writable()
	require.NoError(t, err)
}
