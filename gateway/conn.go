package gateway

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/yuntianze/trading-platform/connmgr"
	"github.com/yuntianze/trading-platform/metrics"
)

// maxSendPkgNum bounds the per-connection write queue; exceeding it closes
// the connection instead of buffering without limit.
const maxSendPkgNum = 512

const writeTimeout = 5 * time.Second

type eventKind int

const (
	evData eventKind = iota
	evClosed
	evWriteErr
)

// connEvent is what per-connection goroutines marshal onto the loop. idx/gen
// form the tagged handle; a stale generation means the slot was reused and
// the event is ignored.
type connEvent struct {
	kind   eventKind
	idx    int
	gen    uint64
	frames [][]byte
	err    error
}

// clientConn is the runtime half of a slot: the socket plus the goroutines
// that own it. The ring belongs to the reader goroutine, the send queue to
// the loop (sender) and writer goroutine (receiver).
type clientConn struct {
	idx   int
	gen   uint64
	nc    net.Conn
	ring  *connmgr.Ring
	sendq chan []byte
}

func newClientConn(idx int, gen uint64, nc net.Conn) *clientConn {
	return &clientConn{
		idx:   idx,
		gen:   gen,
		nc:    nc,
		ring:  connmgr.NewRing(),
		sendq: make(chan []byte, maxSendPkgNum),
	}
}

// readLoop reads the socket directly into the ring's writable tail, then
// drains whole frames and posts them to the loop. It exits on any read or
// framing error; the loop does the bookkeeping.
func (s *Server) readLoop(c *clientConn) {
	defer s.wg.Done()
	for {
		buf, err := c.ring.Writable()
		if err != nil {
			metrics.TransportErrors.WithLabelValues("buffer_full").Inc()
			s.post(connEvent{kind: evClosed, idx: c.idx, gen: c.gen, err: err})
			return
		}

		n, rerr := c.nc.Read(buf)
		if n > 0 {
			c.ring.Commit(n)

			var frames [][]byte
			var ferr error
			for {
				var f []byte
				f, ferr = c.ring.Next()
				if f == nil || ferr != nil {
					break
				}
				frames = append(frames, f)
			}
			// Deliver frames completed before any framing error; the
			// error then closes the connection.
			s.post(connEvent{kind: evData, idx: c.idx, gen: c.gen, frames: frames})
			if ferr != nil {
				metrics.FramingErrors.WithLabelValues("packet_invalid").Inc()
				s.post(connEvent{kind: evClosed, idx: c.idx, gen: c.gen, err: ferr})
				return
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				metrics.TransportErrors.WithLabelValues("client_close").Inc()
			} else {
				metrics.TransportErrors.WithLabelValues("read_error").Inc()
			}
			s.post(connEvent{kind: evClosed, idx: c.idx, gen: c.gen, err: rerr})
			return
		}
	}
}

// writeLoop drains the send queue onto the socket. After the loop closes the
// queue, remaining frames are flushed and the socket is closed here, so
// queued responses reach the client before the FIN.
func (s *Server) writeLoop(c *clientConn) {
	defer s.wg.Done()
	defer c.nc.Close()

	failed := false
	for buf := range c.sendq {
		if failed {
			continue // discard the rest after a write error
		}
		c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.nc.Write(buf); err != nil {
			failed = true
			metrics.TransportErrors.WithLabelValues("write_error").Inc()
			s.post(connEvent{kind: evWriteErr, idx: c.idx, gen: c.gen, err: err})
			continue
		}
		metrics.SentPackets.Inc()
	}
}

// post delivers an event to the loop unless the loop has already exited.
func (s *Server) post(e connEvent) {
	select {
	case s.events <- e:
	case <-s.loopDone:
	}
}

func remoteIP(nc net.Conn) string {
	host, _, err := net.SplitHostPort(nc.RemoteAddr().String())
	if err != nil {
		return nc.RemoteAddr().String()
	}
	return host
}
