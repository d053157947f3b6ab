// Package gateway is the client-facing half of the request plane: it accepts
// TCP connections, frames inbound bytes, forwards requests over the broker,
// and routes broker responses back to the exact client slot.
//
// One loop goroutine owns the connection table and all routing. Everything
// else — socket readers and writers, the broker consumer — marshals onto it
// through channels, so no slot state is ever touched concurrently.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yuntianze/trading-platform/broker"
	"github.com/yuntianze/trading-platform/config"
	"github.com/yuntianze/trading-platform/connmgr"
	"github.com/yuntianze/trading-platform/logging"
	"github.com/yuntianze/trading-platform/metrics"
)

const (
	sweepInterval = 100 * time.Millisecond
	statInterval  = 20 * time.Second
	// flushTimeout bounds how long shutdown waits for in-flight writes.
	flushTimeout = time.Second
)

var ErrBindFailure = errors.New("bind failure")

// Broker is the transport surface the gateway needs: produce plus one
// background consumer feeding the loop.
type Broker interface {
	broker.Producer
	StartConsuming(topics []string, groupID string) (<-chan broker.Inbound, error)
	StopConsuming()
}

type Server struct {
	cfg        atomic.Pointer[config.Config]
	configPath string
	logger     *slog.Logger
	bk         Broker

	table *connmgr.Table
	conns [connmgr.MaxSocketNum]*clientConn

	accepts  chan net.Conn
	events   chan connEvent
	reload   chan struct{}
	loopDone chan struct{}
	addr     atomic.Value // net.Addr once the listener is bound

	wg sync.WaitGroup

	recvCount uint64
	sentCount uint64
}

type ServerOption func(*Server)

func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfigPath lets SIGUSR1 re-read the key=value file the process was
// started with.
func WithConfigPath(path string) ServerOption {
	return func(s *Server) { s.configPath = path }
}

func NewServer(cfg *config.Config, bk Broker, opts ...ServerOption) *Server {
	s := &Server{
		bk:       bk,
		table:    connmgr.NewTable(),
		accepts:  make(chan net.Conn, 64),
		events:   make(chan connEvent, maxSendPkgNum),
		reload:   make(chan struct{}, 1),
		loopDone: make(chan struct{}),
	}
	s.cfg.Store(cfg)
	for _, fn := range opts {
		fn(s)
	}
	if s.logger == nil {
		s.logger, _ = logging.NewFromEnv()
	}
	return s
}

// Addr returns the bound listen address once Run has created the listener,
// nil before that.
func (s *Server) Addr() net.Addr {
	if a, ok := s.addr.Load().(net.Addr); ok {
		return a
	}
	return nil
}

// Reload requests a config reload at the next loop iteration. Safe from a
// signal handler goroutine; never aborts in-flight work.
func (s *Server) Reload() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// Run binds the listener, starts the broker consumer, and enters the event
// loop until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.cfg.Load()

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBindFailure, cfg.ListenAddr(), err)
	}
	defer ln.Close()
	s.addr.Store(ln.Addr())

	inbound, err := s.bk.StartConsuming([]string{cfg.OrderToGatewayTopic}, cfg.GatewayConsumerGroupID)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	acceptDone := make(chan struct{})
	go s.acceptLoop(ln, acceptDone)

	s.logger.Info("gateway started",
		slog.String("listen", cfg.ListenAddr()),
		slog.Int("max_connections", connmgr.MaxSocketNum))

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	stat := time.NewTicker(statInterval)
	defer stat.Stop()

	for {
		select {
		case <-ctx.Done():
			// Release anyone blocked on the loop's channels before
			// waiting for them.
			close(s.loopDone)
			ln.Close()
			<-acceptDone
			s.bk.StopConsuming()
			s.shutdown()
			return nil

		case nc := <-s.accepts:
			s.onAccept(nc)

		case e := <-s.events:
			s.onEvent(e)

		case in, ok := <-inbound:
			if ok {
				s.routeInbound(in)
			}

		case now := <-sweep.C:
			s.sweepTimeouts(now)

		case <-stat.C:
			s.logStats()

		case <-s.reload:
			s.reloadConfig()
		}
	}
}

func (s *Server) acceptLoop(ln net.Listener, done chan<- struct{}) {
	defer close(done)
	for {
		nc, err := ln.Accept()
		if err != nil {
			return // listener closed
		}
		select {
		case s.accepts <- nc:
		case <-s.loopDone:
			nc.Close()
			return
		}
	}
}

func (s *Server) onAccept(nc net.Conn) {
	slot, err := s.table.Add(remoteIP(nc), time.Now())
	if err != nil {
		s.logger.Error("connection rejected", slog.String("peer", nc.RemoteAddr().String()), slog.Any("err", err))
		nc.Close()
		return
	}

	c := newClientConn(slot.Index, slot.Gen, nc)
	s.conns[slot.Index] = c
	metrics.ActiveConnections.Set(float64(s.table.Count()))

	s.wg.Add(2)
	go s.readLoop(c)
	go s.writeLoop(c)

	s.logger.Info("new connection",
		slog.Int("index", slot.Index), slog.String("peer", slot.ClientIP),
		slog.Int("total", s.table.Count()))
}

func (s *Server) onEvent(e connEvent) {
	c := s.conns[e.idx]
	if c == nil || c.gen != e.gen {
		return // stale event for a reused slot
	}

	switch e.kind {
	case evData:
		s.table.Touch(e.idx, time.Now())
		for _, frame := range e.frames {
			metrics.RecvPackets.Inc()
			s.recvCount++
			s.routeFrame(e.idx, frame)
			// routeFrame may close the connection on a framing error
			if s.conns[e.idx] == nil || s.conns[e.idx].gen != e.gen {
				return
			}
		}

	case evClosed, evWriteErr:
		s.closeConn(e.idx, e.gen, e.err)
	}
}

// closeConn releases a slot: table entry, slot array, send queue. The writer
// goroutine flushes what is already queued and closes the socket; the reader
// exits on the socket close. A stale gen is a no-op.
func (s *Server) closeConn(idx int, gen uint64, cause error) {
	c := s.conns[idx]
	if c == nil || (gen != 0 && c.gen != gen) {
		return
	}
	s.conns[idx] = nil
	s.table.Remove(idx)
	close(c.sendq)
	metrics.ActiveConnections.Set(float64(s.table.Count()))

	s.logger.Info("connection closed",
		slog.Int("index", idx), slog.Int("total", s.table.Count()), slog.Any("cause", cause))
}

// enqueueWrite queues an encoded frame; a full queue means the client cannot
// keep up and the connection is closed.
func (s *Server) enqueueWrite(idx int, frame []byte) {
	c := s.conns[idx]
	if c == nil {
		metrics.DroppedResponses.Inc()
		return
	}
	select {
	case c.sendq <- frame:
		s.sentCount++
	default:
		metrics.TransportErrors.WithLabelValues("write_buffer_over").Inc()
		s.closeConn(idx, c.gen, errors.New("write buffer over"))
	}
}

func (s *Server) sweepTimeouts(now time.Time) {
	for _, idx := range s.table.Expired(now) {
		metrics.TransportErrors.WithLabelValues("client_timeout").Inc()
		s.closeConn(idx, 0, errors.New("client timeout"))
	}
}

func (s *Server) logStats() {
	s.logger.Info("gateway stats",
		slog.Int("connections", s.table.Count()),
		slog.Uint64("recv_pkgs", s.recvCount),
		slog.Uint64("sent_pkgs", s.sentCount))
	s.recvCount = 0
	s.sentCount = 0
}

func (s *Server) reloadConfig() {
	if s.configPath == "" {
		s.logger.Warn("reload requested but no config file to reload")
		return
	}
	cfg, err := config.Load(s.configPath)
	if err != nil {
		s.logger.Error("config reload failed", slog.Any("err", err))
		return
	}
	s.cfg.Store(cfg)
	s.logger.Info("configuration reloaded", slog.String("file", s.configPath))
}

// shutdown closes every live connection and gives their writers a bounded
// window to flush.
func (s *Server) shutdown() {
	for idx, c := range s.conns {
		if c != nil {
			s.closeConn(idx, c.gen, context.Canceled)
		}
	}

	flushed := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
	case <-time.After(flushTimeout):
		s.logger.Warn("shutdown flush timed out")
	}
	s.logger.Info("gateway stopped")
}
