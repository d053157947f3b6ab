package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yuntianze/trading-platform/broker"
	"github.com/yuntianze/trading-platform/codec"
	"github.com/yuntianze/trading-platform/cspkg"
	"github.com/yuntianze/trading-platform/metrics"
)

// routeFrame decodes one whole frame from a client and forwards it to the
// order side with the slot index stamped as client_id. Framing errors close
// only the originating connection.
func (s *Server) routeFrame(idx int, frame []byte) {
	msg, err := codec.Decode(frame)
	if err != nil {
		s.countFramingError(err)
		s.logger.Warn("bad frame", slog.Int("index", idx), slog.Any("err", err))
		if c := s.conns[idx]; c != nil {
			s.closeConn(idx, c.gen, err)
		}
		return
	}

	cfg := s.cfg.Load()
	switch m := msg.(type) {
	case *cspkg.AccountLoginReq:
		// Bind eagerly so the login response can be routed by account
		// even before the order side approves it.
		s.table.BindAccount(idx, m.Account)
		s.produce(cfg.GatewayToOrderTopic, m, idx)

	case *cspkg.FuturesOrder:
		s.produce(cfg.GatewayToOrderTopic, m, idx)

	default:
		// Response types never arrive from clients.
		s.logger.Warn("unroutable client message",
			slog.Int("index", idx), slog.String("type", msg.ProtoName()))
	}
}

func (s *Server) produce(topic string, msg cspkg.Message, idx int) {
	if err := s.bk.Produce(context.Background(), topic, msg, uint32(idx)); err != nil {
		// The request is lost and the client will time out; the plane
		// itself keeps running.
		s.logger.Error("produce failed",
			slog.String("topic", topic), slog.Int("index", idx), slog.Any("err", err))
	}
}

// routeInbound fans a broker response back to the connection that issued the
// request. Login responses are addressed by account, order responses by the
// slot index they carried through the round trip. Redelivery routes to the
// same slot, so duplicates are harmless.
func (s *Server) routeInbound(in broker.Inbound) {
	switch m := in.Message.(type) {
	case *cspkg.AccountLoginRes:
		idx, ok := s.table.IndexByAccount(m.Account)
		if !ok {
			metrics.DroppedResponses.Inc()
			s.logger.Warn("login response for unknown account", slog.Uint64("account", uint64(m.Account)))
			return
		}
		s.writeMessage(idx, m)

	case *cspkg.OrderResponse:
		idx := int(m.ClientID)
		if s.table.Get(idx) == nil {
			metrics.DroppedResponses.Inc()
			s.logger.Warn("order response for closed slot", slog.Int("index", idx))
			return
		}
		s.writeMessage(idx, m)

	default:
		metrics.DroppedResponses.Inc()
		s.logger.Warn("unexpected inbound type", slog.String("type", in.Message.ProtoName()))
	}
}

func (s *Server) writeMessage(idx int, msg cspkg.Message) {
	frame, err := codec.Encode(msg)
	if err != nil {
		s.logger.Error("encode response failed", slog.String("type", msg.ProtoName()), slog.Any("err", err))
		return
	}
	s.enqueueWrite(idx, frame)
}

func (s *Server) countFramingError(err error) {
	switch {
	case errors.Is(err, codec.ErrMalformedFrame):
		metrics.FramingErrors.WithLabelValues("malformed_frame").Inc()
	case errors.Is(err, cspkg.ErrUnknownType):
		metrics.FramingErrors.WithLabelValues("unknown_type").Inc()
	case errors.Is(err, codec.ErrPayloadDecode):
		metrics.FramingErrors.WithLabelValues("payload_decode").Inc()
	default:
		metrics.FramingErrors.WithLabelValues("other").Inc()
	}
}
