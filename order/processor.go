package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuntianze/trading-platform/broker"
	"github.com/yuntianze/trading-platform/config"
	"github.com/yuntianze/trading-platform/cspkg"
	"github.com/yuntianze/trading-platform/idgen"
	"github.com/yuntianze/trading-platform/metrics"
)

// Processor owns the buy and sell intake FIFOs and drains them under the
// single-writer discipline: all of its methods run on the processor
// goroutine.
type Processor struct {
	buy  []*cspkg.FuturesOrder
	sell []*cspkg.FuturesOrder

	bk     broker.Producer
	logger *slog.Logger
	user   func(uint64) *User
}

func NewProcessor(bk broker.Producer, logger *slog.Logger, user func(uint64) *User) *Processor {
	return &Processor{bk: bk, logger: logger, user: user}
}

// Enqueue files an order into its side's FIFO. Orders with an undefined side
// still queue (on the sell side's path they would misroute); they are
// rejected at processing time instead, so the client hears back.
func (p *Processor) Enqueue(o *cspkg.FuturesOrder) {
	if o.Side == cspkg.OrderSideBuy {
		p.buy = append(p.buy, o)
	} else {
		p.sell = append(p.sell, o)
	}
	p.logger.Debug("order queued",
		slog.String("order_id", o.OrderID), slog.String("side", o.Side.String()))
}

// Depths returns the current buy and sell queue lengths.
func (p *Processor) Depths() (buy, sell int) {
	return len(p.buy), len(p.sell)
}

// ProcessOrders drains the buy queue completely, then the sell queue, then
// runs one matching pass.
func (p *Processor) ProcessOrders(ctx context.Context, cfg *config.Config) {
	for _, o := range p.buy {
		p.process(ctx, cfg, o)
	}
	p.buy = p.buy[:0]

	for _, o := range p.sell {
		p.process(ctx, cfg, o)
	}
	p.sell = p.sell[:0]

	p.match()
}

// process accepts or rejects one order. Accepted orders are forwarded to the
// matching topic and acknowledged; rejections only answer the client. Either
// way the response carries the order's client_id so the gateway can route it
// to the issuing slot.
func (p *Processor) process(ctx context.Context, cfg *config.Config, o *cspkg.FuturesOrder) {
	if reason := p.rejectReason(o); reason != "" {
		metrics.OrdersRejected.Inc()
		p.logger.Warn("order rejected",
			slog.String("order_id", o.OrderID), slog.String("reason", reason))
		p.respond(ctx, cfg, &cspkg.OrderResponse{
			OrderID:  o.OrderID,
			Status:   cspkg.OrderStatusRejected,
			Message:  reason,
			ClientID: o.ClientID,
		})
		return
	}

	if o.OrderID == "" {
		o.OrderID = idgen.NextString()
	}
	if o.Timestamp == 0 {
		o.Timestamp = time.Now().UnixMilli()
	}
	o.Status = cspkg.OrderStatusAccepted

	if err := p.bk.Produce(ctx, cfg.MatchingTopic, o, o.ClientID); err != nil {
		p.logger.Error("failed to forward order to matching",
			slog.String("order_id", o.OrderID), slog.Any("err", err))
	}

	metrics.OrdersAccepted.Inc()
	p.logger.Info("order accepted",
		slog.String("order_id", o.OrderID), slog.String("symbol", o.Symbol),
		slog.String("side", o.Side.String()), slog.Float64("quantity", o.Quantity),
		slog.Float64("price", o.Price))

	p.respond(ctx, cfg, &cspkg.OrderResponse{
		OrderID:  o.OrderID,
		Status:   cspkg.OrderStatusAccepted,
		ClientID: o.ClientID,
	})
}

// rejectReason returns the empty string for a well-formed order.
func (p *Processor) rejectReason(o *cspkg.FuturesOrder) string {
	switch {
	case !o.Side.Valid():
		return "invalid order side"
	case !o.Type.Valid():
		return "invalid order type"
	case o.Symbol == "":
		return "missing symbol"
	case o.Quantity <= 0:
		return "quantity must be positive"
	case o.Price < 0:
		return "negative price"
	case o.Price == 0 && (o.Type == cspkg.OrderTypeLimit || o.Type == cspkg.OrderTypeStopLimit):
		return "limit order requires a price"
	}
	if u := p.user(o.UserID); u != nil && !u.CanTrade() {
		return "trading disabled for account"
	}
	return ""
}

func (p *Processor) respond(ctx context.Context, cfg *config.Config, res *cspkg.OrderResponse) {
	if err := p.bk.Produce(ctx, cfg.OrderToGatewayTopic, res, res.ClientID); err != nil {
		p.logger.Error("failed to send order response",
			slog.String("order_id", res.OrderID), slog.Any("err", err))
	}
}

// match is the per-tick matching hook. Matching itself happens downstream of
// the matching topic; intake only guarantees the drain ordering it needs.
func (p *Processor) match() {}
