// Package order is the broker-facing half of the request plane: it consumes
// requests forwarded by the gateway, validates logins against the session
// table, queues futures orders per side, and produces responses addressed by
// client index.
//
// One processor goroutine owns the session table, the user table and both
// intake queues; the broker consumer hands records to it over a channel.
package order

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/yuntianze/trading-platform/broker"
	"github.com/yuntianze/trading-platform/config"
	"github.com/yuntianze/trading-platform/cspkg"
	"github.com/yuntianze/trading-platform/logging"
	"github.com/yuntianze/trading-platform/metrics"
)

// processTick paces queue draining; one drain must stay well under it.
const processTick = 10 * time.Millisecond

// Broker is the transport surface the order service needs.
type Broker interface {
	broker.Producer
	StartConsuming(topics []string, groupID string) (<-chan broker.Inbound, error)
	StopConsuming()
}

type Service struct {
	cfg        atomic.Pointer[config.Config]
	configPath string
	logger     *slog.Logger
	bk         Broker

	sessions *SessionTable
	users    map[uint64]*User
	proc     *Processor

	reload chan struct{}
}

type ServiceOption func(*Service)

func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithConfigPath(path string) ServiceOption {
	return func(s *Service) { s.configPath = path }
}

func NewService(cfg *config.Config, bk Broker, opts ...ServiceOption) *Service {
	s := &Service{
		bk:       bk,
		sessions: NewSessionTable(cfg.LoginPolicy),
		users:    make(map[uint64]*User),
		reload:   make(chan struct{}, 1),
	}
	s.cfg.Store(cfg)
	for _, fn := range opts {
		fn(s)
	}
	if s.logger == nil {
		s.logger, _ = logging.NewFromEnv()
	}
	s.proc = NewProcessor(bk, s.logger, s.userByID)
	return s
}

// Sessions exposes the session table for preloading accounts in strict
// deployments.
func (s *Service) Sessions() *SessionTable { return s.sessions }

// Reload requests a config reload between events. Safe from a signal
// handler goroutine.
func (s *Service) Reload() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// Run consumes requests until ctx is canceled, draining the intake queues on
// every tick.
func (s *Service) Run(ctx context.Context) error {
	cfg := s.cfg.Load()

	inbound, err := s.bk.StartConsuming([]string{cfg.GatewayToOrderTopic}, cfg.OrderConsumerGroupID)
	if err != nil {
		return err
	}

	s.logger.Info("order service started",
		slog.String("intake_topic", cfg.GatewayToOrderTopic),
		slog.String("login_policy", string(cfg.LoginPolicy)))

	tick := time.NewTicker(processTick)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.bk.StopConsuming()
			s.logger.Info("order service stopped",
				slog.Int("sessions", s.sessions.Len()),
				slog.Any("accounts", lo.Keys(s.sessions.sessions)))
			return nil

		case in, ok := <-inbound:
			if ok {
				s.dispatch(ctx, in)
			}

		case <-tick.C:
			s.proc.ProcessOrders(ctx, s.cfg.Load())

		case <-s.reload:
			s.reloadConfig()
		}
	}
}

// dispatch classifies one inbound record. Logins are validated synchronously
// and answered immediately; orders queue for the next drain.
func (s *Service) dispatch(ctx context.Context, in broker.Inbound) {
	switch m := in.Message.(type) {
	case *cspkg.AccountLoginReq:
		s.handleLogin(ctx, m)
	case *cspkg.FuturesOrder:
		s.proc.Enqueue(m)
	default:
		s.logger.Warn("unexpected intake type", slog.String("type", in.Message.ProtoName()))
	}
}

func (s *Service) handleLogin(ctx context.Context, req *cspkg.AccountLoginReq) {
	result := s.sessions.Validate(req.Account, req.SessionKey)

	res := &cspkg.AccountLoginRes{
		Account:  req.Account,
		Result:   result,
		ClientID: req.ClientID,
	}

	cfg := s.cfg.Load()
	if err := s.bk.Produce(ctx, cfg.OrderToGatewayTopic, res, req.ClientID); err != nil {
		s.logger.Error("failed to send login response",
			slog.Uint64("account", uint64(req.Account)), slog.Any("err", err))
	}

	if result == 0 {
		metrics.LoginResults.WithLabelValues("ok").Inc()
		s.allocateUser(req.Account)
		s.logger.Info("account logged in", slog.Uint64("account", uint64(req.Account)))
	} else {
		metrics.LoginResults.WithLabelValues("rejected").Inc()
		s.logger.Warn("login rejected", slog.Uint64("account", uint64(req.Account)))
	}
}

// allocateUser creates the account's user object on first successful login.
func (s *Service) allocateUser(account uint32) {
	id := uint64(account)
	if _, ok := s.users[id]; ok {
		return
	}
	s.users[id] = NewUser(id, "")
}

func (s *Service) userByID(id uint64) *User {
	return s.users[id]
}

func (s *Service) reloadConfig() {
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
	s.sessions.SetPolicy(cfg.LoginPolicy)
	s.logger.Info("configuration reloaded", slog.String("file", s.configPath))
}
