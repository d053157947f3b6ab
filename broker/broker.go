// Package broker is the Kafka-mediated request/response transport between the
// gateway and the order service.
//
// Producing is asynchronous: Produce enqueues and returns, and per-record
// delivery reports arrive on the writer's completion callback. Consuming runs
// on one background goroutine per client that decodes records and dispatches
// typed messages onto a single-consumer channel read by the owning event
// loop. Delivery is at least once; consumers tolerate duplicates.
package broker

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/yuntianze/trading-platform/cspkg"
	"github.com/yuntianze/trading-platform/logging"
	"github.com/yuntianze/trading-platform/metrics"
)

const (
	// consumePollTimeout bounds one fetch so the consumer notices stop
	// requests promptly.
	consumePollTimeout = 100 * time.Millisecond

	defaultChanSize = 1024
)

// Producer is the produce-side surface the gateway and order loops depend on.
type Producer interface {
	Produce(ctx context.Context, topic string, msg cspkg.Message, clientID uint32) error
}

// Inbound is one decoded record delivered to the owning event loop.
type Inbound struct {
	Topic   string
	Message cspkg.Message
}

// Config carries the connection settings shared by producer and consumer.
// Username/Password empty means a plaintext listener; set, they select
// SASL_SSL with the PLAIN mechanism.
type Config struct {
	Brokers  []string
	Username string
	Password string
}

type options struct {
	chanSize int
	logger   *slog.Logger
}

type Option func(*options)

func WithChanSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chanSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Client owns one async producer and at most one group consumer. The
// producer is safe for concurrent use; the consumer is owned by its
// background goroutine.
type Client struct {
	cfg    Config
	logger *slog.Logger

	writer *kafka.Writer

	reader       *kafka.Reader
	consumeCh    chan Inbound
	consumerStop context.CancelFunc
	consumerDone chan struct{}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("broker: no bootstrap servers")
	}

	o := &options{chanSize: defaultChanSize}
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger, _ = logging.NewFromEnv()
	}

	c := &Client{
		cfg:    cfg,
		logger: o.logger,
	}
	c.consumeCh = make(chan Inbound, o.chanSize)

	transport := &kafka.Transport{
		SASL: c.saslMechanism(),
		TLS:  c.tlsConfig(),
	}
	c.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Transport:              transport,
		Completion:             c.deliveryReport,
	}

	return c, nil
}

// saslMechanism returns nil when no credentials are configured.
func (c *Client) saslMechanism() sasl.Mechanism {
	if c.cfg.Username == "" {
		return nil
	}
	return plain.Mechanism{Username: c.cfg.Username, Password: c.cfg.Password}
}

func (c *Client) tlsConfig() *tls.Config {
	if c.cfg.Username == "" {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// Produce stamps clientID onto a clone of msg and enqueues its record form.
// The caller's message is never mutated. Delivery is reported asynchronously;
// an enqueue failure is returned directly.
func (c *Client) Produce(ctx context.Context, topic string, msg cspkg.Message, clientID uint32) error {
	if c.writer == nil {
		return ErrNotInitialized
	}

	clone := msg.Clone()
	routed, ok := clone.(cspkg.Routable)
	if !ok {
		metrics.BrokerErrors.WithLabelValues("produce").Inc()
		return ErrMissingRoutingField
	}
	routed.SetClientID(clientID)

	rec, err := EncodeRecord(clone)
	if err != nil {
		metrics.BrokerErrors.WithLabelValues("produce").Inc()
		return err
	}

	err = c.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Value: rec})
	if err != nil {
		metrics.BrokerErrors.WithLabelValues("produce").Inc()
		return err
	}
	return nil
}

func (c *Client) deliveryReport(msgs []kafka.Message, err error) {
	if err != nil {
		metrics.BrokerErrors.WithLabelValues("delivery").Add(float64(len(msgs)))
		c.logger.Error("message delivery failed", slog.Int("records", len(msgs)), slog.Any("err", err))
		return
	}
	for _, m := range msgs {
		c.logger.Debug("message delivered",
			slog.String("topic", m.Topic), slog.Int("partition", m.Partition), slog.Int64("offset", m.Offset))
	}
}

// StartConsuming subscribes to topics under groupID and returns the channel
// the background goroutine dispatches decoded messages onto. Only one
// consumer may run per client.
func (c *Client) StartConsuming(topics []string, groupID string) (<-chan Inbound, error) {
	if c.reader != nil {
		return nil, ErrConsumerRunning
	}

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		MaxWait:     consumePollTimeout,
		Dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			SASLMechanism: c.saslMechanism(),
			TLS:           c.tlsConfig(),
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.consumerStop = cancel
	c.consumerDone = make(chan struct{})
	go c.consumeLoop(ctx)

	c.logger.Info("started consuming", slog.Any("topics", topics), slog.String("group", groupID))
	return c.consumeCh, nil
}

func (c *Client) consumeLoop(ctx context.Context) {
	defer close(c.consumerDone)
	for {
		rec, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			// Fetch timeouts and rebalances are routine; anything else
			// is logged and the loop continues.
			metrics.BrokerErrors.WithLabelValues("consume").Inc()
			c.logger.Error("consume error", slog.Any("err", err))
			continue
		}

		msg, err := DecodeRecord(rec.Value)
		if err != nil {
			metrics.BrokerErrors.WithLabelValues("decode").Inc()
			c.logger.Error("failed to decode record",
				slog.String("topic", rec.Topic), slog.Int64("offset", rec.Offset), slog.Any("err", err))
			continue
		}

		select {
		case c.consumeCh <- Inbound{Topic: rec.Topic, Message: msg}:
		case <-ctx.Done():
			return
		}
	}
}

// StopConsuming stops the background goroutine, closes the reader and joins.
func (c *Client) StopConsuming() {
	if c.reader == nil {
		return
	}
	c.consumerStop()
	c.reader.Close()
	<-c.consumerDone
	c.reader = nil
	c.logger.Info("stopped consuming")
}

// Close stops the consumer and flushes the producer's in-flight records.
func (c *Client) Close() error {
	c.StopConsuming()
	if c.writer != nil {
		return c.writer.Close()
	}
	return nil
}
