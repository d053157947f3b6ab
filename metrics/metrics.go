// Package metrics registers the process-wide counters behind the error and
// traffic taxonomy. Collectors live on the default registry; exposition is
// left to the deployment.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trading",
		Subsystem: "gateway",
		Name:      "active_connections",
		Help:      "Live client connections in the slot table.",
	})

	RecvPackets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "gateway",
		Name:      "recv_packets_total",
		Help:      "Complete frames received from clients.",
	})

	SentPackets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "gateway",
		Name:      "sent_packets_total",
		Help:      "Frames written back to clients.",
	})

	// FramingErrors is labelled by kind: malformed_frame, unknown_type,
	// payload_decode, packet_invalid.
	FramingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "gateway",
		Name:      "framing_errors_total",
		Help:      "Frames that closed their originating connection.",
	}, []string{"kind"})

	// TransportErrors is labelled by kind: client_close, client_timeout,
	// write_buffer_over, read_error, write_error, buffer_full.
	TransportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "gateway",
		Name:      "transport_errors_total",
		Help:      "Per-connection transport failures recovered locally.",
	}, []string{"kind"})

	DroppedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "gateway",
		Name:      "dropped_responses_total",
		Help:      "Inbound responses whose target slot was missing or reassigned.",
	})

	// BrokerErrors is labelled by op: produce, delivery, consume, decode.
	BrokerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "broker",
		Name:      "errors_total",
		Help:      "Broker client failures; the request plane degrades, never dies.",
	}, []string{"op"})

	LoginResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "order",
		Name:      "login_results_total",
		Help:      "Login validations by outcome.",
	}, []string{"result"})

	OrdersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "order",
		Name:      "orders_accepted_total",
		Help:      "Orders accepted and forwarded to matching.",
	})

	OrdersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trading",
		Subsystem: "order",
		Name:      "orders_rejected_total",
		Help:      "Orders rejected at intake.",
	})
)
