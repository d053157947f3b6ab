// Package config loads the runtime settings from the environment, optionally
// seeded from a key=value file. The environment always wins over the file so
// operators can override a deployed file per process.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var ErrConfigMissing = errors.New("required configuration missing")

const (
	DefaultServerIP   = "0.0.0.0"
	DefaultServerPort = 9218

	DefaultGatewayToOrderTopic = "gateway_to_order_topic"
	DefaultOrderToGatewayTopic = "order_to_gateway_topic"
	DefaultMatchingTopic       = "matching_orders_topic"

	DefaultGatewayGroupID = "gateway_server_group"
	DefaultOrderGroupID   = "order_server_group"
)

// LoginPolicy selects how the order side treats accounts with no session
// table entry.
type LoginPolicy string

const (
	LoginPolicyStrict     LoginPolicy = "strict"
	LoginPolicyPermissive LoginPolicy = "permissive"
)

type Config struct {
	ServerIP   string
	ServerPort int

	// SocketShmKey is accepted for compatibility with warm-restart
	// deployments; this build does not preserve the connection table
	// across restarts.
	SocketShmKey int

	KafkaBootstrapServers []string
	KafkaUsername         string
	KafkaPassword         string

	GatewayToOrderTopic string
	OrderToGatewayTopic string
	MatchingTopic       string

	GatewayConsumerGroupID string
	OrderConsumerGroupID   string

	LoginPolicy LoginPolicy
}

// Load reads path (when non-empty) into the environment without overriding
// variables already set, then builds the Config from the environment.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ServerIP:               getString("GATEWAY_SERVER_IP", DefaultServerIP),
		ServerPort:             getInt("GATEWAY_SERVER_PORT", DefaultServerPort),
		SocketShmKey:           getInt("SOCKET_SHM_KEY", 0),
		KafkaUsername:          os.Getenv("KAFKA_USERNAME"),
		KafkaPassword:          os.Getenv("KAFKA_PASSWORD"),
		GatewayToOrderTopic:    getString("GATEWAY_TO_ORDER_TOPIC", DefaultGatewayToOrderTopic),
		OrderToGatewayTopic:    getString("ORDER_TO_GATEWAY_TOPIC", DefaultOrderToGatewayTopic),
		MatchingTopic:          getString("MATCHING_ENGINE_TOPIC", DefaultMatchingTopic),
		GatewayConsumerGroupID: getString("GATEWAY_KAFKA_CONSUMER_GROUP_ID", DefaultGatewayGroupID),
		OrderConsumerGroupID:   getString("ORDER_KAFKA_CONSUMER_GROUP_ID", DefaultOrderGroupID),
	}

	servers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if strings.TrimSpace(servers) == "" {
		return nil, fmt.Errorf("%w: KAFKA_BOOTSTRAP_SERVERS", ErrConfigMissing)
	}
	for _, s := range strings.Split(servers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.KafkaBootstrapServers = append(cfg.KafkaBootstrapServers, s)
		}
	}

	switch p := LoginPolicy(strings.ToLower(getString("LOGIN_POLICY", string(LoginPolicyStrict)))); p {
	case LoginPolicyStrict, LoginPolicyPermissive:
		cfg.LoginPolicy = p
	default:
		return nil, fmt.Errorf("invalid LOGIN_POLICY %q", p)
	}

	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("invalid GATEWAY_SERVER_PORT %d", cfg.ServerPort)
	}

	return cfg, nil
}

// ListenAddr returns the gateway bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerIP, c.ServerPort)
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
