package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuntianze/trading-platform/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// cleanupEnv unsets the keys a config file will inject into the process
// environment, so tests stay hermetic.
func cleanupEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		key := key
		t.Cleanup(func() { os.Unsetenv(key) })
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
# request plane settings
KAFKA_BOOTSTRAP_SERVERS=broker1:9092, broker2:9092
GATEWAY_SERVER_IP=10.1.2.3
GATEWAY_SERVER_PORT=9218
GATEWAY_TO_ORDER_TOPIC=g2o
ORDER_TO_GATEWAY_TOPIC=o2g
LOGIN_POLICY=permissive
`)
	cleanupEnv(t, "KAFKA_BOOTSTRAP_SERVERS", "GATEWAY_SERVER_IP", "GATEWAY_SERVER_PORT",
		"GATEWAY_TO_ORDER_TOPIC", "ORDER_TO_GATEWAY_TOPIC", "LOGIN_POLICY")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBootstrapServers)
	require.Equal(t, "10.1.2.3:9218", cfg.ListenAddr())
	require.Equal(t, "g2o", cfg.GatewayToOrderTopic)
	require.Equal(t, "o2g", cfg.OrderToGatewayTopic)
	require.Equal(t, config.LoginPolicyPermissive, cfg.LoginPolicy)

	// Unset keys fall back to defaults.
	require.Equal(t, config.DefaultMatchingTopic, cfg.MatchingTopic)
	require.Equal(t, config.DefaultGatewayGroupID, cfg.GatewayConsumerGroupID)
	require.Equal(t, config.DefaultOrderGroupID, cfg.OrderConsumerGroupID)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := writeConfigFile(t, "KAFKA_BOOTSTRAP_SERVERS=from-file:9092\nGATEWAY_SERVER_PORT=1111\n")
	cleanupEnv(t, "KAFKA_BOOTSTRAP_SERVERS")

	t.Setenv("GATEWAY_SERVER_PORT", "2222")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 2222, cfg.ServerPort)
	require.Equal(t, []string{"from-file:9092"}, cfg.KafkaBootstrapServers)
}

func TestMissingBootstrapServers(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "")

	_, err := config.Load("")
	require.ErrorIs(t, err, config.ErrConfigMissing)
}

func TestDefaults(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "k:9092")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9218", cfg.ListenAddr())
	require.Equal(t, config.LoginPolicyStrict, cfg.LoginPolicy, "strict is the default login policy")
}

func TestInvalidValues(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "k:9092")

	t.Run("login policy", func(t *testing.T) {
		t.Setenv("LOGIN_POLICY", "open-door")
		_, err := config.Load("")
		require.Error(t, err)
	})

	t.Run("port", func(t *testing.T) {
		t.Setenv("GATEWAY_SERVER_PORT", "70000")
		_, err := config.Load("")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.conf"))
		require.Error(t, err)
	})
}
