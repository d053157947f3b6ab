package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/yuntianze/trading-platform/broker"
	"github.com/yuntianze/trading-platform/config"
	"github.com/yuntianze/trading-platform/gateway"
	"github.com/yuntianze/trading-platform/lockfile"
	"github.com/yuntianze/trading-platform/logging"
)

func main() {
	cmd := &cli.Command{
		Name:  "gateway-server",
		Usage: "TCP gateway terminating client connections for the trading platform",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "key=value configuration file (environment wins)",
				Sources: cli.EnvVars("GATEWAY_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "lock-file",
				Usage: "single-instance lock file",
				Value: "./gateway_server.lock",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, _ := logging.NewFromEnv()

	lock, err := lockfile.Acquire(cmd.String("lock-file"))
	if err != nil {
		return err
	}
	defer lock.Release()

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	bk, err := broker.New(broker.Config{
		Brokers:  cfg.KafkaBootstrapServers,
		Username: cfg.KafkaUsername,
		Password: cfg.KafkaPassword,
	}, broker.WithLogger(logger))
	if err != nil {
		return err
	}
	defer bk.Close()

	srv := gateway.NewServer(cfg, bk,
		gateway.WithServerLogger(logger),
		gateway.WithConfigPath(cmd.String("config")))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range sigs {
			if sig == syscall.SIGUSR1 {
				logger.Info("reload requested", slog.String("signal", sig.String()))
				srv.Reload()
				continue
			}
			logger.Info("shutting down", slog.String("signal", sig.String()))
			cancel()
			return
		}
	}()

	return srv.Run(ctx)
}
