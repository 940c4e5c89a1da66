// whisperd is the Whisper2 server daemon: it loads configuration,
// connects to postgres and redis, and runs the websocket, HTTP, health,
// and metrics listeners until told to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/config"
	"github.com/whisper2/server/internal/logger"
	"github.com/whisper2/server/internal/server"
	"github.com/whisper2/server/internal/store/postgres"
	"github.com/whisper2/server/internal/store/redis"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "whisperd",
	Short: "Whisper2 direct-messaging server core",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket, HTTP, health, and metrics listeners",
	RunE:  runServe,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory containing <environment>.yaml / default.yaml")
	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseLevel(s string) logger.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.NewDefaultLogger()
	log.SetLevel(parseLevel(cfg.Logging.Level))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	durable, err := postgres.New(ctx, postgres.Config{DSN: cfg.Durable.DSN, MaxConnections: int32(cfg.Durable.MaxConnections)})
	if err != nil {
		return fmt.Errorf("connect durable store: %w", err)
	}
	defer durable.Close()

	volatile, err := redis.New(ctx, redis.Config{Addr: cfg.Volatile.Addr, Password: cfg.Volatile.Password, DB: cfg.Volatile.DB})
	if err != nil {
		return fmt.Errorf("connect volatile store: %w", err)
	}
	defer volatile.Close()

	pusher := adapters.NoopPusher{Log: log}
	presigner := adapters.LocalPresigner{BaseURL: cfg.Adapters.ObjectStoreBaseURL, TTL: cfg.Adapters.PresignTTL}
	turn := adapters.StaticTURNMinter{URLs: cfg.Adapters.TURNURLs}

	srv := server.New(cfg, durable, volatile, pusher, presigner, turn, log)

	log.Info("starting whisperd",
		logger.String("environment", cfg.Environment),
		logger.String("websocketAddr", cfg.Listen.WebsocketAddr),
		logger.String("httpAddr", cfg.Listen.HTTPAddr),
	)
	return srv.Run(ctx)
}
