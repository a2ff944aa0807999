package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/snek-arena/internal/config"
	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/metrics"
	"github.com/vovakirdan/snek-arena/internal/multiplayer"
	"github.com/vovakirdan/snek-arena/internal/storage"
	"github.com/vovakirdan/snek-arena/internal/transport"
)

var (
	flagPort      int
	flagTransport string
	flagMetrics   string
	flagPlayers   int
	flagPolicy    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host a snek session",
	Long: `Bind a port and run one session: seat players as they join, start
the game when the lobby is full, and broadcast moves on every tick.

When --port is not given and stdin is a terminal, the port is prompted
for; empty or invalid input falls back to the configured port.

Examples:
  snek serve                             # Prompt for a port, ENet transport
  snek serve --port 8080 --players 3     # Three-player session
  snek serve --transport websocket       # Serve ws://host:port/snek
  snek serve --metrics :9090             # Expose Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "Port to listen on")
	serveCmd.Flags().StringVar(&flagTransport, "transport", "", "Transport (enet, websocket)")
	serveCmd.Flags().StringVar(&flagMetrics, "metrics", "", "Address for the /metrics endpoint")
	serveCmd.Flags().IntVar(&flagPlayers, "players", 0, "Players needed to start")
	serveCmd.Flags().StringVar(&flagPolicy, "timeout-policy", "", "Idle peer policy (log, free-seat, abort)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger("snek-server")
	if err != nil {
		return err
	}
	all, err := loadConfig(logger)
	if err != nil {
		return err
	}
	cfg := all.Server

	flags := cmd.Flags()
	switch {
	case flags.Changed("port"):
		cfg.Port = flagPort
	case interactive():
		cfg.Port = promptPort(os.Stdin, os.Stdout, cfg.Port)
	}
	if flags.Changed("transport") {
		cfg.Transport = flagTransport
	}
	if flags.Changed("metrics") {
		cfg.MetricsAddr = flagMetrics
	}
	if flags.Changed("players") {
		cfg.MaxPlayers = flagPlayers
	}
	if flags.Changed("timeout-policy") {
		cfg.TimeoutPolicy = flagPolicy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	policy, err := multiplayer.ParseTimeoutPolicy(cfg.TimeoutPolicy)
	if err != nil {
		return err
	}

	m := metrics.New()
	session, err := multiplayer.NewSession(multiplayer.SessionConfig{
		Bounds:        core.NewBounds(cfg.Grid.Width, cfg.Grid.Height),
		SnakeLength:   cfg.Grid.SnakeLength,
		MaxPlayers:    cfg.MaxPlayers,
		TimeoutPolicy: policy,
	}, logger, m)
	if err != nil {
		return err
	}

	store, err := storage.Open()
	if err != nil {
		logger.Warn("could not open game ledger", "error", err)
		// Continue without a ledger
	} else {
		defer store.Close()
		session.SetResultSaver(store)
	}

	tr, err := listen(cfg, logger)
	if err != nil {
		logger.Error("cannot bind", "port", cfg.Port, "transport", cfg.Transport, "error", err)
		return err
	}
	defer tr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			logger.Info("serving metrics", "address", cfg.MetricsAddr)
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	logger.Info("listening", "port", cfg.Port, "transport", cfg.Transport, "players", cfg.MaxPlayers)
	fmt.Println("Press Ctrl+C to stop")

	srv := multiplayer.NewServer(session, tr, cfg.TickInterval, logger, m)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("shutting down...")
	if store != nil {
		logLedger(logger, store)
	}
	return nil
}

func listen(cfg config.ServerConfig, logger *log.Logger) (transport.Transport, error) {
	opts := transport.Options{
		IdleTimeout: cfg.IdleTimeout,
		Buffer:      cfg.EventBuffer,
		MaxPeers:    max(cfg.MaxPlayers*4, 8),
		Logger:      logger.With("transport", cfg.Transport),
	}
	if cfg.Transport == config.TransportWebSocket {
		ws, err := transport.ListenWebSocket(fmt.Sprintf(":%d", cfg.Port), opts)
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
	host, err := transport.ListenENet(uint16(cfg.Port), opts)
	if err != nil {
		return nil, err
	}
	return host, nil
}

func logLedger(logger *log.Logger, store *storage.Store) {
	stats, err := store.Stats()
	if err != nil {
		logger.Warn("could not read game ledger", "error", err)
		return
	}
	logger.Info("session summary", "games", stats.Games, "wins", stats.Wins,
		"ties", stats.Ties, "timeouts", stats.Timeouts, "avg_duration", stats.AvgDuration)

	matches, err := store.Matches(10)
	if err != nil {
		logger.Warn("could not read game ledger", "error", err)
		return
	}
	for _, r := range matches {
		logger.Info("game", "session", r.SessionID, "players", r.Players, "result", r.Result,
			"winner", r.Winner, "reason", r.Reason, "ticks", r.Ticks, "duration", r.Duration())
	}
}
