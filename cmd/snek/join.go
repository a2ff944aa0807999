package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/snek-arena/internal/config"
	"github.com/vovakirdan/snek-arena/internal/core"
	"github.com/vovakirdan/snek-arena/internal/multiplayer"
	"github.com/vovakirdan/snek-arena/internal/transport"
	"github.com/vovakirdan/snek-arena/internal/wire"
)

var (
	flagJoinTransport string
	flagSteering      string
)

var joinCmd = &cobra.Command{
	Use:   "join [host:port]",
	Short: "Join a snek session",
	Long: `Connect to a server, wait in the lobby until the game starts, then
play until the server announces the result.

Without an address argument the address is prompted for on a terminal;
input that does not parse as host:port falls back to the configured server.

Examples:
  snek join                          # Prompt for the address
  snek join 10.0.0.5:8080            # Join directly
  snek join --steering straight      # Never turn`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func init() {
	joinCmd.Flags().StringVar(&flagJoinTransport, "transport", "", "Transport (enet, websocket)")
	joinCmd.Flags().StringVar(&flagSteering, "steering", "", "Steering (autopilot, straight)")
}

func runJoin(cmd *cobra.Command, args []string) error {
	logger, err := newLogger("snek-client")
	if err != nil {
		return err
	}
	all, err := loadConfig(logger)
	if err != nil {
		return err
	}
	cfg := all.Client

	switch {
	case len(args) == 1 && validAddress(args[0]):
		cfg.Server = args[0]
	case len(args) == 1:
		logger.Warn("invalid address, using default", "address", args[0], "default", cfg.Server)
	case interactive():
		cfg.Server = promptAddress(os.Stdin, os.Stdout, cfg.Server)
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = flagJoinTransport
	}
	if cmd.Flags().Changed("steering") {
		cfg.Steering = flagSteering
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dial(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %w", cfg.Server, err)
	}
	defer conn.Close()

	client, err := multiplayer.NewClient(
		multiplayer.ClientConfig{
			Bounds:       core.NewBounds(cfg.Grid.Width, cfg.Grid.Height),
			SnakeLength:  cfg.Grid.SnakeLength,
			NoticeBuffer: cfg.EventBuffer,
		},
		steerer(cfg.Steering),
		multiplayer.NewScheduler(cfg.MoveInterval, cfg.HeartbeatWaiting, cfg.HeartbeatPlaying),
		logger,
	)
	if err != nil {
		return err
	}

	go watch(ctx, client, logger)

	logger.Info("joining", "server", cfg.Server, "transport", cfg.Transport, "steering", cfg.Steering)
	err = client.Run(ctx, conn)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("left the game")
		return nil
	case err != nil:
		return err
	}

	result, winner, _ := client.Result()
	switch result {
	case wire.ResultWin:
		fmt.Printf("You won as snek %d\n", client.ID())
	case wire.ResultTie:
		fmt.Println("It's a tie")
	default:
		fmt.Printf("You lost, snek %d won\n", winner)
	}
	return nil
}

func dial(ctx context.Context, cfg config.ClientConfig, logger *log.Logger) (*transport.Conn, error) {
	opts := transport.Options{
		IdleTimeout: cfg.IdleTimeout,
		Buffer:      cfg.EventBuffer,
		Logger:      logger.With("transport", cfg.Transport),
	}
	if cfg.Transport == config.TransportWebSocket {
		return transport.DialWebSocket(ctx, cfg.Server, opts)
	}
	return transport.DialENet(cfg.Server, opts)
}

func steerer(name string) multiplayer.Steerer {
	if name == config.SteeringStraight {
		return multiplayer.Straight{}
	}
	return multiplayer.NewAutopilot()
}

// watch logs client progress until ctx is done.
func watch(ctx context.Context, client *multiplayer.Client, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-client.Notices():
			switch n := n.(type) {
			case multiplayer.RosterNotice:
				logger.Info("players seated", "ids", n.IDs)
			case multiplayer.TickNotice:
				for _, o := range n.Outcomes {
					if o.Dead() {
						logger.Info("snek down", "id", o.ID, "cause", o.Kind, "tick", n.Tick)
					}
				}
				logger.Debug("tick", "tick", n.Tick, "alive", len(n.Snapshot.Snakes), "cells", n.Snapshot.Occupied)
			case multiplayer.DeathReportedNotice:
				logger.Info("you died", "alive", n.Alive)
			}
		}
	}
}
