// snek is a server-authoritative multiplayer snake game played over the network.
//
// Usage:
//
//	snek serve              - Host a session and run the tick loop
//	snek join [host:port]   - Join a session with an autopilot snake
//	snek config             - Print the default snek.yaml
//	snek version            - Print the version
//
// Global flags:
//
//	--config <path>     - Config file (default: search ~/.snek and ./configs)
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/snek-arena/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snek",
	Short: "Snek Arena - multiplayer snake on a shared grid",
	Long: `Snek Arena runs a lockstep multiplayer snake game. One process serves
the session; every player runs a client that mirrors the grid locally.

Available commands:
  serve    - Host a session
  join     - Join a session
  config   - Print the default snek.yaml
  version  - Print the version

Examples:
  snek serve --port 8080
  snek join 127.0.0.1:8080
  snek serve --transport websocket --metrics :9090`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to snek.yaml")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger(prefix string) (*log.Logger, error) {
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", flagLogLevel, err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	logger.SetLevel(level)
	return logger, nil
}

func loadConfig(logger *log.Logger) (config.Config, error) {
	cfg, source, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	logger.Debug("config loaded", "source", source)
	return cfg, nil
}
