// Package config provides YAML configuration for the snek server and client.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Transport names.
const (
	TransportENet      = "enet"
	TransportWebSocket = "websocket"
)

// Timeout policy names.
const (
	PolicyLog      = "log"
	PolicyFreeSeat = "free-seat"
	PolicyAbort    = "abort"
)

// Steering names.
const (
	SteeringAutopilot = "autopilot"
	SteeringStraight  = "straight"
)

// MaxPlayers is the number of spawn layouts the grid provides.
const MaxPlayers = 4

// Config is the contents of snek.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
}

// GridConfig sizes the playing field.
type GridConfig struct {
	Width       int `yaml:"width"`
	Height      int `yaml:"height"`
	SnakeLength int `yaml:"snake_length"` // head included
}

// ServerConfig configures `snek serve`.
type ServerConfig struct {
	Port          int           `yaml:"port"`
	Transport     string        `yaml:"transport"`
	Grid          GridConfig    `yaml:"grid"`
	MaxPlayers    int           `yaml:"max_players"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	TimeoutPolicy string        `yaml:"timeout_policy"`
	EventBuffer   int           `yaml:"event_buffer"`
	MetricsAddr   string        `yaml:"metrics_addr"` // empty disables /metrics
}

// ClientConfig configures `snek join`.
type ClientConfig struct {
	Server           string        `yaml:"server"`
	Transport        string        `yaml:"transport"`
	Grid             GridConfig    `yaml:"grid"`
	MoveInterval     time.Duration `yaml:"move_interval"`
	HeartbeatWaiting time.Duration `yaml:"heartbeat_waiting"`
	HeartbeatPlaying time.Duration `yaml:"heartbeat_playing"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	EventBuffer      int           `yaml:"event_buffer"`
	Steering         string        `yaml:"steering"`
}

// Validate reports the first problem found, wrapped in ErrInvalid.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Client.Validate()
}

// Validate checks the server section.
func (s ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalid, s.Port)
	}
	if err := validTransport("server", s.Transport); err != nil {
		return err
	}
	if err := s.Grid.validate("server"); err != nil {
		return err
	}
	if s.MaxPlayers < 1 || s.MaxPlayers > MaxPlayers {
		return fmt.Errorf("%w: server.max_players %d outside 1..%d", ErrInvalid, s.MaxPlayers, MaxPlayers)
	}
	if s.TickInterval <= 0 || s.IdleTimeout <= 0 {
		return fmt.Errorf("%w: server intervals must be positive", ErrInvalid)
	}
	switch s.TimeoutPolicy {
	case PolicyLog, PolicyFreeSeat, PolicyAbort:
	default:
		return fmt.Errorf("%w: server.timeout_policy %q", ErrInvalid, s.TimeoutPolicy)
	}
	if s.EventBuffer < 1 {
		return fmt.Errorf("%w: server.event_buffer %d", ErrInvalid, s.EventBuffer)
	}
	return nil
}

// Validate checks the client section.
func (c ClientConfig) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("%w: client.server is empty", ErrInvalid)
	}
	if err := validTransport("client", c.Transport); err != nil {
		return err
	}
	if err := c.Grid.validate("client"); err != nil {
		return err
	}
	if c.MoveInterval <= 0 || c.HeartbeatWaiting <= 0 || c.HeartbeatPlaying <= 0 || c.IdleTimeout <= 0 {
		return fmt.Errorf("%w: client intervals must be positive", ErrInvalid)
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("%w: client.event_buffer %d", ErrInvalid, c.EventBuffer)
	}
	switch c.Steering {
	case SteeringAutopilot, SteeringStraight:
	default:
		return fmt.Errorf("%w: client.steering %q", ErrInvalid, c.Steering)
	}
	return nil
}

func (g GridConfig) validate(section string) error {
	if g.SnakeLength < 1 {
		return fmt.Errorf("%w: %s.grid.snake_length %d", ErrInvalid, section, g.SnakeLength)
	}
	// Spawn rows sit on opposite edges and must not touch.
	if g.Width < 2*g.SnakeLength || g.Height < 2 {
		return fmt.Errorf("%w: %s.grid %dx%d too small for snake length %d",
			ErrInvalid, section, g.Width, g.Height, g.SnakeLength)
	}
	return nil
}

func validTransport(section, name string) error {
	switch name {
	case TransportENet, TransportWebSocket:
		return nil
	default:
		return fmt.Errorf("%w: %s.transport %q", ErrInvalid, section, name)
	}
}
