package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/snek.yaml
var defaultSnekYAML []byte

// DefaultGrid is the 35x35 field with length-10 snakes.
func DefaultGrid() GridConfig {
	return GridConfig{
		Width:       35,
		Height:      35,
		SnakeLength: 10,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:          8080,
			Transport:     TransportENet,
			Grid:          DefaultGrid(),
			MaxPlayers:    2,
			TickInterval:  120 * time.Millisecond,
			IdleTimeout:   5 * time.Second,
			TimeoutPolicy: PolicyLog,
			EventBuffer:   100,
		},
		Client: ClientConfig{
			Server:           "127.0.0.1:8080",
			Transport:        TransportENet,
			Grid:             DefaultGrid(),
			MoveInterval:     30 * time.Millisecond,
			HeartbeatWaiting: time.Second,
			HeartbeatPlaying: 30 * time.Millisecond,
			IdleTimeout:      5 * time.Second,
			EventBuffer:      100,
			Steering:         SteeringAutopilot,
		},
	}
}

// DefaultYAML returns the embedded snek.yaml.
func DefaultYAML() []byte {
	return defaultSnekYAML
}
