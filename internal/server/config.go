package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Ledger LedgerSettings `hcl:"ledger,block"`
}

// ServerSettings contains listener-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains table-level configuration
type GameSettings struct {
	// SessionTimeoutSeconds is how long a session waits for player input
	// before resolving as an implicit stand
	SessionTimeoutSeconds int `hcl:"session_timeout_seconds,optional"`

	// MinBet is the smallest wager accepted
	MinBet int64 `hcl:"min_bet,optional"`

	// MaxBet caps the wager; zero means no cap
	MaxBet int64 `hcl:"max_bet,optional"`
}

// LedgerSettings contains persistence configuration
type LedgerSettings struct {
	Path string `hcl:"path,optional"`
}

// SessionTimeout returns the configured timeout as a duration
func (g GameSettings) SessionTimeout() time.Duration {
	return time.Duration(g.SessionTimeoutSeconds) * time.Second
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  ":8080",
			LogLevel: "info",
		},
		Game: GameSettings{
			SessionTimeoutSeconds: 120,
			MinBet:                1,
		},
		Ledger: LedgerSettings{
			Path: "coins.json",
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.SessionTimeoutSeconds == 0 {
		config.Game.SessionTimeoutSeconds = 120
	}
	if config.Game.MinBet == 0 {
		config.Game.MinBet = 1
	}
	if config.Ledger.Path == "" {
		config.Ledger.Path = "coins.json"
	}

	return &config, nil
}
