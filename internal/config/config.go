package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all client configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Board   BoardConfig   `mapstructure:"board"`
	Hand    HandConfig    `mapstructure:"hand"`
	Input   InputConfig   `mapstructure:"input"`
	Session SessionConfig `mapstructure:"session"`
	Replay  ReplayConfig  `mapstructure:"replay"`
	Inspect InspectConfig `mapstructure:"inspect"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig describes the game server connection
type ServerConfig struct {
	URL            string        `mapstructure:"url"`
	Room           string        `mapstructure:"room"`
	PlayerName     string        `mapstructure:"player_name"`
	Token          string        `mapstructure:"token"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

// BoardConfig sets the zone grid shape used for every player
type BoardConfig struct {
	Rows    int `mapstructure:"rows"`
	Columns int `mapstructure:"columns"`
}

// HandConfig sets the fan layout anchor
type HandConfig struct {
	CenterX float64 `mapstructure:"center_x"`
	CenterY float64 `mapstructure:"center_y"`
	Radius  float64 `mapstructure:"radius"`
}

// InputConfig configures gesture mediation
type InputConfig struct {
	// CancelPolicy is "notify" or "silent"
	CancelPolicy string `mapstructure:"cancel_policy"`
}

// SessionConfig configures the local session model
type SessionConfig struct {
	StartLife        int  `mapstructure:"start_life"`
	StrictInvariants bool `mapstructure:"strict_invariants"`
}

// ReplayConfig configures the inbound message journal
type ReplayConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

// InspectConfig configures the local gRPC status endpoint
type InspectConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file, environment variables and defaults.
// A missing file is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TABLECLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks value ranges that would otherwise surface as odd runtime behavior
func (c *Config) Validate() error {
	if c.Board.Rows <= 0 || c.Board.Columns <= 0 {
		return fmt.Errorf("board must have at least one row and column, got %dx%d", c.Board.Rows, c.Board.Columns)
	}
	switch c.Input.CancelPolicy {
	case "notify", "silent":
	default:
		return fmt.Errorf("unknown input.cancel_policy %q", c.Input.CancelPolicy)
	}
	if c.Server.MaxMessageSize <= 0 {
		return fmt.Errorf("server.max_message_size must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "ws://localhost:8080/ws")
	v.SetDefault("server.room", "")
	v.SetDefault("server.player_name", "player1")
	v.SetDefault("server.token", "")
	v.SetDefault("server.dial_timeout", 10*time.Second)
	v.SetDefault("server.write_wait", 10*time.Second)
	v.SetDefault("server.pong_wait", 60*time.Second)
	v.SetDefault("server.max_message_size", 64*1024)
	v.SetDefault("server.send_buffer", 256)

	v.SetDefault("board.rows", 2)
	v.SetDefault("board.columns", 5)

	v.SetDefault("hand.center_x", 512.0)
	v.SetDefault("hand.center_y", 768.0)
	v.SetDefault("hand.radius", 200.0)

	v.SetDefault("input.cancel_policy", "notify")

	v.SetDefault("session.start_life", 20)
	v.SetDefault("session.strict_invariants", false)

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.directory", "replays")

	v.SetDefault("inspect.enabled", false)
	v.SetDefault("inspect.address", "127.0.0.1:7070")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
