// Package config loads graviton-bridge settings from defaults, an optional
// YAML file and GRAVITON_ prefixed environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jaskirat05/graviton-bridge"
)

const EnvPrefix = "GRAVITON_"

type Config struct {
	Bridge  BridgeConfig  `yaml:"bridge" envPrefix:"BRIDGE_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Sandbox SandboxConfig `yaml:"sandbox" envPrefix:"SANDBOX_"`
}

type BridgeConfig struct {
	HostSource          string        `yaml:"host_source" env:"HOST_SOURCE"`
	BridgeSource        string        `yaml:"bridge_source" env:"SOURCE"`
	PollInterval        time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	ReadyTimeout        time.Duration `yaml:"ready_timeout" env:"READY_TIMEOUT"`
	ImportAttempts      int           `yaml:"import_attempts" env:"IMPORT_ATTEMPTS"`
	ImportRetryDelay    time.Duration `yaml:"import_retry_delay" env:"IMPORT_RETRY_DELAY"`
	TransientSignatures []string      `yaml:"transient_signatures" env:"TRANSIENT_SIGNATURES" envSeparator:"|"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr" env:"ADDR"`
	WebSocketPath  string        `yaml:"websocket_path" env:"WEBSOCKET_PATH"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	ReadLimit      int64         `yaml:"read_limit" env:"READ_LIMIT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace" env:"SHUTDOWN_GRACE"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// SandboxConfig controls the in-memory application used by serve --sandbox.
type SandboxConfig struct {
	GraphDelay   time.Duration `yaml:"graph_delay" env:"GRAPH_DELAY"`
	CanvasDelay  time.Duration `yaml:"canvas_delay" env:"CANVAS_DELAY"`
	UIDelay      time.Duration `yaml:"ui_delay" env:"UI_DELAY"`
	RaceFailures int           `yaml:"race_failures" env:"RACE_FAILURES"`
}

func Default() Config {
	return Config{
		Bridge: BridgeConfig{
			HostSource:          bridge.DefaultHostSource,
			BridgeSource:        bridge.DefaultBridgeSource,
			PollInterval:        bridge.DefaultPollInterval,
			ReadyTimeout:        bridge.DefaultReadyTimeout,
			ImportAttempts:      bridge.DefaultImportAttempts,
			ImportRetryDelay:    bridge.DefaultImportRetryDelay,
			TransientSignatures: append([]string(nil), bridge.DefaultTransientSignatures...),
		},
		Server: ServerConfig{
			Addr:          ":8188",
			WebSocketPath: "/bridge",
			ReadLimit:     8 << 20,
			WriteTimeout:  5 * time.Second,
			ShutdownGrace: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path when path is not
// empty, and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate performs basic structural validation.
func (c Config) Validate() error {
	if err := c.Bridge.Validate(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Sandbox.GraphDelay < 0 || c.Sandbox.CanvasDelay < 0 || c.Sandbox.UIDelay < 0 {
		return fmt.Errorf("sandbox: delays must not be negative")
	}
	return nil
}

func (c BridgeConfig) Validate() error {
	if strings.TrimSpace(c.HostSource) == "" || strings.TrimSpace(c.BridgeSource) == "" {
		return fmt.Errorf("source tags are required")
	}
	if c.HostSource == c.BridgeSource {
		return fmt.Errorf("host_source and bridge_source must differ")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.ReadyTimeout < c.PollInterval {
		return fmt.Errorf("ready_timeout must be at least poll_interval")
	}
	if c.ImportAttempts < 1 {
		return fmt.Errorf("import_attempts must be at least 1")
	}
	if c.ImportRetryDelay < 0 {
		return fmt.Errorf("import_retry_delay must not be negative")
	}
	return nil
}

func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if !strings.HasPrefix(c.WebSocketPath, "/") {
		return fmt.Errorf("websocket_path must start with /")
	}
	if c.ReadLimit < 0 {
		return fmt.Errorf("read_limit must not be negative")
	}
	return nil
}

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

func (c LogConfig) Validate() error {
	level := strings.ToLower(c.Level)
	valid := false
	for _, l := range logLevels {
		if l == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

// Options translates the bridge section into bridge options.
func (c BridgeConfig) Options() []bridge.Option {
	opts := []bridge.Option{
		bridge.WithHostSource(c.HostSource),
		bridge.WithBridgeSource(c.BridgeSource),
		bridge.WithPollInterval(c.PollInterval),
		bridge.WithReadyTimeout(c.ReadyTimeout),
		bridge.WithImportAttempts(c.ImportAttempts),
		bridge.WithImportRetryDelay(c.ImportRetryDelay),
	}
	if len(c.TransientSignatures) > 0 {
		opts = append(opts, bridge.WithTransientSignatures(c.TransientSignatures...))
	}
	return opts
}
