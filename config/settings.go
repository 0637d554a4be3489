package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings configures the relay server.
type Settings struct {
	// Env is "prod" for JSON logs, anything else for development output.
	Env string `yaml:"env"`

	Addr          string `yaml:"addr"`
	AllowedOrigin string `yaml:"allowed_origin"`

	// DBPath is the SQLite presence log. Empty disables it.
	DBPath string `yaml:"db_path"`

	// SendBuffer is the number of outbound messages queued per client
	// before the relay gives up on it.
	SendBuffer int `yaml:"send_buffer"`
	// MaxMessageBytes bounds one inbound websocket frame; snapshots are the
	// largest messages.
	MaxMessageBytes int64 `yaml:"max_message_bytes"`

	MDNS     bool   `yaml:"mdns"`
	MDNSName string `yaml:"mdns_name"`

	Client ClientSettings `yaml:"client"`
}

// ClientSettings configures a participant.
type ClientSettings struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// SyncTimeout ends reconciliation when no snapshot arrives in time.
	SyncTimeout time.Duration `yaml:"sync_timeout"`
	// Codec is "json" or "cbor".
	Codec string `yaml:"codec"`
}

func Defaults() Settings {
	return Settings{
		Env:             "dev",
		Addr:            ":8080",
		AllowedOrigin:   "http://localhost:5173",
		SendBuffer:      256,
		MaxMessageBytes: 32 << 20,
		MDNSName:        "sketchroom",
		Client: ClientSettings{
			Width:       1280,
			Height:      720,
			SyncTimeout: 5 * time.Second,
			Codec:       "json",
		},
	}
}

// Load reads defaults, then the YAML file at path (if any), then a .env file
// in the working directory, then SKETCHROOM_* variables.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &s); err != nil {
			return s, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return s, fmt.Errorf("load .env: %w", err)
	}
	s.ApplyEnv()

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) ApplyEnv() {
	envString("ENV", &s.Env)
	envString("SKETCHROOM_ADDR", &s.Addr)
	envString("SKETCHROOM_ALLOWED_ORIGIN", &s.AllowedOrigin)
	envString("SKETCHROOM_DB_PATH", &s.DBPath)
	envInt("SKETCHROOM_SEND_BUFFER", &s.SendBuffer)
	envInt64("SKETCHROOM_MAX_MESSAGE_BYTES", &s.MaxMessageBytes)
	envBool("SKETCHROOM_MDNS", &s.MDNS)
	envString("SKETCHROOM_MDNS_NAME", &s.MDNSName)
	envInt("SKETCHROOM_CANVAS_WIDTH", &s.Client.Width)
	envInt("SKETCHROOM_CANVAS_HEIGHT", &s.Client.Height)
	envDuration("SKETCHROOM_SYNC_TIMEOUT", &s.Client.SyncTimeout)
	envString("SKETCHROOM_CODEC", &s.Client.Codec)
}

func (s Settings) Validate() error {
	if s.Addr == "" {
		return errors.New("config: addr is required")
	}
	if s.SendBuffer <= 0 {
		return fmt.Errorf("config: send_buffer must be positive, got %d", s.SendBuffer)
	}
	if s.MaxMessageBytes < 1024 {
		return fmt.Errorf("config: max_message_bytes too small: %d", s.MaxMessageBytes)
	}
	if s.MDNS && s.MDNSName == "" {
		return errors.New("config: mdns_name is required when mdns is enabled")
	}
	return s.Client.Validate()
}

func (c ClientSettings) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: canvas size %dx%d", c.Width, c.Height)
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("config: sync_timeout must be positive, got %s", c.SyncTimeout)
	}
	switch c.Codec {
	case "json", "cbor":
	default:
		return fmt.Errorf("config: unknown codec %q", c.Codec)
	}
	return nil
}
