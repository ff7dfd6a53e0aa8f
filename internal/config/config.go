// Package config loads daemon configuration from defaults and environment
// variables. Every setting has a RECONNECT_* variable; the Groq key also
// honors the conventional GROQ_API_KEY.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Server  ServerConfig
	Speech  SpeechConfig
	Storage StorageConfig
	Log     LogConfig
	Owner   string
}

type ServerConfig struct {
	Port int
	// APIToken protects the HTTP API. Empty means no auth, for
	// loopback-only setups.
	APIToken string
}

type SpeechConfig struct {
	BaseURL         string
	APIKey          string
	TranscribeModel string
	ExtractModel    string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Speech: SpeechConfig{
			BaseURL:         "https://api.groq.com/openai/v1",
			TranscribeModel: "whisper-large-v3",
			ExtractModel:    "llama-3.3-70b-versatile",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Owner: "local",
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "reconnect")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "reconnect")
}

type keySpec struct {
	env   string
	apply func(cfg *Config, v string) error
}

var specs = []keySpec{
	{env: "RECONNECT_SERVER_PORT", apply: func(cfg *Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid port %q", v)
		}
		cfg.Server.Port = port
		return nil
	}},
	{env: "RECONNECT_API_TOKEN", apply: func(cfg *Config, v string) error {
		cfg.Server.APIToken = v
		return nil
	}},
	{env: "RECONNECT_SPEECH_BASE_URL", apply: func(cfg *Config, v string) error {
		cfg.Speech.BaseURL = v
		return nil
	}},
	{env: "RECONNECT_SPEECH_API_KEY", apply: func(cfg *Config, v string) error {
		cfg.Speech.APIKey = v
		return nil
	}},
	{env: "RECONNECT_TRANSCRIBE_MODEL", apply: func(cfg *Config, v string) error {
		cfg.Speech.TranscribeModel = v
		return nil
	}},
	{env: "RECONNECT_EXTRACT_MODEL", apply: func(cfg *Config, v string) error {
		cfg.Speech.ExtractModel = v
		return nil
	}},
	{env: "RECONNECT_DATA_DIR", apply: func(cfg *Config, v string) error {
		cfg.Storage.DataDir = v
		return nil
	}},
	{env: "RECONNECT_LOG_LEVEL", apply: func(cfg *Config, v string) error {
		cfg.Log.Level = v
		return nil
	}},
	{env: "RECONNECT_OWNER", apply: func(cfg *Config, v string) error {
		cfg.Owner = v
		return nil
	}},
}

// Load builds the configuration from defaults overridden by environment
// variables. The speech API key is not required here: only the capture
// pipeline needs it, and the speech client reports its absence when used.
func Load() (Config, error) {
	return loadWith(os.Getenv)
}

func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()
	for _, s := range specs {
		v := getenv(s.env)
		if v == "" {
			continue
		}
		if err := s.apply(&cfg, v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", s.env, err)
		}
	}
	if cfg.Speech.APIKey == "" {
		cfg.Speech.APIKey = getenv("GROQ_API_KEY")
	}
	return cfg, nil
}
