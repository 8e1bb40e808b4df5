// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON config
// file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
)

// Options holds the configuration values for the application.
type Options struct {
	// APIBaseURL is the base URL of the remote translation API.
	APIBaseURL string `json:"api_base_url" env:"API_BASE_URL"`

	// APIKey is the bearer credential attached to every remote call.
	APIKey string `json:"api_key" env:"API_KEY"`

	// TextModel, VisionModel, AudioModel and SpeechModel select the
	// remote models per operation. Empty values use built-in defaults.
	TextModel   string `json:"text_model" env:"TEXT_MODEL"`
	VisionModel string `json:"vision_model" env:"VISION_MODEL"`
	AudioModel  string `json:"audio_model" env:"AUDIO_MODEL"`
	SpeechModel string `json:"speech_model" env:"SPEECH_MODEL"`

	// StorePath is the path of the local state file.
	StorePath string `json:"store_path" env:"STORE_PATH"`

	// Passphrase, when non-empty, encrypts the local state file at rest.
	Passphrase string `json:"passphrase" env:"STORE_PASSPHRASE"`

	// DatabaseDSN, when non-empty, switches persistence from the local
	// state file to a PostgreSQL kv table.
	DatabaseDSN string `json:"database_dsn" env:"DATABASE_DSN"`

	// RecordingsDir is where captured audio and synthesized speech live.
	RecordingsDir string `json:"recordings_dir" env:"RECORDINGS_DIR"`

	// Addr is the stub server's listening address (ip:port).
	Addr string `json:"addr" env:"SERVER_ADDRESS"`

	// LogLevel sets the logging verbosity.
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// Config is the path to the config file.
	Config string `json:"-" env:"CONFIG"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.APIBaseURL, "url", "https://api.openai.com", "remote API base URL")
	flag.StringVar(&options.APIKey, "key", "", "remote API bearer key")
	flag.StringVar(&options.StorePath, "store", "store.json", "path to the local state file")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.RecordingsDir, "rec", "recordings", "recordings directory")
	flag.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.LogLevel, "level", "info", "log level")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags, the config file and environment
// variables to set configuration values. Environment variables win over
// the file, which wins over flags. It returns a pointer to the Options
// struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if err := env.Parse(options); err != nil {
		log.Fatalf("error while parsing environment: %v", err)
	}

	return options
}
