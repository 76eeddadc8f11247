package settings

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Settings holds the runtime configuration, sourced from PARLEY_* environment
// variables and an optional ~/.parley/config.yaml.
type Settings struct {
	OpenRouterAPIKey string `mapstructure:"openrouter-api-key"`
	BaseURL          string `mapstructure:"base-url"`
	StorageDir       string `mapstructure:"storage-dir"`
	AllowedModels    string `mapstructure:"allowed-models"`
	CacheSize        int    `mapstructure:"cache-size"`
	LogLevel         string `mapstructure:"log-level"`
}

func Load() (*Settings, error) {
	v := viper.New()

	v.SetDefault("base-url", "")
	v.SetDefault("storage-dir", "")
	v.SetDefault("allowed-models", "")
	v.SetDefault("cache-size", 0)
	v.SetDefault("log-level", "info")

	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// The upstream variable name works too, so existing OpenRouter setups
	// don't need a rename.
	_ = v.BindEnv("openrouter-api-key", "PARLEY_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("allowed-models", "PARLEY_ALLOWED_MODELS", "OPENROUTER_ALLOWED_MODELS")

	if homeDir, err := os.UserHomeDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir, ".parley"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "failed to read config file")
			}
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal settings")
	}

	return s, nil
}

// SetupLogging configures the global zerolog logger. Output goes to stderr;
// stdout is reserved for the protocol stream.
func (s *Settings) SetupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil || s.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	log.Logger = log.Output(output).
		With().
		Timestamp().
		Str("service", "parley").
		Logger().
		Level(level)
}
