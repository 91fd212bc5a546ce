package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Labels   LabelsConfig
	Import   ImportConfig
	UI       UIConfig
	Log      LogConfig
}

// DatabaseConfig locates the snapshot file.
type DatabaseConfig struct {
	Path string
	// Lock takes the advisory process lock beside Path.
	Lock bool
}

// LabelsConfig configures auto().
type LabelsConfig struct {
	RulesPath  string `mapstructure:"rules_path"`
	Similarity float64
}

// ImportConfig tunes CSV classification.
type ImportConfig struct {
	SampleRows int `mapstructure:"sample_rows"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	// Timezone is the location "now" is taken in when resolving bare months.
	Timezone string
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string
}

// Location resolves UI.Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.UI.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func configDir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "moneyql")
}

// Load reads configuration from file and env. Env var overrides use prefix MONEYQL_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "moneyql", "moneyql.db"))
	v.SetDefault("database.lock", true)
	v.SetDefault("labels.rules_path", filepath.Join(configDir(), "rules.toml"))
	v.SetDefault("labels.similarity", 0.8)
	v.SetDefault("import.sample_rows", 5)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("ui.timezone", "")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MONEYQL_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MONEYQL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Import.SampleRows <= 0 {
		return Config{}, fmt.Errorf("import.sample_rows must be positive, got %d", c.Import.SampleRows)
	}
	if c.Labels.Similarity <= 0 || c.Labels.Similarity > 1 {
		return Config{}, fmt.Errorf("labels.similarity must be in (0, 1], got %v", c.Labels.Similarity)
	}
	return c, nil
}

// Path is the file Load reads and Save writes.
func Path() string {
	if p := os.Getenv("MONEYQL_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(configDir(), "config.toml")
}

// Save writes cfg to Path, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.lock", cfg.Database.Lock)
	v.Set("labels.rules_path", cfg.Labels.RulesPath)
	v.Set("labels.similarity", cfg.Labels.Similarity)
	v.Set("import.sample_rows", cfg.Import.SampleRows)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
