package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/richman/backend/internal/game/models"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	MongoDB     MongoDBConfig     `mapstructure:"mongodb"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Game        models.GameConfig `mapstructure:"game"`
	Session     SessionConfig     `mapstructure:"session"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	AutoSave    AutoSaveConfig    `mapstructure:"autosave"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI       string `mapstructure:"uri"`
	Database  string `mapstructure:"database"`
	SavesColl string `mapstructure:"saves_collection"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URI      string `mapstructure:"uri"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration int    `mapstructure:"expiration"` // in hours
}

// SessionConfig holds game session policy outside the rules themselves
type SessionConfig struct {
	DefaultMode string `mapstructure:"default_mode"`
	IdleExpiry  int    `mapstructure:"idle_expiry"` // in hours, 0 keeps sessions forever
}

// PersistenceConfig selects where save slots are stored
type PersistenceConfig struct {
	Driver     string `mapstructure:"driver"` // mongodb, sqlite or memory
	SQLitePath string `mapstructure:"sqlite_path"`
}

// AutoSaveConfig controls periodic snapshots of running sessions
type AutoSaveConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Interval int  `mapstructure:"interval"` // in seconds
	Keep     int  `mapstructure:"keep"`
}

// Load reads configuration from a file or environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/richman-backend")

	// Environment variables, e.g. GAME_INITIAL_CASH for game.initial_cash
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found; we'll just use environment and defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if err := c.Game.Validate(); err != nil {
		return err
	}
	switch c.Persistence.Driver {
	case "mongodb", "memory":
	case "sqlite":
		if c.Persistence.SQLitePath == "" {
			return fmt.Errorf("persistence.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown persistence driver %q", c.Persistence.Driver)
	}
	if c.AutoSave.Enabled && c.AutoSave.Interval <= 0 {
		return fmt.Errorf("autosave.interval must be positive")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 15)
	viper.SetDefault("server.write_timeout", 15)

	// MongoDB defaults
	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "richman")
	viper.SetDefault("mongodb.saves_collection", "game_saves")

	// Redis defaults
	viper.SetDefault("redis.uri", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// JWT defaults
	viper.SetDefault("jwt.secret", "replace-with-secure-secret")
	viper.SetDefault("jwt.expiration", 24)

	// Game rule defaults
	rules := models.DefaultGameConfig()
	viper.SetDefault("game.initial_cash", rules.InitialCash)
	viper.SetDefault("game.start_bonus", rules.StartBonus)
	viper.SetDefault("game.jail_fine", rules.JailFine)
	viper.SetDefault("game.jail_turns", rules.JailTurns)
	viper.SetDefault("game.tax_rate", rules.TaxRate)
	viper.SetDefault("game.income_tax", rules.IncomeTax)
	viper.SetDefault("game.luxury_tax", rules.LuxuryTax)
	viper.SetDefault("game.dice_count", rules.DiceCount)
	viper.SetDefault("game.dice_sides", rules.DiceSides)
	viper.SetDefault("game.min_players", rules.MinPlayers)
	viper.SetDefault("game.max_players", rules.MaxPlayers)
	viper.SetDefault("game.history_cap", rules.HistoryCap)

	// Session defaults
	viper.SetDefault("session.default_mode", "standard")
	viper.SetDefault("session.idle_expiry", 24)

	// Persistence defaults
	viper.SetDefault("persistence.driver", "mongodb")
	viper.SetDefault("persistence.sqlite_path", "richman.db")

	// Auto-save defaults
	viper.SetDefault("autosave.enabled", true)
	viper.SetDefault("autosave.interval", 300) // 5 minutes
	viper.SetDefault("autosave.keep", 5)
}
