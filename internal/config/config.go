package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type GameConfig struct {
	RoomCodeLength int           `mapstructure:"room_code_length"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional yaml file, with WHIST_* environment
// variables taking precedence (e.g. WHIST_SERVER_ADDR, WHIST_AUTH_JWT_SECRET).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.path", "./data/whist.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("game.room_code_length", 6)
	v.SetDefault("game.settle_delay", 3*time.Second)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("WHIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to defaults and environment.
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
