package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	X402      X402Config      `mapstructure:"x402"`
	Gate      GateConfig      `mapstructure:"gate"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig is the HTTP listener
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

// DatabaseConfig selects the gorm dialector. DSN wins over the discrete fields when set.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	Migrate      bool   `mapstructure:"migrate"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

// X402Config is the payee and session policy
type X402Config struct {
	WalletAddress string        `mapstructure:"wallet_address"`
	Network       string        `mapstructure:"network"`
	Currency      string        `mapstructure:"currency"`
	MaxSessionAge time.Duration `mapstructure:"max_session_age"`
}

// GateConfig lists the payment-gated routes
type GateConfig struct {
	Routes []GateRoute `mapstructure:"routes"`
}

// GateRoute is a payment-gated path. Price is a decimal USDC string.
type GateRoute struct {
	Path        string `mapstructure:"path"`
	Price       string `mapstructure:"price"`
	Description string `mapstructure:"description"`
}

// RateLimitConfig limits verify-payment calls per client IP
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
}

// LogConfig selects zerolog level and output format
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.trusted_proxies", []string{"127.0.0.1"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "thula")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.max_idle_conns", 15)
	v.SetDefault("database.max_open_conns", 120)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("x402.wallet_address", "")
	v.SetDefault("x402.network", "base")
	v.SetDefault("x402.currency", "USDC")
	v.SetDefault("x402.max_session_age", 24*time.Hour)

	v.SetDefault("gate.routes", []map[string]interface{}{
		{"path": "/api/analytics/detailed", "price": "0.01", "description": "Detailed campaign analytics"},
		{"path": "/api/campaigns/premium", "price": "0.005", "description": "Premium campaign features"},
		{"path": "/api/campaigns/boost", "price": "0.02", "description": "Boost campaign visibility"},
	})

	v.SetDefault("ratelimit.per_minute", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig loads .env, then config.yaml (working dir first, then the executable's dir), then THULA_* env vars
func LoadConfig(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("THULA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the frontend's variable name
	if err := v.BindEnv("x402.wallet_address", "THULA_X402_WALLET_ADDRESS", "X402_WALLET_ADDRESS"); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
		return nil
	}

	candidates := []string{"config.yaml"}
	if execDir, err := filepath.Abs(filepath.Dir(os.Args[0])); err == nil {
		candidates = append(candidates, filepath.Join(execDir, "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	// no config file: defaults and env only
	return nil
}

// Validate checks the minimum needed to boot
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.X402.MaxSessionAge <= 0 {
		return errors.New("x402.max_session_age must be positive")
	}
	return nil
}
