package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Redis     RedisConfig     `json:"redis"`
	Postgres  PostgresConfig  `json:"postgres"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Services  []ServiceConfig `json:"services"`
}

type ServerConfig struct {
	Port           string `json:"port"`
	Environment    string `json:"environment"`
	JWTSecret      string `json:"-"` // env only (JWT_SECRET)
	JWTExpiryHours int    `json:"jwt_expiry_hours"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"-"` // env only (REDIS_PASSWORD)
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type PostgresConfig struct {
	DSN string `json:"-"` // env only (DATABASE_URL)
}

type RateLimitConfig struct {
	// WindowSeconds is the fixed counting window. Defaults to 60.
	WindowSeconds int `json:"window_seconds"`
	// AllowList identifiers (trusted internal IPs) bypass rate limiting.
	AllowList []string `json:"allow_list"`
	// SkipOnError fails open when the backing store is unreachable.
	SkipOnError bool `json:"skip_on_error"`
}

// ServiceConfig describes one proxied backend.
type ServiceConfig struct {
	Path    string   `json:"path"`
	Targets []string `json:"targets"`
	// LimitClass assigns the rate-limit bucket: general, generation, upload, auth.
	LimitClass string `json:"limit_class"`
	// Metered services go through the credit gate and get charged.
	Metered bool `json:"metered"`
	// PricingStrategy selects the cost formula: "endpoint" (default) or "workflow".
	PricingStrategy      string `json:"pricing_strategy"`
	LoadBalancerStrategy string `json:"load_balancer_strategy"`
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	// Secrets come from the environment, never the config file
	config.Server.JWTSecret = os.Getenv("JWT_SECRET")
	config.Postgres.DSN = os.Getenv("DATABASE_URL")
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")

	if host := os.Getenv("REDIS_HOST"); host != "" {
		config.Redis.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		config.Redis.Port = port
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			config.Redis.DB = n
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Server.JWTExpiryHours <= 0 {
		c.Server.JWTExpiryHours = 24
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == "" {
		c.Redis.Port = "6379"
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
}
