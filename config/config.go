package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // presence-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Redis struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type Presence struct {
	TTLSeconds int    `yaml:"ttlSeconds"` // room lease, default 7200
	Store      string `yaml:"store"`      // memory|redis
	Bus        string `yaml:"bus"`        // local|redis
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	Presence Presence `yaml:"presence"`
	CORS     CORS     `yaml:"cors"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TTL is the room lease duration.
func (p Presence) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret is required")
	}
	if c.Presence.Store == "" {
		c.Presence.Store = "memory"
	}
	if c.Presence.Bus == "" {
		c.Presence.Bus = "local"
	}
	if c.Presence.Store != "memory" && c.Presence.Store != "redis" {
		return errors.New("presence.store must be memory or redis")
	}
	if c.Presence.Bus != "local" && c.Presence.Bus != "redis" {
		return errors.New("presence.bus must be local or redis")
	}
	if (c.Presence.Store == "redis" || c.Presence.Bus == "redis") && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for redis store/bus")
	}
	if c.Presence.TTLSeconds <= 0 {
		c.Presence.TTLSeconds = 7200
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "presence-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}
