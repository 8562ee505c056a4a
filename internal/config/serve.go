package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ServeConfig holds configuration for the HTTP server.
type ServeConfig struct {
	Config
	Listen        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		Config:        fromViper(v),
		Listen:        v.GetString("listen"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),
		CacheTTL:      v.GetDuration("cache-ttl"),
	}

	return cfg, nil
}

// Validate checks the shared settings and the server specific ones.
func (c ServeConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.RedisAddr != "" && c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive when redis is enabled")
	}
	return nil
}
