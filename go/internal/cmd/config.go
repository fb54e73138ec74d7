package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/lunchwheel/go/internal/gateway"
)

// Config holds process configuration, loaded from an optional yaml file with
// environment overrides for deploy-time settings.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Gateway struct {
		WriteTimeoutSec int   `yaml:"write_timeout_sec"`
		ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
		PingIntervalSec int   `yaml:"ping_interval_sec"`
		MaxMessageSize  int64 `yaml:"max_message_size"`
	} `yaml:"gateway"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.AllowedOrigins = []string{"*"}
	return cfg
}

// loadConfig reads the yaml config file when present, then applies env
// overrides. A missing file is not an error; defaults apply.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	return cfg, nil
}

// gatewayConfig maps process configuration onto the gateway's settings
func (c *Config) gatewayConfig() gateway.Config {
	gwCfg := gateway.DefaultConfig()
	if c.Gateway.WriteTimeoutSec > 0 {
		gwCfg.ConnectionConfig.WriteTimeout = time.Duration(c.Gateway.WriteTimeoutSec) * time.Second
	}
	if c.Gateway.ReadTimeoutSec > 0 {
		gwCfg.ConnectionConfig.ReadTimeout = time.Duration(c.Gateway.ReadTimeoutSec) * time.Second
	}
	if c.Gateway.PingIntervalSec > 0 {
		gwCfg.ConnectionConfig.PingInterval = time.Duration(c.Gateway.PingIntervalSec) * time.Second
	}
	if c.Gateway.MaxMessageSize > 0 {
		gwCfg.ConnectionConfig.MaxMessageSize = c.Gateway.MaxMessageSize
	}
	gwCfg.NATSURL = c.NATS.URL
	gwCfg.NATSSubjectPrefix = c.NATS.SubjectPrefix
	return gwCfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
