package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	Enabled bool    `yaml:"enabled"`
	Weight  float64 `yaml:"weight"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Aggregator struct {
		UpdateInterval          time.Duration           `yaml:"update_interval"`
		ConfidenceThreshold     float64                 `yaml:"confidence_threshold"`
		MaxDataAge              time.Duration           `yaml:"max_data_age"`
		EnableTechnicalAnalysis bool                    `yaml:"enable_technical_analysis"`
		Sources                 map[string]SourceConfig `yaml:"sources"`
	} `yaml:"aggregator"`
	Feeds struct {
		RegistryURL     string        `yaml:"registry_url"`
		RegistryTimeout time.Duration `yaml:"registry_timeout"`
		Oracle          struct {
			Enabled      bool          `yaml:"enabled"`
			BaseURL      string        `yaml:"base_url"`
			PollInterval time.Duration `yaml:"poll_interval"`
			Timeout      time.Duration `yaml:"timeout"`
		} `yaml:"oracle"`
		Stream struct {
			Enabled        bool          `yaml:"enabled"`
			WebSocketURL   string        `yaml:"websocket_url"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"stream"`
	} `yaml:"feeds"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		Linger       time.Duration `yaml:"linger"`
		BatchSize    int           `yaml:"batch_size"`
		BatchBytes   int           `yaml:"batch_bytes"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REGISTRY_URL"); v != "" {
		c.Feeds.RegistryURL = v
	}
	if v := os.Getenv("ORACLE_BASE_URL"); v != "" {
		c.Feeds.Oracle.BaseURL = v
	}
	if v := os.Getenv("STREAM_WEBSOCKET_URL"); v != "" {
		c.Feeds.Stream.WebSocketURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Aggregator.UpdateInterval <= 0 {
		c.Aggregator.UpdateInterval = 10 * time.Second
	}
	if c.Aggregator.ConfidenceThreshold <= 0 {
		c.Aggregator.ConfidenceThreshold = 70
	}
	if c.Aggregator.MaxDataAge <= 0 {
		c.Aggregator.MaxDataAge = time.Minute
	}
	if c.Feeds.RegistryTimeout <= 0 {
		c.Feeds.RegistryTimeout = 10 * time.Second
	}
	if c.Feeds.Oracle.PollInterval <= 0 {
		c.Feeds.Oracle.PollInterval = 15 * time.Second
	}
	if c.Feeds.Oracle.Timeout <= 0 {
		c.Feeds.Oracle.Timeout = 10 * time.Second
	}
	if c.Feeds.Stream.ReconnectDelay <= 0 {
		c.Feeds.Stream.ReconnectDelay = 5 * time.Second
	}
	if c.Feeds.Stream.PingInterval <= 0 {
		c.Feeds.Stream.PingInterval = 30 * time.Second
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 5 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Aggregator.ConfidenceThreshold < 0 || c.Aggregator.ConfidenceThreshold > 100 {
		return fmt.Errorf("aggregator.confidence_threshold must be within [0,100], got %v", c.Aggregator.ConfidenceThreshold)
	}
	for name, s := range c.Aggregator.Sources {
		if s.Weight < 0 || s.Weight > 1 {
			return fmt.Errorf("aggregator.sources.%s.weight must be within [0,1], got %v", name, s.Weight)
		}
	}
	if c.Feeds.Oracle.Enabled && c.Feeds.Oracle.BaseURL == "" {
		return fmt.Errorf("feeds.oracle.base_url is required when the oracle feed is enabled")
	}
	if c.Feeds.Stream.Enabled && c.Feeds.Stream.WebSocketURL == "" {
		return fmt.Errorf("feeds.stream.websocket_url is required when the stream feed is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
