package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"FinCast/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Logger      LoggerConfig     `yaml:"logger"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Provider    ProviderConfig   `yaml:"provider"`
	Cache       CacheConfig      `yaml:"cache"`
	Redis       RedisConfig      `yaml:"redis"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Finnhub     FinnhubConfig    `yaml:"finnhub"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	RateLimit       float64       `yaml:"rate_limit" default:"5"`
	RateBurst       int           `yaml:"rate_burst" default:"10"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

// SimulationConfig tunes training and path generation.
type SimulationConfig struct {
	TrainingPeriod     string        `yaml:"training_period" default:"10y" validate:"oneof=1y 2y 5y 10y max"`
	RecentPeriod       string        `yaml:"recent_period" default:"2y" validate:"oneof=3mo 6mo 1y 2y 5y"`
	ValidationFraction float64       `yaml:"validation_fraction" default:"0.2" validate:"gte=0,lt=1"`
	VolWindow          int           `yaml:"vol_window" default:"20" validate:"gte=2"`
	BufferLen          int           `yaml:"buffer_len"`
	// Zero noise_scale or noise_cap falls back to the default; use
	// noise_disabled to turn the perturbation off.
	NoiseScale         float64       `yaml:"noise_scale" default:"2" validate:"gt=0"`
	NoiseCap           float64       `yaml:"noise_cap" default:"5" validate:"gt=0"`
	NoiseDisabled      bool          `yaml:"noise_disabled"`
	PriceFloor         float64       `yaml:"price_floor" default:"0.01" validate:"gt=0"`
	RidgeLambda        float64       `yaml:"ridge_lambda" default:"1" validate:"gt=0"`
	Workers            int           `yaml:"workers" default:"8" validate:"gte=1"`
	FetchWorkers       int           `yaml:"fetch_workers" default:"4" validate:"gte=1"`
	MaxPaths           int           `yaml:"max_paths" default:"100000" validate:"gte=1"`
	Timeout            time.Duration `yaml:"timeout" default:"5m"`
}

// ProviderConfig points at the end-of-day price HTTP API.
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url" default:"https://eodhd.com/api" validate:"url"`
	APIKey       string        `yaml:"api_key"`
	Exchange     string        `yaml:"exchange" default:"US"`
	Timeout      time.Duration `yaml:"timeout" default:"15s"`
	RateLimit    float64       `yaml:"rate_limit" default:"10" validate:"gt=0"`
	RetryMax     int           `yaml:"retry_max" default:"3" validate:"gte=0"`
	VerifyPeriod string        `yaml:"verify_period" default:"1mo" validate:"oneof=5d 1mo 3mo"`
}

type CacheConfig struct {
	Type     string        `yaml:"type" default:"memory" validate:"oneof=memory redis layered"`
	TTL      time.Duration `yaml:"ttl" default:"6h"`
	Capacity int           `yaml:"capacity" default:"512" validate:"gte=1"`
}

type RedisConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"fincast"`
}

type ClickHouseConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"fincast"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	RequestTopic string        `yaml:"request_topic" default:"fincast.simulation.requests"`
	ResultTopic  string        `yaml:"result_topic" default:"fincast.simulation.results"`
	GroupID      string        `yaml:"group_id" default:"fincast"`
	Workers      int           `yaml:"workers" default:"2" validate:"gte=1"`
	MaxAttempts  int           `yaml:"max_attempts" default:"5"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
}

type FinnhubConfig struct {
	Enabled        bool          `yaml:"enabled"`
	APIKey         string        `yaml:"api_key"`
	WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
	QuoteWait      time.Duration `yaml:"quote_wait" default:"3s"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, applying defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration holding only defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("FINCAST_ENV"); ok && v != "" {
		c.Environment = v
	}
	if v, ok := lookup("PROVIDER_API_KEY"); ok && v != "" {
		c.Provider.APIKey = v
	}
	if v, ok := lookup("FINNHUB_API_KEY"); ok && v != "" {
		c.Finnhub.APIKey = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v, ok := lookup("REDIS_HOST"); ok && v != "" {
		c.Redis.Host = v
	}
	if v, ok := lookup("CLICKHOUSE_HOST"); ok && v != "" {
		c.ClickHouse.Host = v
	}
}

// Validate checks struct tags and the rules spanning sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Finnhub.Enabled && c.Finnhub.APIKey == "" {
		return errors.New("finnhub.api_key is required when finnhub is enabled")
	}
	if c.Simulation.BufferLen != 0 && c.Simulation.BufferLen < c.Simulation.VolWindow+2 {
		return fmt.Errorf("simulation.buffer_len must be 0 or at least %d", c.Simulation.VolWindow+2)
	}
	return nil
}

// RedisAddr returns host:port of the redis server.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
