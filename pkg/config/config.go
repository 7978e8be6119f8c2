package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      ServerConfig     `yaml:"server"`
	Logging     LoggingConfig    `yaml:"logging"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Postgres    PostgresConfig   `yaml:"postgres"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
	Queue       QueueConfig      `yaml:"queue"`
	Collector   CollectorConfig  `yaml:"collector"`
	Apify       ApifyConfig      `yaml:"apify"`
	Classifier  ClassifierConfig `yaml:"classifier"`
	Binance     BinanceConfig    `yaml:"binance"`
	CoinGecko   CoinGeckoConfig  `yaml:"coingecko"`
	Chart       ChartConfig      `yaml:"chart"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"20s"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Token bucket applied per client IP to POST /api/collect.
	CollectBurst     float64 `yaml:"collect_burst" default:"2"`
	CollectPerMinute float64 `yaml:"collect_per_minute" default:"2"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`

	// DigestTopic receives aggregated error logs when Kafka is enabled; empty disables it.
	DigestTopic    string        `yaml:"digest_topic"`
	DigestInterval time.Duration `yaml:"digest_interval" default:"30s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

// PostgresConfig holds the signal store connection. DSN wins over the discrete fields.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host" default:"localhost"`
	Port            int           `yaml:"port" default:"5432"`
	Database        string        `yaml:"database" default:"signalpull"`
	User            string        `yaml:"user" default:"postgres"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	InitSchema      bool          `yaml:"init_schema"`
}

type ClickHouseConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Host           string        `yaml:"host" default:"localhost"`
	Port           int           `yaml:"port" default:"9000"`
	Database       string        `yaml:"database" default:"signalpull"`
	User           string        `yaml:"user" default:"default"`
	Password       string        `yaml:"password"`
	UseHTTP        bool          `yaml:"use_http"`
	AsyncInsert    bool          `yaml:"async_insert"`
	MaxConnections int           `yaml:"max_connections" default:"10"`
	DialTimeout    time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout    time.Duration `yaml:"read_timeout" default:"30s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic" default:"signalpull.signals.saved"`
	RequiredAcks int      `yaml:"required_acks" default:"1"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"signalpull-archive"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"128"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"signalpull.signals.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host" default:"localhost"`
	Port     int           `yaml:"port" default:"6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size" default:"10"`
	Prefix   string        `yaml:"prefix" default:"signalpull"`
	L1TTL    time.Duration `yaml:"l1_ttl" default:"30s"`
}

type QueueConfig struct {
	Workers    int           `yaml:"workers" default:"2"`
	QueueSize  int           `yaml:"queue_size" default:"256"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
}

type CollectorConfig struct {
	ScheduleInterval time.Duration `yaml:"schedule_interval" default:"30m"`
	LockTTL          time.Duration `yaml:"lock_ttl" default:"25m"`
	ItemDelay        time.Duration `yaml:"item_delay" default:"1s"`
	MinConfidence    int           `yaml:"min_confidence" default:"50" validate:"gte=0,lte=100"`
	SampleSize       int           `yaml:"sample_size" default:"40" validate:"gte=1"`
	RecentMaxItems   int           `yaml:"recent_max_items" default:"50" validate:"gte=1"`
	DefaultLimit     int           `yaml:"default_limit" default:"3" validate:"gte=1,lte=50"`
	Authors          struct {
		Pool      []string `yaml:"pool"`
		Movers    []string `yaml:"movers"`
		Sentiment []string `yaml:"sentiment"`
		Chartists []string `yaml:"chartists"`
	} `yaml:"authors"`
}

// Cookie is a scraper session cookie.
type Cookie struct {
	Name   string `yaml:"name" json:"name"`
	Value  string `yaml:"value" json:"value"`
	Domain string `yaml:"domain" json:"domain"`
	Path   string `yaml:"path" json:"path"`
}

type ApifyConfig struct {
	Token    string        `yaml:"token"`
	BaseURL  string        `yaml:"base_url" default:"https://api.apify.com"`
	Actor    string        `yaml:"actor" default:"apidojo~tweet-scraper"`
	Language string        `yaml:"language" default:"en"`
	Timeout  time.Duration `yaml:"timeout" default:"5m"`
	Cookies  []Cookie      `yaml:"cookies"`
}

type ClassifierConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url" default:"https://api.anthropic.com"`
	Model     string        `yaml:"model" default:"claude-3-5-haiku-latest"`
	MaxTokens int           `yaml:"max_tokens" default:"256"`
	Timeout   time.Duration `yaml:"timeout" default:"30s"`
	Retries   int           `yaml:"retries" default:"3" validate:"gte=1,lte=10"`
}

type BinanceConfig struct {
	BaseURL      string        `yaml:"base_url" default:"https://api.binance.com"`
	StreamURL    string        `yaml:"stream_url" default:"wss://stream.binance.com:9443/ws"`
	Symbol       string        `yaml:"symbol" default:"BTCUSDT"`
	Timeout      time.Duration `yaml:"timeout" default:"10s"`
	PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
	CandleTTL    time.Duration `yaml:"candle_ttl" default:"1m"`
}

type CoinGeckoConfig struct {
	BaseURL string `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
}

type ChartConfig struct {
	MaxRPS         int           `yaml:"max_rps" default:"4" validate:"gte=1"`
	YThreshold     float64       `yaml:"y_threshold" default:"25"`
	MinClusterSize int           `yaml:"min_cluster_size" default:"3" validate:"gte=2"`
	ReconnectBase  time.Duration `yaml:"reconnect_base" default:"1s"`
	ReconnectMax   time.Duration `yaml:"reconnect_max" default:"30s"`
	MaxRetries     int           `yaml:"max_retries" default:"5" validate:"gte=0"`
}

// Load reads a YAML file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load without the file.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env when present, then the YAML file, then lets the
// environment override secrets and endpoints.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if len(c.Collector.Authors.Pool) == 0 {
		c.Collector.Authors.Pool = append(append([]string{}, c.Collector.Authors.Movers...), c.Collector.Authors.Sentiment...)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("APIFY_API_TOKEN"); v != "" {
		c.Apify.Token = v
	}
	if v := getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Classifier.APIKey = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Redis.Host, c.Redis.Port, c.Redis.Enabled = host, p, true
	}
	if v := getenv("TWITTER_COOKIES"); v != "" {
		var cs []Cookie
		if err := json.Unmarshal([]byte(v), &cs); err != nil {
			return fmt.Errorf("TWITTER_COOKIES: %w", err)
		}
		c.Apify.Cookies = cs
	}
	return nil
}

// Validate checks field constraints and the cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Postgres.DSN == "" && c.Postgres.Host == "" {
		return fmt.Errorf("postgres.dsn or postgres.host is required")
	}
	if len(c.Collector.Authors.Pool) == 0 {
		return fmt.Errorf("collector.authors.pool cannot be empty")
	}
	if c.Chart.ReconnectMax < c.Chart.ReconnectBase {
		return fmt.Errorf("chart.reconnect_max must be >= chart.reconnect_base")
	}
	return nil
}

// Addr is host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
