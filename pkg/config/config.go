// Package config loads application configuration from YAML files with
// environment-variable overrides. Every binary shares the same Config; each
// reads only the sections it needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Mining   MiningConfig   `yaml:"mining"`
	Datasets DatasetsConfig `yaml:"datasets"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	// MineRateLimit is the number of POST requests per minute a client may
	// issue. Zero disables throttling.
	MineRateLimit   int           `yaml:"mineRateLimit"`
}

// MiningConfig bounds and defaults every Top-K search request.
type MiningConfig struct {
	DefaultK          int           `yaml:"defaultK"`
	MaxK              int           `yaml:"maxK"`
	DensityThreshold  float64       `yaml:"densityThreshold"`
	RunTimeout        time.Duration `yaml:"runTimeout"`
	DefaultStrategy   string        `yaml:"defaultStrategy"`
	MaxTransactions   int           `yaml:"maxTransactions"`
	// MaxConcurrentRuns caps searches in flight per process, counting runs
	// abandoned after RunTimeout until they finish. 0 means unbounded.
	MaxConcurrentRuns int           `yaml:"maxConcurrentRuns"`
	RunQueueWait      time.Duration `yaml:"runQueueWait"`
}

// DatasetsConfig drives the batch benchmark runner and the generator.
type DatasetsConfig struct {
	OriginDir      string   `yaml:"originDir"`
	ProbabilityDir string   `yaml:"probabilityDir"`
	OutputDir      string   `yaml:"outputDir"`
	Concurrency    int      `yaml:"concurrency"`
	Strategies     []string `yaml:"strategies"`
	KValues        []int    `yaml:"kValues"`
	Seed           int64    `yaml:"seed"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	MiningJobs    string `yaml:"miningJobs"`
	MiningResults string `yaml:"miningResults"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no binary can run with.
func (c *Config) Validate() error {
	if c.Mining.MaxK <= 0 {
		return fmt.Errorf("mining.maxK must be positive, got %d", c.Mining.MaxK)
	}
	if c.Mining.DefaultK <= 0 || c.Mining.DefaultK > c.Mining.MaxK {
		return fmt.Errorf("mining.defaultK must be in [1, %d], got %d", c.Mining.MaxK, c.Mining.DefaultK)
	}
	if c.Mining.MaxConcurrentRuns < 0 {
		return fmt.Errorf("mining.maxConcurrentRuns must not be negative, got %d", c.Mining.MaxConcurrentRuns)
	}
	if c.Mining.DensityThreshold <= 0 {
		return fmt.Errorf("mining.densityThreshold must be positive, got %v", c.Mining.DensityThreshold)
	}
	if c.Datasets.Concurrency <= 0 {
		return fmt.Errorf("datasets.concurrency must be positive, got %d", c.Datasets.Concurrency)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    32 << 20,
			MineRateLimit:   120,
		},
		Mining: MiningConfig{
			DefaultK:          10,
			MaxK:              1000,
			DensityThreshold:  5.0,
			RunTimeout:        60 * time.Second,
			DefaultStrategy:   "hybrid",
			MaxTransactions:   200000,
			MaxConcurrentRuns: 4,
			RunQueueWait:      5 * time.Second,
		},
		Datasets: DatasetsConfig{
			OriginDir:      "datasets/origin",
			ProbabilityDir: "datasets/probability",
			OutputDir:      "output",
			Concurrency:    2,
			Strategies:     []string{"uapriori", "ufpgrowth", "uhmine", "hybrid"},
			KValues:        []int{10, 50, 100},
			Seed:           42,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "topkmining",
			User:            "topkmining",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "topkmining-workers",
			Topics: KafkaTopics{
				MiningJobs:    "mining-jobs",
				MiningResults: "mining-results",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads UTM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UTM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("UTM_SERVER_MINE_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MineRateLimit = n
		}
	}
	if v := os.Getenv("UTM_MINING_DEFAULT_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Mining.DefaultK = k
		}
	}
	if v := os.Getenv("UTM_MINING_MAX_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Mining.MaxK = k
		}
	}
	if v := os.Getenv("UTM_MINING_DENSITY_THRESHOLD"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Mining.DensityThreshold = d
		}
	}
	if v := os.Getenv("UTM_MINING_RUN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Mining.RunTimeout = d
		}
	}
	if v := os.Getenv("UTM_MINING_MAX_CONCURRENT_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Mining.MaxConcurrentRuns = n
		}
	}
	if v := os.Getenv("UTM_MINING_DEFAULT_STRATEGY"); v != "" {
		cfg.Mining.DefaultStrategy = v
	}
	if v := os.Getenv("UTM_DATASETS_ORIGIN_DIR"); v != "" {
		cfg.Datasets.OriginDir = v
	}
	if v := os.Getenv("UTM_DATASETS_PROBABILITY_DIR"); v != "" {
		cfg.Datasets.ProbabilityDir = v
	}
	if v := os.Getenv("UTM_DATASETS_OUTPUT_DIR"); v != "" {
		cfg.Datasets.OutputDir = v
	}
	if v := os.Getenv("UTM_DATASETS_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Datasets.Concurrency = n
		}
	}
	if v := os.Getenv("UTM_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = v == "true"
	}
	if v := os.Getenv("UTM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("UTM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("UTM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("UTM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("UTM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("UTM_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("UTM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("UTM_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = v == "true"
	}
	if v := os.Getenv("UTM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("UTM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("UTM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("UTM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
