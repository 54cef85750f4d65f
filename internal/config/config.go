package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "5s" style values in yaml.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Watchdog  WatchdogConfig  `yaml:"watchdog"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
	Workers int      `yaml:"workers"`
}

type OutboxConfig struct {
	PollInterval  Duration `yaml:"poll_interval"`
	SweepInterval Duration `yaml:"sweep_interval"`
	Batch         int      `yaml:"batch"`
}

type DedupConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	Retention       Duration `yaml:"retention"`
}

type RetryConfig struct {
	Attempts uint64   `yaml:"attempts"`
	Delay    Duration `yaml:"delay"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

type WatchdogConfig struct {
	Interval Duration `yaml:"interval"`
	Horizon  Duration `yaml:"horizon"`
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	// override DSN password from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Kafka: KafkaConfig{Workers: 2},
		Outbox: OutboxConfig{
			PollInterval:  Duration(10 * time.Second),
			SweepInterval: Duration(2 * time.Minute),
			Batch:         100,
		},
		Dedup: DedupConfig{
			CleanupInterval: Duration(time.Minute),
			Retention:       Duration(30 * time.Minute),
		},
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    Duration(5 * time.Second),
		},
		RateLimit: RateLimitConfig{RPS: 50, Burst: 100},
		Watchdog: WatchdogConfig{
			Interval: Duration(time.Minute),
			Horizon:  Duration(15 * time.Minute),
		},
	}
}
