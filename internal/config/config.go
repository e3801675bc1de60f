// Package config loads service configuration from defaults, an optional
// config file, an optional .env file and LEE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "LEE"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Events     EventsConfig     `mapstructure:"events"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	NATS       NATSConfig       `mapstructure:"nats"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
	// 单个请求的总预算，提交接口的分类与落库都在这之内
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// 统计按这个时区的自然日计算
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	StatsTTL     time.Duration `mapstructure:"stats_ttl"`
}

// Enabled 没配置地址时不使用 redis
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type JWTConfig struct {
	AccessSecret  string `mapstructure:"access_secret"`
	RefreshSecret string `mapstructure:"refresh_secret"`
}

type ClassifierConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ImageTimeout  time.Duration `mapstructure:"image_timeout"`
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
}

type EventsConfig struct {
	Broker    string        `mapstructure:"broker"`
	BatchSize int           `mapstructure:"batch_size"`
	Interval  time.Duration `mapstructure:"interval"`
	MaxRetry  int           `mapstructure:"max_retry"`
	// 帖子被拒绝时给作者发邮件，需要配置 smtp
	NotifyAuthors bool `mapstructure:"notify_authors"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

const (
	BrokerNone  = "none"
	BrokerLog   = "log"
	BrokerKafka = "kafka"
	BrokerNATS  = "nats"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.timezone", "Local")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "user:password@tcp(127.0.0.1:3306)/moderation?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("database.debug", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 2*time.Second)
	v.SetDefault("redis.write_timeout", 2*time.Second)
	v.SetDefault("redis.stats_ttl", 15*time.Second)

	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.refresh_secret", "")

	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.model", "gemini-2.0-flash")
	v.SetDefault("classifier.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("classifier.timeout", 25*time.Second)
	v.SetDefault("classifier.image_timeout", 10*time.Second)
	v.SetDefault("classifier.max_image_bytes", 10<<20)

	v.SetDefault("events.broker", BrokerLog)
	v.SetDefault("events.batch_size", 200)
	v.SetDefault("events.interval", time.Second)
	v.SetDefault("events.max_retry", 5)
	v.SetDefault("events.notify_authors", false)

	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic", "moderation-events")

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject", "moderation")

	v.SetDefault("smtp.port", 587)
}

// Load 读取配置。path 为空时只在当前目录查找可选的 config.yaml；
// .env 文件只补充尚未设置的环境变量
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容常用的 GEMINI_API_KEY
	if err := v.BindEnv("classifier.api_key", EnvPrefix+"_CLASSIFIER_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查无法靠默认值兜底的配置
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "mysql", "postgres", "postgresql":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Events.Broker {
	case BrokerNone, BrokerLog, BrokerKafka, BrokerNATS:
	default:
		return fmt.Errorf("config: unsupported events.broker %q", c.Events.Broker)
	}
	if c.Events.MaxRetry <= 0 {
		return fmt.Errorf("config: events.max_retry must be positive")
	}
	if c.Server.RequestTimeout > 0 && c.Classifier.Timeout >= c.Server.RequestTimeout {
		return fmt.Errorf("config: classifier.timeout (%s) must be shorter than server.request_timeout (%s)",
			c.Classifier.Timeout, c.Server.RequestTimeout)
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("config: server.timezone: %w", err)
	}
	return nil
}

// RequireSecrets serve 命令需要 JWT 密钥；migrate / seed 不需要
func (c *Config) RequireSecrets() error {
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return errors.New("config: jwt.access_secret and jwt.refresh_secret are required")
	}
	return nil
}

// Location 统计使用的时区
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
