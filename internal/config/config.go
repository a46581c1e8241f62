package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Tokens      TokensConfig      `mapstructure:"tokens"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Mail        MailConfig        `mapstructure:"mail"`
	TMDB        TMDBConfig        `mapstructure:"tmdb"`
	Recommender RecommenderConfig `mapstructure:"recommender"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	FrontendURL  string        `mapstructure:"frontend_url"`
	UploadDir    string        `mapstructure:"upload_dir"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  Topics   `mapstructure:"topics"`
	GroupID string   `mapstructure:"group_id"`
}

type Topics struct {
	Mail         string `mapstructure:"mail"`
	DomainEvents string `mapstructure:"domain_events"`
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RememberTTL   time.Duration `mapstructure:"remember_ttl"`
}

type TokensConfig struct {
	ActivationTTL time.Duration `mapstructure:"activation_ttl"`
	ResetTTL      time.Duration `mapstructure:"reset_ttl"`
}

type RateLimitConfig struct {
	Window          time.Duration `mapstructure:"window"`
	MaxRequests     int           `mapstructure:"max_requests"`
	AuthMaxRequests int           `mapstructure:"auth_max_requests"`
}

type CacheConfig struct {
	MoviesTTL time.Duration `mapstructure:"movies_ttl"`
	StatsTTL  time.Duration `mapstructure:"stats_ttl"`
}

type MailConfig struct {
	ProviderKey string `mapstructure:"provider_key"`
	Domain      string `mapstructure:"domain"`
	AdminEmail  string `mapstructure:"admin_email"`
	APIURL      string `mapstructure:"api_url"`
}

type TMDBConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Interval          time.Duration `mapstructure:"interval"`
	PagesPerTick      int           `mapstructure:"pages_per_tick"`
	FloorYear         int           `mapstructure:"floor_year"`
	StartDate         string        `mapstructure:"start_date"`
}

type RecommenderConfig struct {
	URL       string        `mapstructure:"url"`
	LinksPath string        `mapstructure:"links_path"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CINEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine: defaults plus env overrides still produce a config.
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.frontend_url", "http://localhost:5173")
	v.SetDefault("server.upload_dir", "uploads/images")
	v.SetDefault("server.max_upload_mb", 2)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cinematch")
	v.SetDefault("database.password", "cinematch")
	v.SetDefault("database.dbname", "cinematch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "cinematch")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 5)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topics.mail", "mail")
	v.SetDefault("kafka.topics.domain_events", "domain-events")
	v.SetDefault("kafka.group_id", "cinematch-worker")

	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.refresh_secret", "change-me-too")
	v.SetDefault("jwt.access_ttl", 30*time.Minute)
	v.SetDefault("jwt.remember_ttl", 7*24*time.Hour)

	v.SetDefault("tokens.activation_ttl", time.Hour)
	v.SetDefault("tokens.reset_ttl", time.Hour)

	v.SetDefault("rate_limit.window", 15*time.Minute)
	v.SetDefault("rate_limit.max_requests", 1000)
	v.SetDefault("rate_limit.auth_max_requests", 4)

	v.SetDefault("cache.movies_ttl", 10*time.Minute)
	v.SetDefault("cache.stats_ttl", 10*time.Minute)

	v.SetDefault("mail.provider_key", "")
	v.SetDefault("mail.domain", "localhost")
	v.SetDefault("mail.admin_email", "")
	v.SetDefault("mail.api_url", "https://api.resend.com/emails")

	v.SetDefault("tmdb.api_key", "")
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.requests_per_second", 40)
	v.SetDefault("tmdb.interval", time.Minute)
	v.SetDefault("tmdb.pages_per_tick", 10)
	v.SetDefault("tmdb.floor_year", 1950)
	v.SetDefault("tmdb.start_date", "2024-05-01")

	v.SetDefault("recommender.url", "http://localhost:5000")
	v.SetDefault("recommender.links_path", "configs/links.csv")
	v.SetDefault("recommender.timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
