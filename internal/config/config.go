// Package config предоставляет структуры и функции для загрузки конфига сервиса аккаунтов.
package config

import (
	"fmt"
	"log"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Окружения запуска.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Драйверы хранилища пользователей.
const (
	DriverMongo    = "mongodb"
	DriverPostgres = "postgres"
)

// Config общая структура для хранения настроек
type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"local"`
	Storage    Storage    `yaml:"storage"`
	HTTPServer HTTPServer `yaml:"http_server"`
	JWT        JWT        `yaml:"jwt"`
	S3         S3         `yaml:"s3"`
	Redis      Redis      `yaml:"redis"`
	RabbitMQ   RabbitMQ   `yaml:"rabbitmq"`
	GRPC       GRPC       `yaml:"grpc"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
}

// Storage выбирает и настраивает хранилище пользователей.
type Storage struct {
	Driver         string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongodb"`
	MongoURI       string `yaml:"mongo_uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase  string `yaml:"mongo_database" env:"MONGO_DATABASE" env-default:"accounts"`
	PostgresDSN    string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env-default:"30s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	UploadDir      string        `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"./public/temp"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env-default:"10485760"`
	CookieSecure   bool          `yaml:"cookie_secure" env:"COOKIE_SECURE" env-default:"true"`
	CookieSameSite string        `yaml:"cookie_samesite" env-default:"lax"`
}

// JWT содержит секреты и время жизни двух видов токенов.
type JWT struct {
	AccessSecret  string        `yaml:"access_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	RefreshSecret string        `yaml:"refresh_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"REFRESH_TOKEN_EXPIRY" env-default:"240h"`
}

// S3 настраивает хранилище медиафайлов.
type S3 struct {
	Region        string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Bucket        string `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	AccessKey     string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
	KeyPrefix     string `yaml:"key_prefix" env-default:"users"`
	UsePathStyle  bool   `yaml:"use_path_style" env-default:"true"`
}

// Redis структура для настройки подключения к redis
type Redis struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env-default:"3s"`
	ProfileTTL  time.Duration `yaml:"profile_ttl" env-default:"5m"`
}

// RabbitMQ настраивает публикацию событий.
type RabbitMQ struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env-default:"accounts"`
}

// GRPC настраивает сервер проверки токенов.
type GRPC struct {
	Address string `yaml:"address" env:"GRPC_ADDRESS" env-default:":50051"`
}

// RateLimit ограничивает частоту запросов с одного адреса.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"10"`
	Burst int     `yaml:"burst" env-default:"20"`
	// TrustedProxies — адреса или CIDR прокси, чьим X-Forwarded-For можно верить.
	TrustedProxies []string `yaml:"trusted_proxies" env:"RATE_LIMIT_TRUSTED_PROXIES" env-separator:","`
}

// ProxyPrefixes разбирает TrustedProxies. Одиночный адрес считается сетью /32 или /128.
func (r RateLimit) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(r.TrustedProxies))
	for _, raw := range r.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("rate_limit.trusted_proxies: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("rate_limit.trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Load читает конфиг из файла path с переопределениями из окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMongo:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf("jwt access and refresh secrets must differ")
	}
	if _, err := c.RateLimit.ProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Storage: driver=%s mongo_database=%s migrations=%s\n"+
			"HTTPServer: address=%s read=%s write=%s idle=%s upload_dir=%s\n"+
			"JWT: access_ttl=%s refresh_ttl=%s\n"+
			"S3: region=%s endpoint=%s bucket=%s\n"+
			"Redis: address=%s db=%d profile_ttl=%s\n"+
			"RabbitMQ: exchange=%s\n"+
			"GRPC: address=%s\n"+
			"RateLimit: rps=%.2f burst=%d\n",
		c.Env,
		c.Storage.Driver, c.Storage.MongoDatabase, c.Storage.MigrationsPath,
		c.HTTPServer.Address, c.HTTPServer.ReadTimeout, c.HTTPServer.WriteTimeout,
		c.HTTPServer.IdleTimeout, c.HTTPServer.UploadDir,
		c.JWT.AccessTTL, c.JWT.RefreshTTL,
		c.S3.Region, c.S3.Endpoint, c.S3.Bucket,
		c.Redis.Address, c.Redis.DB, c.Redis.ProfileTTL,
		c.RabbitMQ.Exchange,
		c.GRPC.Address,
		c.RateLimit.RPS, c.RateLimit.Burst,
	)
}
