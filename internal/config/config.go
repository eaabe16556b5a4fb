// config предоставляет структуру конфигурации accounts-service
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Поддерживаемые драйверы хранилищ.
const (
	DBDriverPostgres = "postgres"
	DBDriverMemory   = "memory"

	MediaDriverMinio = "minio"
	MediaDriverS3    = "s3"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv), в т.ч. из необязательного .env.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Ops      OpsConfig     `yaml:"ops"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Media    MediaConfig   `yaml:"media"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// HTTPConfig — настройки публичного HTTP API.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/v1"`
	// InsecureCookies снимает флаг Secure с cookie токенов (локальный запуск без TLS).
	InsecureCookies bool     `yaml:"insecure_cookies" env:"HTTP_INSECURE_COOKIES"`
	CORSOrigins     []string `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes" env:"HTTP_MAX_UPLOAD_BYTES" env-default:"20971520"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// OpsConfig — служебный HTTP (livez/healthz/metrics).
type OpsConfig struct {
	Host string `yaml:"host" env:"OPS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"OPS_PORT" env-default:"8081"`
}

// Addr возвращает адрес в формате host:port.
func (o OpsConfig) Addr() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов и хеширования паролей.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"240h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"accounts-service"`
	Audience        []string      `yaml:"audience" env:"AUDIENCE" env-separator:"," env-default:"accounts-api"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	JanitorPeriod   time.Duration `yaml:"janitor_period" env:"REFRESH_JANITOR_PERIOD" env-default:"30m"`
}

// DBConfig — настройки хранилища учётных записей.
type DBConfig struct {
	Driver         string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL    string `yaml:"db_url" env:"DATABASE_URL"`
	SkipMigrations bool   `yaml:"skip_migrations" env:"DB_SKIP_MIGRATIONS"`
}

// MediaConfig — объектное хранилище изображений профиля.
type MediaConfig struct {
	Driver              string   `yaml:"driver" env:"MEDIA_DRIVER" env-default:"minio"`
	Endpoint            string   `yaml:"endpoint" env:"MEDIA_ENDPOINT"`
	Region              string   `yaml:"region" env:"MEDIA_REGION" env-default:"us-east-1"`
	AccessKey           string   `yaml:"access_key" env:"MEDIA_ACCESS_KEY"`
	SecretKey           string   `yaml:"secret_key" env:"MEDIA_SECRET_KEY"`
	Bucket              string   `yaml:"bucket" env:"MEDIA_BUCKET" env-default:"media"`
	PublicBaseURL       string   `yaml:"public_base_url" env:"MEDIA_PUBLIC_BASE_URL"`
	TempDir             string   `yaml:"temp_dir" env:"MEDIA_TEMP_DIR"`
	MaxSizeBytes        int64    `yaml:"max_size_bytes" env:"MEDIA_MAX_SIZE_BYTES" env-default:"5242880"`
	AllowedContentTypes []string `yaml:"allowed_content_types" env:"MEDIA_ALLOWED_CONTENT_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/webp,image/gif"`
}

// RedisConfig — необязательный кэш идентичности. Пустой URL отключает кэш.
type RedisConfig struct {
	URL        string        `yaml:"redis_url" env:"REDIS_URL"`
	Prefix     string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"accounts"`
	AccountTTL time.Duration `yaml:"account_ttl" env:"REDIS_ACCOUNT_TTL" env-default:"5m"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"10s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// .env необязателен; уже выставленные переменные он не перетирает.
	_ = godotenv.Load()

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("auth.access_secret and auth.refresh_secret must differ")
	}

	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	if c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth.refresh_token_ttl must be > 0")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be within 4..31")
	}

	if c.Auth.JanitorPeriod < 0 {
		return fmt.Errorf("auth.janitor_period must be >= 0")
	}

	switch c.DB.Driver {
	case DBDriverPostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("db.db_url is required for the postgres driver")
		}
	case DBDriverMemory:
	default:
		return fmt.Errorf("db.driver must be %q or %q", DBDriverPostgres, DBDriverMemory)
	}

	switch c.Media.Driver {
	case MediaDriverMinio, MediaDriverS3:
	default:
		return fmt.Errorf("media.driver must be %q or %q", MediaDriverMinio, MediaDriverS3)
	}

	if c.Media.Driver == MediaDriverMinio && c.Media.Endpoint == "" {
		return fmt.Errorf("media.endpoint is required for the minio driver")
	}

	if c.Media.AccessKey == "" || c.Media.SecretKey == "" {
		return fmt.Errorf("media.access_key and media.secret_key are required")
	}

	if c.Media.Bucket == "" {
		return fmt.Errorf("media.bucket is required")
	}

	if c.Media.MaxSizeBytes <= 0 {
		return fmt.Errorf("media.max_size_bytes must be > 0")
	}

	if len(c.Media.AllowedContentTypes) == 0 {
		return fmt.Errorf("media.allowed_content_types must not be empty")
	}

	if p, err := strconv.Atoi(c.HTTP.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("http.port must be a valid TCP port (1..65535)")
	}

	if c.Redis.URL != "" && c.Redis.AccountTTL <= 0 {
		return fmt.Errorf("redis.account_ttl must be > 0")
	}

	return nil
}
