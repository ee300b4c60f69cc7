package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the single application configuration, loaded once in main and
// passed into constructors. Nothing below main reads the environment.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Storage   StorageConfig   `mapstructure:"storage"`
	QR        QRConfig        `mapstructure:"qr"`
	Backfill  BackfillConfig  `mapstructure:"backfill"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"` // sqlite file path
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

// EmbeddingConfig groups the text and image provider settings.
type EmbeddingConfig struct {
	Text  TextEmbeddingConfig  `mapstructure:"text"`
	Image ImageEmbeddingConfig `mapstructure:"image"`
}

type TextEmbeddingConfig struct {
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Dimensions     int           `mapstructure:"dimensions"`
	MaxInputChars  int           `mapstructure:"max_input_chars"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type ImageEmbeddingConfig struct {
	// Provider selects the strategy: "remote" posts the image URL to
	// EndpointURL, "local" downloads and embeds in-process. Empty means
	// remote when EndpointURL is set, local otherwise.
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	EndpointURL    string        `mapstructure:"endpoint_url"`
	Dimensions     int           `mapstructure:"dimensions"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type QRConfig struct {
	// TargetBase is the public viewer URL the QR code points at; the
	// artwork id is appended as the "aid" query parameter.
	TargetBase string `mapstructure:"target_base"`
	Size       int    `mapstructure:"size"`
}

type BackfillConfig struct {
	Batch int `mapstructure:"batch"`
	Limit int `mapstructure:"limit"`
}

// Load reads configuration from file (configs/config.yaml by default) with
// environment variable overrides. A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/artdex.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "artdex")
	v.SetDefault("database.name", "artdex")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("embedding.text.model", "text-embedding-3-small")
	v.SetDefault("embedding.text.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.text.dimensions", 1536)
	v.SetDefault("embedding.text.max_input_chars", 4000)
	v.SetDefault("embedding.text.request_timeout", "30s")
	v.SetDefault("embedding.image.model", "clip-vit-base-patch32")
	v.SetDefault("embedding.image.dimensions", 512)
	v.SetDefault("embedding.image.request_timeout", "60s")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "artdex-qr")
	v.SetDefault("qr.target_base", "http://localhost:3000/qr")
	v.SetDefault("qr.size", 512)
	v.SetDefault("backfill.batch", 5)
	v.SetDefault("backfill.limit", 200)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("embedding.text.api_key", "OPENAI_API_KEY")
	v.BindEnv("embedding.text.base_url", "OPENAI_BASE_URL")
	v.BindEnv("embedding.image.endpoint_url", "IMAGE_EMBEDDING_ENDPOINT")
	v.BindEnv("embedding.image.provider", "IMAGE_EMBEDDING_PROVIDER")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET_QR")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL_QR")
	v.BindEnv("qr.target_base", "QR_TARGET_BASE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
