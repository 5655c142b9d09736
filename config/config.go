package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string
	Env                string
	PublicURL          string
	DatabaseDriver     string
	DatabaseURL        string
	JWTSecret          string
	CorsAllowedOrigins []string
	LoginRateLimit     int
	UploadDir          string
	Storage            StorageConfig
	Admin              AdminConfig
}

// StorageConfig holds the Cloudflare R2 credentials. An empty bucket means
// images are kept on local disk under UploadDir.
type StorageConfig struct {
	BucketName string
	AccountID  string
	AccessKey  string
	SecretKey  string
	Domain     string
}

// AdminConfig seeds the first author account on startup when both the email
// and password are set.
type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) UsesObjectStorage() bool {
	return c.Storage.BucketName != ""
}

func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("public_url", "")
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_url", "inkwell.db")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("login_rate_limit", 5)
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("admin_name", "Admin")

	cfg := Config{
		Port:               strings.TrimSpace(v.GetString("port")),
		Env:                strings.ToLower(strings.TrimSpace(v.GetString("app_env"))),
		PublicURL:          strings.TrimRight(strings.TrimSpace(v.GetString("public_url")), "/"),
		DatabaseDriver:     strings.ToLower(strings.TrimSpace(v.GetString("database_driver"))),
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		JWTSecret:          v.GetString("jwt_secret"),
		CorsAllowedOrigins: splitCSV(v.GetString("cors_allowed_origins")),
		LoginRateLimit:     v.GetInt("login_rate_limit"),
		UploadDir:          strings.TrimSpace(v.GetString("upload_dir")),
		Storage: StorageConfig{
			BucketName: strings.TrimSpace(v.GetString("r2_bucket_name")),
			AccountID:  strings.TrimSpace(v.GetString("r2_account_id")),
			AccessKey:  strings.TrimSpace(v.GetString("r2_access_key")),
			SecretKey:  strings.TrimSpace(v.GetString("r2_secret_key")),
			Domain:     strings.TrimRight(strings.TrimSpace(v.GetString("r2_domain")), "/"),
		},
		Admin: AdminConfig{
			Name:     strings.TrimSpace(v.GetString("admin_name")),
			Email:    strings.TrimSpace(v.GetString("admin_email")),
			Password: v.GetString("admin_password"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.LoginRateLimit <= 0 {
		return errors.New("LOGIN_RATE_LIMIT must be positive")
	}
	if c.UsesObjectStorage() {
		s := c.Storage
		if s.AccountID == "" || s.AccessKey == "" || s.SecretKey == "" || s.Domain == "" {
			return errors.New("R2_ACCOUNT_ID, R2_ACCESS_KEY, R2_SECRET_KEY and R2_DOMAIN are required when R2_BUCKET_NAME is set")
		}
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
