package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	StoreGorm  = "gorm"
	StoreMongo = "mongo"
	StoreBolt  = "bolt"

	FilesLocal = "local"
	FilesSFTP  = "sftp"
)

const (
	defaultHTTPAddr      = ":8080"
	defaultStoreDriver   = StoreGorm
	defaultDatabaseURL   = "rentals.db"
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "rentals"
	defaultBoltPath      = "rentals.bolt"
	defaultFileBackend   = FilesLocal
	defaultUploadDir     = "uploads"
	defaultPublicPrefix  = "/uploads"
	defaultSFTPRoot      = "/uploads"
	defaultSFTPTimeout   = "10s"
	defaultMaxImageSize  = "10485760"
	defaultLogMode       = "development"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	BoltPath      string

	FileBackend  string
	UploadDir    string
	PublicPrefix string
	MaxImageSize int64

	SFTPAddr              string
	SFTPUser              string
	SFTPPassword          string
	SFTPHostKey           string
	SFTPInsecureIgnoreKey bool
	SFTPRoot              string
	SFTPTimeout           time.Duration

	LogMode string
	LogFile string

	CORSOrigins []string
}

// Load reads configuration from the environment. Callers load .env
// files beforehand.
func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("HTTP_ADDR") == "" {
		cfg.HTTPAddr = ":" + port
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", defaultStoreDriver)))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.MongoURI = strings.TrimSpace(getEnv("MONGO_URI", defaultMongoURI))
	cfg.MongoDatabase = strings.TrimSpace(getEnv("MONGO_DATABASE", defaultMongoDatabase))
	cfg.BoltPath = strings.TrimSpace(getEnv("BOLT_PATH", defaultBoltPath))

	cfg.FileBackend = strings.ToLower(strings.TrimSpace(getEnv("FILE_BACKEND", defaultFileBackend)))
	cfg.UploadDir = strings.TrimSpace(getEnv("UPLOAD_DIR", defaultUploadDir))
	cfg.PublicPrefix = "/" + strings.Trim(getEnv("PUBLIC_PREFIX", defaultPublicPrefix), "/ ")

	var err error
	cfg.MaxImageSize, err = cast.ToInt64E(strings.TrimSpace(getEnv("MAX_IMAGE_SIZE", defaultMaxImageSize)))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_IMAGE_SIZE: %w", err)
	}

	cfg.SFTPAddr = strings.TrimSpace(os.Getenv("SFTP_ADDR"))
	cfg.SFTPUser = strings.TrimSpace(os.Getenv("SFTP_USER"))
	cfg.SFTPPassword = os.Getenv("SFTP_PASSWORD")
	cfg.SFTPHostKey = strings.TrimSpace(os.Getenv("SFTP_HOST_KEY"))
	cfg.SFTPInsecureIgnoreKey = parseBoolEnv("SFTP_INSECURE_IGNORE_HOST_KEY", "false")
	cfg.SFTPRoot = strings.TrimSpace(getEnv("SFTP_ROOT", defaultSFTPRoot))
	cfg.SFTPTimeout, err = parseDurationEnv("SFTP_TIMEOUT", defaultSFTPTimeout)
	if err != nil {
		return nil, err
	}

	cfg.LogMode = strings.ToLower(strings.TrimSpace(getEnv("LOG_MODE", defaultLogMode)))
	cfg.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	switch cfg.StoreDriver {
	case StoreGorm:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must not be empty")
		}
	case StoreMongo:
		if cfg.MongoURI == "" || cfg.MongoDatabase == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE must be set")
		}
	case StoreBolt:
		if cfg.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH must not be empty")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: gorm, mongo, bolt")
	}

	switch cfg.FileBackend {
	case FilesLocal:
		if cfg.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR must not be empty")
		}
	case FilesSFTP:
		if cfg.SFTPAddr == "" || cfg.SFTPUser == "" {
			return fmt.Errorf("SFTP_ADDR and SFTP_USER must be set when FILE_BACKEND=sftp")
		}
		if cfg.SFTPHostKey == "" && !cfg.SFTPInsecureIgnoreKey {
			return fmt.Errorf("SFTP_HOST_KEY must be set when FILE_BACKEND=sftp")
		}
		if cfg.SFTPInsecureIgnoreKey && isProdLike(cfg.AppEnv) {
			return fmt.Errorf("in prod/release SFTP_INSECURE_IGNORE_HOST_KEY must be false")
		}
		if cfg.SFTPTimeout <= 0 {
			return fmt.Errorf("SFTP_TIMEOUT must be > 0")
		}
	default:
		return fmt.Errorf("FILE_BACKEND must be one of: local, sftp")
	}

	if cfg.PublicPrefix == "/" {
		return fmt.Errorf("PUBLIC_PREFIX must not be empty")
	}
	if cfg.MaxImageSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be > 0")
	}
	if cfg.LogMode != "development" && cfg.LogMode != "production" {
		return fmt.Errorf("LOG_MODE must be one of: development, production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
