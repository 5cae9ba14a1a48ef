package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Mail     MailConfig
	Cards    CardsConfig
	Auth     AuthConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	FrontendOrigin string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// UsesMongo reports whether cards and users live in MongoDB.
func (c DatabaseConfig) UsesMongo() bool {
	return c.Driver == "mongo"
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// StorageConfig selects where profile images are kept
type StorageConfig struct {
	Driver             string
	LocalDir           string
	OSSEndpoint        string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
	OSSBucket          string
	OSSPrefix          string
}

// MailConfig holds outgoing mail settings
type MailConfig struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// CardsConfig holds card lifecycle settings
type CardsConfig struct {
	PublicHost        string
	SweepSchedule     string
	SweepBatchSize    int
	MaxImageBytes     int64
	ImageMaxDimension int
}

// AuthConfig holds account recovery and request replay settings
type AuthConfig struct {
	ForgotPasswordLimit  int
	ForgotPasswordWindow time.Duration
	// ResetAttemptLimit is the number of wrong codes tolerated per issued code.
	ResetAttemptLimit int
	IdempotencyTTL    time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "5000"),
			Env:            getEnv("SERVER_ENV", "development"),
			FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("DB_DRIVER", "postgres"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "qrbook"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "qrbook"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-in-production"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", time.Hour),
		},
		Storage: StorageConfig{
			Driver:             getEnv("BLOB_DRIVER", "local"),
			LocalDir:           getEnv("UPLOADS_DIR", "uploads"),
			OSSEndpoint:        getEnv("OSS_ENDPOINT", ""),
			OSSAccessKeyID:     getEnv("OSS_ACCESS_KEY_ID", ""),
			OSSAccessKeySecret: getEnv("OSS_ACCESS_KEY_SECRET", ""),
			OSSBucket:          getEnv("OSS_BUCKET", ""),
			OSSPrefix:          getEnv("OSS_PREFIX", "uploads"),
		},
		Mail: MailConfig{
			Driver:   getEnv("MAIL_DRIVER", "log"),
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 465),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@qrbook.ca"),
		},
		Cards: CardsConfig{
			PublicHost:        getEnv("CARD_PUBLIC_HOST", "QRbook.ca"),
			SweepSchedule:     getEnv("CARD_SWEEP_SCHEDULE", "@every 1h"),
			SweepBatchSize:    getEnvAsInt("CARD_SWEEP_BATCH_SIZE", 100),
			MaxImageBytes:     int64(getEnvAsInt("CARD_MAX_IMAGE_BYTES", 5<<20)),
			ImageMaxDimension: getEnvAsInt("CARD_IMAGE_MAX_DIMENSION", 1024),
		},
		Auth: AuthConfig{
			ForgotPasswordLimit:  getEnvAsInt("FORGOT_PASSWORD_LIMIT", 4),
			ForgotPasswordWindow: getEnvAsDuration("FORGOT_PASSWORD_WINDOW", 15*time.Minute),
			ResetAttemptLimit:    getEnvAsInt("RESET_ATTEMPT_LIMIT", 5),
			IdempotencyTTL:       getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
