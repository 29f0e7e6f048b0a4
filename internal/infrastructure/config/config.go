package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Static   StaticConfig   `mapstructure:"static"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the booking store.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	File   string `mapstructure:"file"`
}

// Storage drivers.
const (
	DriverJSON     = "json"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// AuthConfig guards the owner-only booking routes.
type AuthConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	AdminPassword     string `mapstructure:"admin_password"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
	Issuer    string        `mapstructure:"issuer"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
	BodyLimit          string        `mapstructure:"body_limit"`
}

// StaticConfig points at the front end bundle.
type StaticConfig struct {
	Dir string `mapstructure:"dir"`
}

// BookingConfig holds studio booking rules.
type BookingConfig struct {
	Timezone           string `mapstructure:"timezone"`
	AllowDoubleBooking bool   `mapstructure:"allow_double_booking"`
	AllowPastDates     bool   `mapstructure:"allow_past_dates"`
}

// Location resolves the studio time zone, falling back to UTC.
func (cfg *BookingConfig) Location() *time.Location {
	if cfg.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotifyConfig holds owner notification settings
type NotifyConfig struct {
	Channels  string          `mapstructure:"channels"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	QueueSize int             `mapstructure:"queue_size"`
	Workers   int             `mapstructure:"workers"`
	Formspree FormspreeConfig `mapstructure:"formspree"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	SES       SESConfig       `mapstructure:"ses"`
}

// ChannelList returns the configured channel names.
func (cfg *NotifyConfig) ChannelList() []string {
	var channels []string
	for _, ch := range strings.Split(cfg.Channels, ",") {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch != "" {
			channels = append(channels, ch)
		}
	}
	return channels
}

// FormspreeConfig holds the form relay settings
type FormspreeConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	FormID   string `mapstructure:"form_id"`
}

// URL returns the form submission URL.
func (cfg *FormspreeConfig) URL() string {
	return strings.TrimRight(cfg.Endpoint, "/") + "/f/" + cfg.FormID
}

// SMTPConfig holds SMTP email settings
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Addr returns host:port.
func (cfg *SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// SESConfig holds AWS SES settings
type SESConfig struct {
	Region   string `mapstructure:"region"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	To       string `mapstructure:"to"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "InkBook")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Storage defaults
	v.SetDefault("storage.driver", DriverJSON)
	v.SetDefault("storage.file", "bookings.json")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "inkbook")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "30s")
	v.SetDefault("database.migrations_path", "migrations")

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("auth.admin_password_hash", "")

	// JWT defaults
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expires_in", "12h")
	v.SetDefault("jwt.issuer", "inkbook-api")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.filename", "inkbook.log")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)

	// Security defaults
	v.SetDefault("security.cors_allowed_origins", "*")
	v.SetDefault("security.rate_limit_requests", 20)
	v.SetDefault("security.rate_limit_window", "1m")
	v.SetDefault("security.body_limit", "1M")

	// Static defaults
	v.SetDefault("static.dir", "public")

	// Booking defaults
	v.SetDefault("booking.timezone", "UTC")
	v.SetDefault("booking.allow_double_booking", false)
	v.SetDefault("booking.allow_past_dates", false)

	// Notify defaults
	v.SetDefault("notify.channels", "log")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.queue_size", 64)
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.formspree.endpoint", "https://formspree.io")
	v.SetDefault("notify.formspree.form_id", "")
	v.SetDefault("notify.smtp.host", "smtp.gmail.com")
	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("notify.smtp.username", "")
	v.SetDefault("notify.smtp.password", "")
	v.SetDefault("notify.smtp.from", "")
	v.SetDefault("notify.smtp.to", "")
	v.SetDefault("notify.ses.region", "us-east-1")
	v.SetDefault("notify.ses.from", "")
	v.SetDefault("notify.ses.from_name", "InkBook")
	v.SetDefault("notify.ses.to", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "APP_NAME")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("app.debug", "APP_DEBUG")

	// Server; PORT wins over SERVER_PORT for hosting platforms
	v.BindEnv("server.port", "PORT", "SERVER_PORT")
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	v.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")
	v.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")

	// Storage
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.file", "BOOKINGS_FILE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.ssl_mode", "DB_SSL_MODE")
	v.BindEnv("database.max_open_conns", "DB_MAX_OPEN_CONNS")
	v.BindEnv("database.max_idle_conns", "DB_MAX_IDLE_CONNS")
	v.BindEnv("database.conn_max_lifetime", "DB_CONN_MAX_LIFETIME")
	v.BindEnv("database.conn_max_idle_time", "DB_CONN_MAX_IDLE_TIME")
	v.BindEnv("database.migrations_path", "DB_MIGRATIONS_PATH")

	// Auth
	v.BindEnv("auth.enabled", "AUTH_ENABLED")
	v.BindEnv("auth.admin_password", "ADMIN_PASSWORD")
	v.BindEnv("auth.admin_password_hash", "ADMIN_PASSWORD_HASH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expires_in", "JWT_EXPIRES_IN")
	v.BindEnv("jwt.issuer", "JWT_ISSUER")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")
	v.BindEnv("logger.output", "LOG_OUTPUT")
	v.BindEnv("logger.filename", "LOG_FILE")

	// Security
	v.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")
	v.BindEnv("security.body_limit", "BODY_LIMIT")

	// Static
	v.BindEnv("static.dir", "STATIC_DIR")

	// Booking
	v.BindEnv("booking.timezone", "STUDIO_TIMEZONE")
	v.BindEnv("booking.allow_double_booking", "ALLOW_DOUBLE_BOOKING")
	v.BindEnv("booking.allow_past_dates", "ALLOW_PAST_DATES")

	// Notify
	v.BindEnv("notify.channels", "NOTIFY_CHANNELS")
	v.BindEnv("notify.timeout", "NOTIFY_TIMEOUT")
	v.BindEnv("notify.queue_size", "NOTIFY_QUEUE_SIZE")
	v.BindEnv("notify.workers", "NOTIFY_WORKERS")
	v.BindEnv("notify.formspree.endpoint", "FORMSPREE_ENDPOINT")
	v.BindEnv("notify.formspree.form_id", "FORMSPREE_FORM_ID")
	v.BindEnv("notify.smtp.host", "SMTP_HOST")
	v.BindEnv("notify.smtp.port", "SMTP_PORT")
	v.BindEnv("notify.smtp.username", "SMTP_USERNAME")
	v.BindEnv("notify.smtp.password", "SMTP_PASSWORD")
	v.BindEnv("notify.smtp.from", "SMTP_FROM")
	v.BindEnv("notify.smtp.to", "SMTP_TO", "OWNER_EMAIL")
	v.BindEnv("notify.ses.region", "SES_REGION", "AWS_REGION")
	v.BindEnv("notify.ses.from", "SES_FROM")
	v.BindEnv("notify.ses.from_name", "SES_FROM_NAME")
	v.BindEnv("notify.ses.to", "SES_TO", "OWNER_EMAIL")

	// Metrics
	v.BindEnv("metrics.enabled", "ENABLE_METRICS")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	switch cfg.Storage.Driver {
	case DriverJSON:
		if cfg.Storage.File == "" {
			return fmt.Errorf("storage file is required for the json driver")
		}
	case DriverMemory:
	case DriverPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database host and name are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if limit, err := bytes.Parse(cfg.Security.BodyLimit); err != nil || limit <= 0 {
		return fmt.Errorf("invalid body limit %q, expected a size such as 512K or 1M", cfg.Security.BodyLimit)
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.AdminPassword == "" && cfg.Auth.AdminPasswordHash == "" {
			return fmt.Errorf("admin password or password hash must be set when auth is enabled")
		}
		if len(cfg.JWT.Secret) < 16 {
			return fmt.Errorf("JWT secret must be at least 16 characters when auth is enabled")
		}
	}

	if _, err := time.LoadLocation(cfg.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid studio timezone %q: %w", cfg.Booking.Timezone, err)
	}

	for _, ch := range cfg.Notify.ChannelList() {
		switch ch {
		case "log":
		case "formspree":
			if cfg.Notify.Formspree.FormID == "" {
				return fmt.Errorf("formspree form id is required for the formspree channel")
			}
		case "smtp", "email":
			if cfg.Notify.SMTP.To == "" || cfg.Notify.SMTP.Username == "" {
				return fmt.Errorf("smtp username and recipient are required for the smtp channel")
			}
		case "ses":
			if cfg.Notify.SES.From == "" || cfg.Notify.SES.To == "" {
				return fmt.Errorf("ses sender and recipient are required for the ses channel")
			}
		default:
			return fmt.Errorf("unknown notification channel %q", ch)
		}
	}

	return nil
}

// GetDSN returns the database connection string
func (cfg *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
