package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	Billing   BillingConfig   `yaml:"billing"`
	Rental    RentalConfig    `yaml:"rental"`
	QR        QRConfig        `yaml:"qr"`
	Email     EmailConfig     `yaml:"email"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig selects and configures the document store backing all state.
type StoreConfig struct {
	Type            string `yaml:"type"` // "firestore" or "memory"
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// AuthConfig contains identity settings. Mode "firebase" verifies identity
// provider ID tokens; mode "local" runs email/password login against the
// users collection and issues tokens signed with JWTSecret. Customer rental
// session tokens are always signed locally.
type AuthConfig struct {
	Mode               string `yaml:"mode"` // "firebase" or "local"
	JWTSecret          string `yaml:"jwt_secret"`
	AccessTokenExpiry  int    `yaml:"access_token_expiry_minutes"`
	SessionTokenExpiry int    `yaml:"session_token_expiry_minutes"`
}

// BillingConfig contains the per-minute billing rate.
type BillingConfig struct {
	RatePerMinute int64  `yaml:"rate_per_minute"`
	Currency      string `yaml:"currency"`
}

// RentalConfig contains rental lifecycle timing settings.
type RentalConfig struct {
	TickSeconds         int `yaml:"tick_seconds"`
	PauseTimeoutMinutes int `yaml:"pause_timeout_minutes"`
}

// QRConfig contains QR payload settings.
type QRConfig struct {
	BaseURL string `yaml:"base_url"`
}

// EmailConfig contains SendGrid settings. Email is disabled when APIKey is
// empty.
type EmailConfig struct {
	APIKey    string `yaml:"api_key"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
}

// RateLimitConfig contains per-IP request rate limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReconcileSessions    string `yaml:"reconcile_sessions"`
	SnapshotDailyRevenue string `yaml:"snapshot_daily_revenue"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Store
	if val := os.Getenv("STORE_TYPE"); val != "" {
		c.Store.Type = val
	}
	if val := os.Getenv("FIRESTORE_PROJECT_ID"); val != "" {
		c.Store.ProjectID = val
	}
	if val := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); val != "" {
		c.Store.CredentialsFile = val
	}

	// Auth
	if val := os.Getenv("AUTH_MODE"); val != "" {
		c.Auth.Mode = val
	}
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.Auth.JWTSecret = val
	}

	// Billing
	if val := os.Getenv("BILLING_RATE_PER_MINUTE"); val != "" {
		fmt.Sscanf(val, "%d", &c.Billing.RatePerMinute)
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.APIKey = val
	}

	// QR
	if val := os.Getenv("QR_BASE_URL"); val != "" {
		c.QR.BaseURL = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Store validation
	switch c.Store.Type {
	case "", "firestore":
		c.Store.Type = "firestore"
		if c.Store.ProjectID == "" {
			return fmt.Errorf("store project_id is required for firestore")
		}
	case "memory":
		// In-memory store keeps nothing across restarts; dev and test only.
	default:
		return fmt.Errorf("unknown store type: %s", c.Store.Type)
	}

	// Auth validation
	switch c.Auth.Mode {
	case "", "firebase":
		c.Auth.Mode = "firebase"
	case "local":
	default:
		return fmt.Errorf("unknown auth mode: %s", c.Auth.Mode)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.Auth.AccessTokenExpiry <= 0 {
		c.Auth.AccessTokenExpiry = 60
	}
	if c.Auth.SessionTokenExpiry <= 0 {
		c.Auth.SessionTokenExpiry = 12 * 60
	}

	// Billing defaults
	if c.Billing.RatePerMinute == 0 {
		c.Billing.RatePerMinute = 3
	}
	if c.Billing.RatePerMinute < 0 {
		return fmt.Errorf("billing rate must be non-negative")
	}
	if c.Billing.Currency == "" {
		c.Billing.Currency = "bob"
	}

	// Rental defaults
	if c.Rental.TickSeconds <= 0 {
		c.Rental.TickSeconds = 60
	}
	if c.Rental.PauseTimeoutMinutes <= 0 {
		c.Rental.PauseTimeoutMinutes = 20
	}

	// QR defaults
	if c.QR.BaseURL == "" {
		c.QR.BaseURL = "http://localhost:3000"
	}

	// Rate limit defaults
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Scheduler defaults
	if c.Scheduler.ReconcileSessions == "" {
		c.Scheduler.ReconcileSessions = "0 * * * * *" // every minute
	}
	if c.Scheduler.SnapshotDailyRevenue == "" {
		c.Scheduler.SnapshotDailyRevenue = "0 0 1 * * *" // 1 AM UTC
	}

	return nil
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
