package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Alkitab   AlkitabConfig   `yaml:"alkitab"`
	JWT       JWTConfig       `yaml:"jwt"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Mail      MailConfig      `yaml:"mail"`
	Media     MediaConfig     `yaml:"media"`
	Blog      BlogConfig      `yaml:"blog"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	LogLevel       string        `yaml:"log_level"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	FrontendURL    string        `yaml:"frontend_url"`
	PublicBaseURL  string        `yaml:"public_base_url"`

	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
}

// AlkitabConfig points at the read-only Bible corpus
type AlkitabConfig struct {
	Path string `yaml:"path"`
}

// JWTConfig holds JWT signing settings
type JWTConfig struct {
	PrivateKeyPath string `yaml:"private_key_path"`
	PublicKeyPath  string `yaml:"public_key_path"`
	ExpirationMins int    `yaml:"expiration_mins"`
	Issuer         string `yaml:"issuer"`
}

// OAuthConfig holds OAuth provider settings
type OAuthConfig struct {
	Google GoogleOAuthConfig `yaml:"google"`
}

// GoogleOAuthConfig holds Google OAuth settings
type GoogleOAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
}

// MailConfig selects and configures the outgoing mail driver
type MailConfig struct {
	Driver   string `yaml:"driver"` // smtp or log
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// MediaConfig holds upload storage and transcoding settings
type MediaConfig struct {
	UploadDir    string `yaml:"upload_dir"`
	CDNURL       string `yaml:"cdn_url"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`
	VideoWorkers int    `yaml:"video_workers"`
	MaxUploadMB  int    `yaml:"max_upload_mb"`
	TempDir      string `yaml:"temp_dir"`

	// SigningSecret signs presigned upload URLs so they survive restarts
	// and work across instances
	SigningSecret string `yaml:"signing_secret"`
}

// BlogConfig holds file-based blog import settings
type BlogConfig struct {
	ContentDir string `yaml:"content_dir"`
	Watch      bool   `yaml:"watch"`
}

// RateLimitConfig holds request rate limiting settings
type RateLimitConfig struct {
	Rate   int           `yaml:"rate"`
	Window time.Duration `yaml:"window"`
	Burst  int           `yaml:"burst"`
	// AuthRate caps login, registration and OTP attempts per window
	AuthRate int `yaml:"auth_rate"`
}

// Default returns the built-in configuration used before any file or
// environment overrides are applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			LogLevel:       "info",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
			FrontendURL:    "http://localhost:3000",
			PublicBaseURL:  "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      "8000",
			Namespace: "renunganku",
			Database:  "main",
			User:      "root",
			Password:  "root",
		},
		Alkitab: AlkitabConfig{
			Path: "./data/alkitab.db",
		},
		JWT: JWTConfig{
			PrivateKeyPath: "./keys/private.pem",
			PublicKeyPath:  "./keys/public.pem",
			ExpirationMins: 60 * 24 * 7,
			Issuer:         "api.renunganku.id",
		},
		Mail: MailConfig{
			Driver: "log",
			Port:   587,
			From:   "Renunganku <no-reply@renunganku.id>",
		},
		Media: MediaConfig{
			UploadDir:    "./uploads",
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			VideoWorkers: 2,
			MaxUploadMB:  100,
			TempDir:      os.TempDir(),
		},
		Blog: BlogConfig{
			ContentDir: "",
			Watch:      true,
		},
		RateLimit: RateLimitConfig{
			Rate:     100,
			Window:   time.Minute,
			Burst:    20,
			AuthRate: 10,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// MergeFile overlays the keys present in a YAML file onto the configuration
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Env = getEnv("SERVER_ENV", c.Server.Env)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.AllowedOrigins = getSliceEnv("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.FrontendURL = strings.TrimRight(getEnv("FRONTEND_URL", c.Server.FrontendURL), "/")
	c.Server.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", c.Server.PublicBaseURL), "/")
	c.Server.TrustedProxies = getSliceEnv("TRUSTED_PROXIES", c.Server.TrustedProxies)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.Namespace = getEnv("DB_NAMESPACE", c.Database.Namespace)
	c.Database.Database = getEnv("DB_DATABASE", c.Database.Database)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)

	c.Alkitab.Path = getEnv("ALKITAB_DB_PATH", c.Alkitab.Path)

	c.JWT.PrivateKeyPath = getEnv("JWT_PRIVATE_KEY_PATH", c.JWT.PrivateKeyPath)
	c.JWT.PublicKeyPath = getEnv("JWT_PUBLIC_KEY_PATH", c.JWT.PublicKeyPath)
	c.JWT.ExpirationMins = getIntEnv("JWT_EXPIRATION_MINS", c.JWT.ExpirationMins)
	c.JWT.Issuer = getEnv("JWT_ISSUER", c.JWT.Issuer)

	c.OAuth.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", c.OAuth.Google.ClientID)
	c.OAuth.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.OAuth.Google.ClientSecret)
	c.OAuth.Google.RedirectURI = getEnv("GOOGLE_REDIRECT_URI", c.OAuth.Google.RedirectURI)

	c.Mail.Driver = getEnv("MAIL_DRIVER", c.Mail.Driver)
	c.Mail.Host = getEnv("SMTP_HOST", c.Mail.Host)
	c.Mail.Port = getIntEnv("SMTP_PORT", c.Mail.Port)
	c.Mail.Username = getEnv("SMTP_USER", c.Mail.Username)
	c.Mail.Password = getEnv("SMTP_PASSWORD", c.Mail.Password)
	c.Mail.From = getEnv("MAIL_FROM", c.Mail.From)

	c.Media.UploadDir = getEnv("MEDIA_UPLOAD_DIR", c.Media.UploadDir)
	c.Media.CDNURL = strings.TrimRight(getEnv("CDN_URL", c.Media.CDNURL), "/")
	c.Media.FFmpegPath = getEnv("FFMPEG_PATH", c.Media.FFmpegPath)
	c.Media.FFprobePath = getEnv("FFPROBE_PATH", c.Media.FFprobePath)
	c.Media.VideoWorkers = getIntEnv("VIDEO_WORKERS", c.Media.VideoWorkers)
	c.Media.MaxUploadMB = getIntEnv("MAX_UPLOAD_MB", c.Media.MaxUploadMB)
	c.Media.TempDir = getEnv("MEDIA_TEMP_DIR", c.Media.TempDir)
	c.Media.SigningSecret = getEnv("MEDIA_SIGNING_SECRET", c.Media.SigningSecret)

	c.Blog.ContentDir = getEnv("BLOG_CONTENT_DIR", c.Blog.ContentDir)
	c.Blog.Watch = getBoolEnv("BLOG_WATCH", c.Blog.Watch)

	c.RateLimit.Rate = getIntEnv("RATE_LIMIT_RATE", c.RateLimit.Rate)
	c.RateLimit.Window = getDurationEnv("RATE_LIMIT_WINDOW", c.RateLimit.Window)
	c.RateLimit.Burst = getIntEnv("RATE_LIMIT_BURST", c.RateLimit.Burst)
	c.RateLimit.AuthRate = getIntEnv("RATE_LIMIT_AUTH_RATE", c.RateLimit.AuthRate)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}
	if c.Server.FrontendURL == "" {
		errs = append(errs, errors.New("FRONTEND_URL is required"))
	}

	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	if c.IsProduction() {
		if c.JWT.PrivateKeyPath == "" {
			errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH is required in production"))
		}
		if c.JWT.PublicKeyPath == "" {
			errs = append(errs, errors.New("JWT_PUBLIC_KEY_PATH is required in production"))
		}
		if c.Mail.Driver == "log" {
			errs = append(errs, errors.New("MAIL_DRIVER=log is not allowed in production"))
		}
		if c.Media.SigningSecret == "" {
			errs = append(errs, errors.New("MEDIA_SIGNING_SECRET is required in production"))
		}
	}
	if c.JWT.ExpirationMins <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINS must be positive"))
	}

	if c.OAuth.Google.IsConfigured() {
		if err := c.OAuth.Google.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("Google OAuth: %w", err))
		}
	}

	if err := c.Mail.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mail: %w", err))
	}

	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p))
		}
	}

	if c.Media.UploadDir == "" {
		errs = append(errs, errors.New("MEDIA_UPLOAD_DIR is required"))
	}
	if c.Media.VideoWorkers <= 0 {
		errs = append(errs, errors.New("VIDEO_WORKERS must be positive"))
	}
	if c.Media.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}

	if c.RateLimit.Rate <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RATE must be positive"))
	}
	if c.RateLimit.AuthRate <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_AUTH_RATE must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IsConfigured returns true if any Google OAuth field is set
func (g GoogleOAuthConfig) IsConfigured() bool {
	return g.ClientID != "" || g.ClientSecret != "" || g.RedirectURI != ""
}

// Validate checks that all required Google OAuth fields are present
func (g GoogleOAuthConfig) Validate() error {
	var missing []string
	if g.ClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if g.ClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if g.RedirectURI == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks the selected mail driver has what it needs
func (m MailConfig) Validate() error {
	switch m.Driver {
	case "log":
		return nil
	case "smtp":
		var missing []string
		if m.Host == "" {
			missing = append(missing, "SMTP_HOST")
		}
		if m.Port <= 0 {
			missing = append(missing, "SMTP_PORT")
		}
		if m.From == "" {
			missing = append(missing, "MAIL_FROM")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
		}
		return nil
	default:
		return fmt.Errorf("MAIL_DRIVER must be 'smtp' or 'log', got '%s'", m.Driver)
	}
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func validProxy(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}
