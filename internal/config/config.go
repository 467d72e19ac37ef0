package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yugmi/sense-api/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Vision       VisionConfig
	Notification NotificationConfig
	Jobs         JobsConfig
	Secrets      SecretsConfig
	Logging      LoggingConfig
	Server       ServerConfig
	CORS         CORSConfig
	Security     SecurityConfig
	RateLimit    RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	PublicURL   string
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	// AccessTTL and RefreshTTL are in minutes
	AccessTTL  int
	RefreshTTL int
	BcryptCost int
}

type StorageConfig struct {
	// Mode is one of "local", "azure" or "s3"
	Mode                  string
	Namespace             string
	LocalBasePath         string
	SigningSecret         string
	CloudConnectionString string
	CloudContainer        string
	S3Endpoint            string
	S3AccessKey           string
	S3SecretKey           string
	S3Bucket              string
	S3Region              string
	S3UseSSL              bool
	MaxUploadSizeMB       int64
	// SignedURLTTL and ShareURLTTL are in seconds
	SignedURLTTL int
	ShareURLTTL  int
}

// VisionConfig configures the AI vision provider
type VisionConfig struct {
	// Provider is one of "gemini", "openai", "anthropic" or "none"
	Provider        string
	Model           string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	// Timeout and StaleAfter are in seconds
	Timeout    int
	StaleAfter int
}

// NotificationConfig configures outbound email and WhatsApp delivery
type NotificationConfig struct {
	// Mode is "log" (no delivery, log only) or "live"
	Mode            string
	EmailFrom       string
	SESRegion       string
	SESAccessKey    string
	SESSecretKey    string
	WhatsAppAPIURL  string
	WhatsAppToken   string
	WhatsAppTimeout int
}

type JobsConfig struct {
	Enabled           bool
	AnalysisSweepCron string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute applies per IP before authentication
	RequestsPerMinute int
	// RequestsPerMinuteAuth applies per user after authentication
	RequestsPerMinuteAuth int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

func (a *AuthConfig) AccessTTLDuration() time.Duration {
	return time.Duration(a.AccessTTL) * time.Minute
}

func (a *AuthConfig) RefreshTTLDuration() time.Duration {
	return time.Duration(a.RefreshTTL) * time.Minute
}

func (s *StorageConfig) SignedURLTTLDuration() time.Duration {
	return time.Duration(s.SignedURLTTL) * time.Second
}

func (s *StorageConfig) ShareURLTTLDuration() time.Duration {
	return time.Duration(s.ShareURLTTL) * time.Second
}

// MaxUploadBytes returns the upload limit in bytes
func (s *StorageConfig) MaxUploadBytes() int64 {
	return s.MaxUploadSizeMB << 20
}

func (v *VisionConfig) TimeoutDuration() time.Duration {
	return time.Duration(v.Timeout) * time.Second
}

func (v *VisionConfig) StaleAfterDuration() time.Duration {
	return time.Duration(v.StaleAfter) * time.Second
}

func (n *NotificationConfig) WhatsAppTimeoutDuration() time.Duration {
	return time.Duration(n.WhatsAppTimeout) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// Load loads configuration from file and environment variables.
// Secrets are not resolved from Key Vault here, use LoadWithSecrets for that.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Well-known provider variables are honoured when the namespaced key is unset
	fallbacks := []struct {
		target *string
		env    string
	}{
		{&cfg.Auth.AccessSecret, "JWT_SECRET"},
		{&cfg.Auth.RefreshSecret, "JWT_REFRESH_SECRET"},
		{&cfg.Vision.GeminiAPIKey, "GEMINI_API_KEY"},
		{&cfg.Vision.OpenAIAPIKey, "OPENAI_API_KEY"},
		{&cfg.Vision.AnthropicAPIKey, "ANTHROPIC_API_KEY"},
		{&cfg.Notification.WhatsAppAPIURL, "WHATSAPP_API_URL"},
		{&cfg.Notification.WhatsAppToken, "WHATSAPP_API_TOKEN"},
		{&cfg.Secrets.KeyVaultName, "AZURE_KEY_VAULT_NAME"},
	}
	for _, f := range fallbacks {
		if *f.target == "" {
			*f.target = v.GetString(f.env)
		}
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" && os.Getenv("VISION_PROVIDER") == "" {
		cfg.Vision.Provider = provider
	}

	return &cfg, nil
}

// Validate checks settings that cannot be defaulted safely
func (c *Config) Validate() error {
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return fmt.Errorf("auth.accessSecret and auth.refreshSecret are required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("auth.accessSecret and auth.refreshSecret must differ")
	}
	switch c.Storage.Mode {
	case "local":
		if c.Storage.SigningSecret == "" {
			return fmt.Errorf("storage.signingSecret is required for local storage")
		}
	case "azure", "cloud", "s3":
	default:
		return fmt.Errorf("unsupported storage mode: %s", c.Storage.Mode)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	return nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
//
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is staging or
// production. Otherwise secrets come from environment variables already bound by Load.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	logger.Info("Loading secrets from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	resolved := provider.Resolve(ctx, secretBindings(cfg))
	logger.Info("Secrets loaded from vault", zap.Int("resolved", resolved))

	if dbName := os.Getenv("DEFAULT_DATABASE"); dbName != "" {
		cfg.Database.Name = dbName
	}

	return cfg, nil
}

// secretBindings maps Key Vault secret names to the config fields they populate
func secretBindings(cfg *Config) []secrets.Binding {
	return []secrets.Binding{
		{Secret: "POSTGRES-MAIN-HOST", Env: "DATABASE_HOST", Target: &cfg.Database.Host},
		{Secret: "POSTGRES-MAIN-USER", Env: "DATABASE_USER", Target: &cfg.Database.User},
		{Secret: "POSTGRES-MAIN-PASSWORD", Env: "DATABASE_PASSWORD", Target: &cfg.Database.Password},
		{Secret: "jwt-access-secret", Env: "AUTH_ACCESSSECRET", Target: &cfg.Auth.AccessSecret},
		{Secret: "jwt-refresh-secret", Env: "AUTH_REFRESHSECRET", Target: &cfg.Auth.RefreshSecret},
		{Secret: "storage-connection-string", Env: "STORAGE_CLOUDCONNECTIONSTRING", Target: &cfg.Storage.CloudConnectionString},
		{Secret: "storage-s3-secret-key", Env: "STORAGE_S3SECRETKEY", Target: &cfg.Storage.S3SecretKey},
		{Secret: "storage-signing-secret", Env: "STORAGE_SIGNINGSECRET", Target: &cfg.Storage.SigningSecret},
		{Secret: "gemini-api-key", Env: "GEMINI_API_KEY", Target: &cfg.Vision.GeminiAPIKey},
		{Secret: "openai-api-key", Env: "OPENAI_API_KEY", Target: &cfg.Vision.OpenAIAPIKey},
		{Secret: "anthropic-api-key", Env: "ANTHROPIC_API_KEY", Target: &cfg.Vision.AnthropicAPIKey},
		{Secret: "ses-access-key", Env: "NOTIFICATION_SESACCESSKEY", Target: &cfg.Notification.SESAccessKey},
		{Secret: "ses-secret-key", Env: "NOTIFICATION_SESSECRETKEY", Target: &cfg.Notification.SESSecretKey},
		{Secret: "whatsapp-api-token", Env: "WHATSAPP_API_TOKEN", Target: &cfg.Notification.WhatsAppToken},
	}
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Yugmi Sense API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.publicURL", "http://localhost:8080")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "sense")
	v.SetDefault("database.user", "sense_user")
	v.SetDefault("database.password", "sense_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.sqlitePath", "sense.db")
	v.SetDefault("database.autoMigrate", false)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Auth defaults; secrets have empty defaults so AUTH_* env vars bind
	v.SetDefault("auth.accessSecret", "")
	v.SetDefault("auth.refreshSecret", "")
	v.SetDefault("auth.accessTTL", 15)       // 15 minutes
	v.SetDefault("auth.refreshTTL", 7*24*60) // 7 days
	v.SetDefault("auth.bcryptCost", 12)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.namespace", "yugmi-sense")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.signingSecret", "")
	v.SetDefault("storage.cloudConnectionString", "")
	v.SetDefault("storage.s3Endpoint", "")
	v.SetDefault("storage.s3AccessKey", "")
	v.SetDefault("storage.s3SecretKey", "")
	v.SetDefault("storage.cloudContainer", "captures")
	v.SetDefault("storage.s3Bucket", "captures")
	v.SetDefault("storage.s3Region", "us-east-1")
	v.SetDefault("storage.s3UseSSL", true)
	v.SetDefault("storage.maxUploadSizeMB", 100)
	v.SetDefault("storage.signedURLTTL", 3600)
	v.SetDefault("storage.shareURLTTL", 24*3600)

	// Vision defaults
	v.SetDefault("vision.provider", "gemini")
	v.SetDefault("vision.model", "")
	v.SetDefault("vision.geminiAPIKey", "")
	v.SetDefault("vision.openAIAPIKey", "")
	v.SetDefault("vision.openAIBaseURL", "")
	v.SetDefault("vision.anthropicAPIKey", "")
	v.SetDefault("vision.timeout", 90)
	v.SetDefault("vision.staleAfter", 600)

	// Notification defaults
	v.SetDefault("notification.mode", "log")
	v.SetDefault("notification.emailFrom", "noreply@yugmi.app")
	v.SetDefault("notification.sesRegion", "eu-central-1")
	v.SetDefault("notification.sesAccessKey", "")
	v.SetDefault("notification.sesSecretKey", "")
	v.SetDefault("notification.whatsAppAPIURL", "")
	v.SetDefault("notification.whatsAppToken", "")
	v.SetDefault("notification.whatsAppTimeout", 15)

	// Jobs defaults
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.analysisSweepCron", "0 */5 * * * *")

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 60)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.requestTimeout", 120)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 300)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})
}
