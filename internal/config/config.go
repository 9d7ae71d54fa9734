package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabasesConfig     `mapstructure:"database"`
	Extension     ExtensionConfig     `mapstructure:"extension"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	CORS          CORSConfig          `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

// DatabasesConfig holds all database configurations
type DatabasesConfig struct {
	Wallet DatabaseConfig `mapstructure:"wallet"`
}

// DatabaseConfig holds individual database configuration
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExtensionConfig holds the browser extension UI bridge configuration.
// The bridge opens the approval popup and renders the badge counter.
type ExtensionConfig struct {
	BaseURL   string             `mapstructure:"base_url"`
	Timeout   time.Duration      `mapstructure:"timeout"`
	Endpoints ExtensionEndpoints `mapstructure:"endpoints"`
}

// ExtensionEndpoints holds all UI bridge endpoint paths
type ExtensionEndpoints struct {
	OpenPopup   string `mapstructure:"open_popup"`
	UpdateBadge string `mapstructure:"update_badge"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// AuthorizationConfig holds dApp authorization behaviour
type AuthorizationConfig struct {
	// DefaultAccountAuthType is applied when a request does not name one
	DefaultAccountAuthType string `mapstructure:"default_account_auth_type"`
	// PopupOpenThreshold: a popup is opened while fewer requests than this are already pending
	PopupOpenThreshold int `mapstructure:"popup_open_threshold"`
	// StoreKey is the durable store key holding the whole origin map
	StoreKey string `mapstructure:"store_key"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

const (
	DefaultStoreKey           = "authUrls"
	DefaultPopupOpenThreshold = 2
	DefaultAccountAuthType    = "substrate"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("AUTH_ARBITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.hostname", "0.0.0.0")
	v.SetDefault("server.port", 9446)
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 0)
	v.SetDefault("server.idleTimeout", 60*time.Second)
	v.SetDefault("database.wallet.type", "mysql")
	v.SetDefault("database.wallet.port", 3306)
	v.SetDefault("database.wallet.max_open_conns", 10)
	v.SetDefault("database.wallet.max_idle_conns", 5)
	v.SetDefault("database.wallet.conn_max_lifetime", time.Hour)
	v.SetDefault("extension.timeout", 5*time.Second)
	v.SetDefault("extension.endpoints.open_popup", "/popup/open")
	v.SetDefault("extension.endpoints.update_badge", "/badge")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("authorization.default_account_auth_type", DefaultAccountAuthType)
	v.SetDefault("authorization.popup_open_threshold", DefaultPopupOpenThreshold)
	v.SetDefault("authorization.store_key", DefaultStoreKey)
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Wallet.Hostname == "" {
		return fmt.Errorf("database hostname is required")
	}

	if config.Database.Wallet.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return config.Authorization.Validate()
}

// Validate validates the authorization section
func (a *AuthorizationConfig) Validate() error {
	switch a.DefaultAccountAuthType {
	case "substrate", "evm", "both":
	default:
		return fmt.Errorf("invalid default account auth type: %q", a.DefaultAccountAuthType)
	}

	if a.PopupOpenThreshold < 1 {
		return fmt.Errorf("popup open threshold must be at least 1, got %d", a.PopupOpenThreshold)
	}

	if a.StoreKey == "" {
		return fmt.Errorf("authorization store key is required")
	}

	return nil
}

// DefaultAuthorizationConfig returns the authorization settings used when no file overrides them
func DefaultAuthorizationConfig() AuthorizationConfig {
	return AuthorizationConfig{
		DefaultAccountAuthType: DefaultAccountAuthType,
		PopupOpenThreshold:     DefaultPopupOpenThreshold,
		StoreKey:               DefaultStoreKey,
	}
}

// GetDSN returns the database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		d.User,
		d.Password,
		d.Hostname,
		d.Port,
		d.Database,
	)
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// GetExtensionURL returns the full URL for a UI bridge endpoint
func (e *ExtensionConfig) GetExtensionURL(endpoint string) string {
	return e.BaseURL + endpoint
}

// IsEnabled returns whether the UI bridge is configured
func (e *ExtensionConfig) IsEnabled() bool {
	return e.BaseURL != ""
}
