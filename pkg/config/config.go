package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete netconfig configuration
type Config struct {
	Storage      StorageConfig      `mapstructure:"storage"`
	Templates    TemplatesConfig    `mapstructure:"templates"`
	Compliance   ComplianceConfig   `mapstructure:"compliance"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Transport    TransportConfig    `mapstructure:"transport"`
	Backup       BackupConfig       `mapstructure:"backup"`
	API          APIConfig          `mapstructure:"api"`
	Output       OutputConfig       `mapstructure:"output"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	// Backend is one of sqlite, postgres, memory
	Backend string `mapstructure:"backend"`
	// Path is the sqlite database file (":memory:" works too)
	Path string `mapstructure:"path"`
	// DSN is the postgres connection string
	DSN string `mapstructure:"dsn"`
}

// TemplatesConfig locates configuration templates
type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

// ComplianceConfig locates the policy file. When the file is absent the
// built-in default policy set applies.
type ComplianceConfig struct {
	PolicyFile string `mapstructure:"policy_file"`
}

// OrchestratorConfig bounds fleet operations
type OrchestratorConfig struct {
	// Workers caps how many devices are worked on at once
	Workers int `mapstructure:"workers"`
}

// TransportConfig carries the SSH session timeouts
type TransportConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	AuthTimeout    time.Duration `mapstructure:"auth_timeout"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	BannerTimeout  time.Duration `mapstructure:"banner_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// BackupConfig contains backup output settings
type BackupConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// APIConfig configures the REST gateway
type APIConfig struct {
	Listen            string        `mapstructure:"listen"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenExpiry       time.Duration `mapstructure:"token_expiry"`
	AdminUser         string        `mapstructure:"admin_user"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultWorkers is the concurrency ceiling used when none is
// configured.
const DefaultWorkers = 5

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    filepath.Join(homeDir, ".netconfig", "netconfig.db"),
			DSN:     "",
		},
		Templates: TemplatesConfig{
			Dir: "./templates",
		},
		Compliance: ComplianceConfig{
			PolicyFile: "./config/compliance_policies.yaml",
		},
		Orchestrator: OrchestratorConfig{
			Workers: DefaultWorkers,
		},
		Transport: TransportConfig{
			ConnectTimeout: 10 * time.Second,
			AuthTimeout:    30 * time.Second,
			SessionTimeout: 60 * time.Second,
			BannerTimeout:  15 * time.Second,
			CommandTimeout: 30 * time.Second,
		},
		Backup: BackupConfig{
			OutputDir: "./backups",
		},
		API: APIConfig{
			Listen:      ":5000",
			JWTSecret:   "",
			TokenExpiry: time.Hour,
			AdminUser:   "admin",
		},
		Output: OutputConfig{
			Format:  "table",
			NoColor: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	config := DefaultConfig()

	// Set configuration file paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Add configuration paths
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".netconfig"))
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set environment variable support
	viper.SetEnvPrefix("NETCONFIG")
	viper.AutomaticEnv()

	// Map environment variables to config keys
	viper.BindEnv("api.jwt_secret", "NETCONFIG_JWT_SECRET")
	viper.BindEnv("api.admin_password_hash", "NETCONFIG_ADMIN_PASSWORD_HASH")
	viper.BindEnv("storage.dsn", "NETCONFIG_STORAGE_DSN", "DATABASE_URL")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	// Read configuration file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error - we'll use defaults
	}

	// Unmarshal into our config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage backend postgres requires a DSN")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("storage backend sqlite requires a path")
	}

	if c.Orchestrator.Workers <= 0 {
		return fmt.Errorf("orchestrator workers must be positive")
	}

	if c.Transport.SessionTimeout <= 0 {
		return fmt.Errorf("transport session timeout must be positive")
	}

	if c.API.TokenExpiry <= 0 {
		return fmt.Errorf("api token expiry must be positive")
	}

	return nil
}

// ExpandPaths expands home directory paths
func (c *Config) ExpandPaths() error {
	var err error
	c.Storage.Path, err = expandPath(c.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to expand storage path: %w", err)
	}

	c.Templates.Dir, err = expandPath(c.Templates.Dir)
	if err != nil {
		return fmt.Errorf("failed to expand templates dir: %w", err)
	}

	c.Backup.OutputDir, err = expandPath(c.Backup.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to expand backup output dir: %w", err)
	}

	c.Compliance.PolicyFile, err = expandPath(c.Compliance.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to expand compliance policy file: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path, err
	}

	if len(path) == 1 {
		return home, nil
	}

	return filepath.Join(home, path[1:]), nil
}
