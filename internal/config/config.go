// =============================================================================
// XLSX to Postgres ETL - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. Settings are resolved in layers:
//
//   1. config.yaml (or the file passed via --config)
//   2. .env file in the working directory, if present
//   3. ETL_* environment variables (highest precedence)
//   4. Defaults for anything still unset
//
// The merged result is validated before the application runs. Database
// credentials are expected to arrive through the environment in anything
// beyond local development.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the configuration file is looked for when --config
// is not given. The file is optional at this path; defaults and environment
// variables are enough to run.
const DefaultPath = "config.yaml"

// envPrefix namespaces the environment variables (ETL_DB_HOST and friends).
const envPrefix = "etl"

// maintenanceDatabase is the database used for bootstrap connections before
// the target database exists.
const maintenanceDatabase = "postgres"

// =============================================================================
// CONFIGURATION STRUCTURES
// =============================================================================

// Config holds the full application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig describes the input workbook.
type SourceConfig struct {
	// Path is the location of the XLSX workbook to load.
	// Default: "./data/vendas_loja.xlsx"
	Path string `yaml:"path" envconfig:"SOURCE_PATH" validate:"required"`

	// CustomersSheet is the name of the sheet holding customer rows.
	// Default: "clientes"
	CustomersSheet string `yaml:"customers_sheet" envconfig:"CUSTOMERS_SHEET" validate:"required"`

	// SalesSheet is the name of the sheet holding sales rows.
	// Default: "vendas"
	SalesSheet string `yaml:"sales_sheet" envconfig:"SALES_SHEET" validate:"required"`

	// ArchiveDir, when set, is where the workbook is moved after a
	// successful run. Empty disables archival.
	ArchiveDir string `yaml:"archive_dir" envconfig:"ARCHIVE_DIR"`
}

// DatabaseConfig describes the PostgreSQL connection. Every field can be
// overridden with an ETL_DB_* environment variable.
type DatabaseConfig struct {
	// Host of the PostgreSQL server.
	// Default: "localhost"
	Host string `yaml:"host" envconfig:"DB_HOST" validate:"required"`

	// Port of the PostgreSQL server.
	// Default: 5432
	Port int `yaml:"port" envconfig:"DB_PORT" validate:"required,min=1,max=65535"`

	// User for authentication.
	// Default: "postgres"
	User string `yaml:"user" envconfig:"DB_USER" validate:"required"`

	// Password for authentication.
	// Default: "postgres"
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`

	// Name of the target database.
	// Default: "loja_db"
	Name string `yaml:"name" envconfig:"DB_NAME" validate:"required,pgident"`

	// SSLMode passed to the driver (disable, require, verify-full, ...).
	// Default: "disable"
	SSLMode string `yaml:"ssl_mode" envconfig:"DB_SSL_MODE" validate:"required"`

	// ConnectTimeout is the connection timeout in seconds.
	// Default: 10
	ConnectTimeout int `yaml:"connect_timeout" envconfig:"DB_CONNECT_TIMEOUT" validate:"required,min=1"`

	// CreateIfMissing controls whether the target database is created when
	// it does not exist yet. A pointer so an explicit false survives the
	// defaulting pass.
	// Default: true
	CreateIfMissing *bool `yaml:"create_if_missing" envconfig:"DB_CREATE_IF_MISSING"`
}

// ShouldCreateDatabase reports whether the run may create the target
// database when it is absent.
func (d *DatabaseConfig) ShouldCreateDatabase() bool {
	return d.CreateIfMissing == nil || *d.CreateIfMissing
}

// LoggingConfig controls the application logger.
type LoggingConfig struct {
	// Level controls verbosity: "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level" envconfig:"LOG_LEVEL" validate:"required,oneof=debug info warn error"`

	// JSON switches the log output to one JSON object per line.
	// Default: false
	JSON bool `yaml:"json" envconfig:"LOG_JSON"`
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// Load resolves the application configuration from the given file path plus
// the environment, applies defaults and validates the result.
//
// PARAMETERS:
//   - configPath: Path to the YAML configuration file. When it equals
//     DefaultPath the file may be absent; an explicitly chosen path must
//     exist.
//
// RETURNS:
//   - The resolved configuration.
//   - An error if the file cannot be parsed, an environment variable cannot
//     be applied, or validation fails.
func Load(configPath string) (*Config, error) {
	// A .env file is a development convenience; ignore it when missing.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case os.IsNotExist(err) && configPath == DefaultPath:
		// No config file is fine at the default location.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Environment variables win over the file.
	if err := envconfig.Process(envPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.Source.Path == "" {
		config.Source.Path = "./data/vendas_loja.xlsx"
	}
	if config.Source.CustomersSheet == "" {
		config.Source.CustomersSheet = "clientes"
	}
	if config.Source.SalesSheet == "" {
		config.Source.SalesSheet = "vendas"
	}
	if config.Database.Host == "" {
		config.Database.Host = "localhost"
	}
	if config.Database.Port == 0 {
		config.Database.Port = 5432
	}
	if config.Database.User == "" {
		config.Database.User = "postgres"
	}
	if config.Database.Password == "" {
		config.Database.Password = "postgres"
	}
	if config.Database.Name == "" {
		config.Database.Name = "loja_db"
	}
	if config.Database.SSLMode == "" {
		config.Database.SSLMode = "disable"
	}
	if config.Database.ConnectTimeout == 0 {
		config.Database.ConnectTimeout = 10
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

// pgIdentPattern matches identifiers safe to splice into CREATE DATABASE.
var pgIdentPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validate checks the merged configuration.
func validate(config *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("pgident", func(fl validator.FieldLevel) bool {
		return pgIdentPattern.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register validator: %w", err)
	}
	if err := v.Struct(config); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// CONNECTION STRINGS
// =============================================================================

// DSN returns the keyword/value connection string for the target database.
func (d *DatabaseConfig) DSN() string {
	return d.dsn(d.Name)
}

// MaintenanceDSN returns the connection string for the maintenance database,
// used to check for and create the target database.
func (d *DatabaseConfig) MaintenanceDSN() string {
	return d.dsn(maintenanceDatabase)
}

func (d *DatabaseConfig) dsn(database string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		d.Host, d.Port, d.User, d.Password, database, d.SSLMode, d.ConnectTimeout,
	)
}
