package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/spf13/viper"
)

// Store kinds
const (
	StoreMemory = "memory"
	StoreSQL    = "sql"
	StoreSPARQL = "sparql"
	StoreRedis  = "redis"
)

// EnvPrefix prefixes every environment override, e.g. GRAPHMAP_STORE_KIND
const EnvPrefix = "GRAPHMAP"

// Config represents the graphmap configuration
type Config struct {
	Schema string        `mapstructure:"schema"`
	Store  StoreConfig   `mapstructure:"store"`
	Log    LogConfig     `mapstructure:"log"`
	Scopes []ScopeConfig `mapstructure:"scopes"`

	// Dir is the directory of the config file that was read, if any
	Dir string `mapstructure:"-"`
}

// StoreConfig selects and configures the backing store
type StoreConfig struct {
	Kind   string       `mapstructure:"kind"`
	SQL    SQLConfig    `mapstructure:"sql"`
	SPARQL SPARQLConfig `mapstructure:"sparql"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// SQLConfig represents relational store configuration
type SQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SPARQLConfig represents graph store configuration
type SPARQLConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	UpdateEndpoint string        `mapstructure:"update_endpoint"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// RedisConfig represents key-value store configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ScopeConfig declares a named condition template
type ScopeConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Template string `mapstructure:"template"`
	Limit    int    `mapstructure:"limit"`
}

// Load loads the configuration from path, or from graphmap.yaml in the
// working directory when path is empty. A missing default file is not an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Every key gets a default so that environment overrides are seen by Unmarshal
	v.SetDefault("schema", "schema.yaml")
	v.SetDefault("store.kind", StoreMemory)
	v.SetDefault("store.sql.driver", "pgx")
	v.SetDefault("store.sql.dsn", "")
	v.SetDefault("store.sparql.endpoint", "")
	v.SetDefault("store.sparql.update_endpoint", "")
	v.SetDefault("store.sparql.timeout", 30*time.Second)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "graphmap:")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("graphmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if used := v.ConfigFileUsed(); used != "" {
		config.Dir = filepath.Dir(used)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SchemaPath returns the schema file path. Relative paths are taken from
// the directory of the config file.
func (c *Config) SchemaPath() string {
	if c.Schema == "" || filepath.IsAbs(c.Schema) || c.Dir == "" {
		return c.Schema
	}
	return filepath.Join(c.Dir, c.Schema)
}

// Logging returns the logger settings
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, JSON: c.Log.JSON}
}

// HasSchema reports whether the schema file exists
func (c *Config) HasSchema() bool {
	_, err := os.Stat(c.SchemaPath())
	return err == nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Store.Kind {
	case StoreMemory, StoreRedis:
	case StoreSQL:
		if cfg.Store.SQL.Driver == "" {
			return errors.New("store.sql.driver is required for the sql store")
		}
		if cfg.Store.SQL.DSN == "" {
			return errors.New("store.sql.dsn is required for the sql store")
		}
	case StoreSPARQL:
		if cfg.Store.SPARQL.Endpoint == "" {
			return errors.New("store.sparql.endpoint is required for the sparql store")
		}
		if !strings.HasPrefix(cfg.Store.SPARQL.Endpoint, "http://") && !strings.HasPrefix(cfg.Store.SPARQL.Endpoint, "https://") {
			return errors.Newf("store.sparql.endpoint must be an http(s) URL, got: %s", cfg.Store.SPARQL.Endpoint)
		}
	default:
		return errors.Newf("store.kind must be one of memory, sql, sparql, redis, got: %s", cfg.Store.Kind)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}

	seen := make(map[string]bool, len(cfg.Scopes))
	for i, scope := range cfg.Scopes {
		if scope.Name == "" {
			return errors.Newf("scopes[%d]: name is required", i)
		}
		if scope.Template == "" {
			return errors.Newf("scope %s: template is required", scope.Name)
		}
		if seen[scope.Name] {
			return errors.Newf("scope %s is declared twice", scope.Name)
		}
		seen[scope.Name] = true
	}
	return nil
}
