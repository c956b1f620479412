package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"`             // "development" | "production"
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Mongo          MongoRuntimeConfig    `yaml:"mongo"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Summarizer     SummarizerConfig      `yaml:"summarizer"`
	Paths          RuntimePathsConfig    `yaml:"paths"`

	// DSN and RedisURL are resolved from Database and Redis after loading.
	DSN      string `yaml:"-"`
	RedisURL string `yaml:"-"`
}

type DatabaseRuntimeConfig struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Path      string            `yaml:"path"`       // sqlite file
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	SSLMode   string            `yaml:"sslmode"`
	Params    map[string]string `yaml:"params"`
}

type MongoRuntimeConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisRuntimeConfig struct {
	Enable   bool              `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

// SummarizerConfig selects and tunes the external summarization provider.
type SummarizerConfig struct {
	Providers       []AIProvider `yaml:"providers"`
	ProviderID      string       `yaml:"provider_id"`
	Model           string       `yaml:"model"`
	TimeoutSeconds  int          `yaml:"timeout_seconds"`
	MaxContentChars int          `yaml:"max_content_chars"`
	MaxAttempts     int          `yaml:"max_attempts"`
	Temperature     float64      `yaml:"temperature"`
	MaxTokens       int          `yaml:"max_tokens"`
	Referer         string       `yaml:"referer"`
	AppTitle        string       `yaml:"app_title"`
}

type AIProvider struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`          // OpenAI | OpenAI-Compatible | Anthropic | OpenRouter
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawAppConfig struct {
	Port               int                  `yaml:"port"`
	Env                string               `yaml:"env"`
	NodeEnv            string               `yaml:"node_env"`
	AllowedOrigins     []string             `yaml:"allowed_origins"`
	CORSAllowedOrigins []string             `yaml:"cors_allowed_origins"`
	DSN                string               `yaml:"dsn"`
	DatabaseURL        string               `yaml:"database_url"`
	DBDriver           string               `yaml:"db_driver"`
	Database           rawDatabaseConfig    `yaml:"database"`
	Mongo              MongoRuntimeConfig   `yaml:"mongo"`
	MongoURI           string               `yaml:"mongo_uri"`
	RedisURL           string               `yaml:"redis_url"`
	Redis              rawRedisConfig       `yaml:"redis"`
	Summarizer         rawSummarizerConfig  `yaml:"summarizer"`
	AI                 *rawSummarizerConfig `yaml:"ai"`
	Paths              RuntimePathsConfig   `yaml:"paths"`
	LogDir             string               `yaml:"log_dir"`
}

type rawDatabaseConfig struct {
	Driver    string            `yaml:"driver"`
	Type      string            `yaml:"type"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Path      string            `yaml:"path"`
	File      string            `yaml:"file"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	SSLMode   string            `yaml:"sslmode"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	Enable   *bool             `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawSummarizerConfig struct {
	Providers       []AIProvider `yaml:"providers"`
	ProviderID      string       `yaml:"provider_id"`
	ProviderIDCamel string       `yaml:"providerId"`
	Model           string       `yaml:"model"`
	TimeoutSeconds  int          `yaml:"timeout_seconds"`
	Timeout         string       `yaml:"timeout"`
	MaxContentChars int          `yaml:"max_content_chars"`
	MaxAttempts     int          `yaml:"max_attempts"`
	Temperature     *float64     `yaml:"temperature"`
	MaxTokens       int          `yaml:"max_tokens"`
	Referer         string       `yaml:"referer"`
	AppTitle        string       `yaml:"app_title"`
}

// Load reads the YAML config file at configPath and applies env overrides.
// A missing file at the default path yields the built-in defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		raw := rawAppConfig{}
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
		if err := applyRawAppConfig(&cfg, raw); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	cfg.finalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *AppConfig {
	cfg := defaultAppConfig()
	cfg.finalize()
	return &cfg
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDBDriver,
			Path:      defaultSQLitePath,
			Host:      defaultDBHost,
			User:      defaultDBUser,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
			SSLMode:   defaultPGSSLMode,
		},
		Mongo: MongoRuntimeConfig{
			URI:      defaultMongoURI,
			Database: defaultMongoDB,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Summarizer: SummarizerConfig{
			TimeoutSeconds:  defaultSummarizerTimeoutSeconds,
			MaxContentChars: defaultMaxContentChars,
			MaxAttempts:     defaultMaxAttempts,
			Temperature:     defaultTemperature,
			MaxTokens:       defaultMaxTokens,
			Referer:         defaultReferer,
			AppTitle:        defaultAppTitle,
		},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		cfg.Env = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)

	if v := strings.TrimSpace(raw.Mongo.URI); v != "" {
		cfg.Mongo.URI = v
	}
	if v := strings.TrimSpace(raw.MongoURI); v != "" {
		cfg.Mongo.URI = v
	}
	if v := strings.TrimSpace(raw.Mongo.Database); v != "" {
		cfg.Mongo.Database = v
	}

	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	summarizer := raw.Summarizer
	if raw.AI != nil {
		summarizer = *raw.AI
	}
	s, err := applyRawSummarizerConfig(cfg.Summarizer, summarizer)
	if err != nil {
		return err
	}
	cfg.Summarizer = s

	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	return nil
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current
	db := raw.Database

	if v := strings.TrimSpace(db.Type); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(db.Driver); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(raw.DBDriver); v != "" {
		cfg.Driver = v
	}
	if v := strings.TrimSpace(db.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(db.URL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(db.File); v != "" {
		cfg.Path = v
	}
	if v := strings.TrimSpace(db.Path); v != "" {
		cfg.Path = v
	}
	if v := strings.TrimSpace(db.Host); v != "" {
		cfg.Host = v
	}
	if db.Port != 0 {
		cfg.Port = db.Port
	}
	if v := strings.TrimSpace(db.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(db.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(db.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(db.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(db.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(db.Charset); v != "" {
		cfg.Charset = v
	}
	if db.ParseTime != nil {
		cfg.ParseTime = *db.ParseTime
	}
	if v := strings.TrimSpace(db.Loc); v != "" {
		cfg.Loc = v
	}
	if v := strings.TrimSpace(db.SSLMode); v != "" {
		cfg.SSLMode = v
	}
	if db.Params != nil {
		cfg.Params = copyStringMap(db.Params)
	}
	return cfg
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current
	r := raw.Redis

	if v := strings.TrimSpace(r.URL); v != "" {
		cfg.URL = v
		cfg.Enable = true
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
		cfg.Enable = true
	}
	if r.Enable != nil {
		cfg.Enable = *r.Enable
	}
	if v := strings.TrimSpace(r.Host); v != "" {
		cfg.Host = v
	}
	if r.Port != 0 {
		cfg.Port = r.Port
	}
	if v := strings.TrimSpace(r.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(r.Password); v != "" {
		cfg.Password = v
	}
	if r.DB != nil {
		cfg.DB = *r.DB
	}
	if r.TLS != nil {
		cfg.TLS = *r.TLS
	}
	if v := strings.TrimSpace(r.Scheme); v != "" {
		cfg.Scheme = v
	}
	if r.Params != nil {
		cfg.Params = copyStringMap(r.Params)
	}
	return cfg
}

func applyRawSummarizerConfig(current SummarizerConfig, raw rawSummarizerConfig) (SummarizerConfig, error) {
	cfg := current

	if raw.Providers != nil {
		cfg.Providers = normalizeProviders(raw.Providers)
	}
	if v := strings.TrimSpace(raw.ProviderIDCamel); v != "" {
		cfg.ProviderID = v
	}
	if v := strings.TrimSpace(raw.ProviderID); v != "" {
		cfg.ProviderID = v
	}
	if v := strings.TrimSpace(raw.Model); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(raw.Timeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("summarizer.timeout: %w", err)
		}
		cfg.TimeoutSeconds = int(d / time.Second)
	}
	if raw.TimeoutSeconds != 0 {
		cfg.TimeoutSeconds = raw.TimeoutSeconds
	}
	if raw.MaxContentChars != 0 {
		cfg.MaxContentChars = raw.MaxContentChars
	}
	if raw.MaxAttempts != 0 {
		cfg.MaxAttempts = raw.MaxAttempts
	}
	if raw.Temperature != nil {
		cfg.Temperature = *raw.Temperature
	}
	if raw.MaxTokens != 0 {
		cfg.MaxTokens = raw.MaxTokens
	}
	if v := strings.TrimSpace(raw.Referer); v != "" {
		cfg.Referer = v
	}
	if v := strings.TrimSpace(raw.AppTitle); v != "" {
		cfg.AppTitle = v
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseDSN)); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisURL)); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enable = true
	}
	if v := strings.TrimSpace(os.Getenv(EnvReferer)); v != "" {
		cfg.Summarizer.Referer = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAppTitle)); v != "" {
		cfg.Summarizer.AppTitle = v
	}

	key := strings.TrimSpace(os.Getenv(EnvOpenRouterAPIKey))
	if key == "" {
		return
	}
	for i, p := range cfg.Summarizer.Providers {
		if normalizeProviderType(p.Type) == "openrouter" && p.APIKey == "" {
			cfg.Summarizer.Providers[i].APIKey = key
			return
		}
	}
	if len(cfg.Summarizer.Providers) == 0 {
		cfg.Summarizer.Providers = []AIProvider{{
			ID:           "openrouter",
			Name:         "OpenRouter",
			Type:         "OpenRouter",
			APIKey:       key,
			DefaultModel: defaultOpenRouterModel,
			Enabled:      true,
		}}
	}
}

func (c *AppConfig) finalize() {
	c.Env = normalizeEnv(c.Env)
	c.Database = normalizeDatabaseConfig(c.Database)
	c.Mongo = normalizeMongoConfig(c.Mongo)
	c.Redis = normalizeRedisConfig(c.Redis)
	c.Summarizer = normalizeSummarizerConfig(c.Summarizer)
	c.Paths.Logs = strings.TrimSpace(c.Paths.Logs)
	c.DSN = c.Database.DSNValue()
	c.RedisURL = c.Redis.URLValue()
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d, expected 1-65535", c.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("database.driver %q, expected sqlite|mysql|postgres|mongo|memory", c.Database.Driver)
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.Summarizer.MaxAttempts < 1 {
		return fmt.Errorf("summarizer.max_attempts %d, expected >= 1", c.Summarizer.MaxAttempts)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// SummarizerTimeout is the per-attempt deadline for the external summarizer.
func (c *AppConfig) SummarizerTimeout() time.Duration {
	return time.Duration(c.Summarizer.TimeoutSeconds) * time.Second
}
