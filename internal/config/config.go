package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
)

const envPrefix = "DATASPEAK_"

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Warehouse     WarehouseConfig
	DuckDB        DuckDBConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address            string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
}

type WarehouseConfig struct {
	Driver string
	// DSN wins over the discrete DB settings when set.
	DSN             string
	Host            string
	Port            string
	Database        string
	User            string
	Password        string
	SSLMode         string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	RowLimit        int
	QueryTimeout    time.Duration
}

type DuckDBConfig struct {
	Path     string
	Datasets string
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type AIConfig struct {
	Enabled     bool
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxSteps    int
	Timeout     time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

// LoadFromEnv reads an optional dotenv file before consulting the process
// environment. Variables already set in the environment are not overridden.
func LoadFromEnv(serviceName string) (Config, error) {
	envFile := ".env"
	if raw, ok := os.LookupEnv(envPrefix + "ENV_FILE"); ok {
		envFile = strings.TrimSpace(raw)
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %q: %w", envFile, err)
		}
	}
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup(envPrefix + "PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid %sPROFILE: %q", envPrefix, profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	var corsOrigins string
	steps := []error{
		applyString(lookup, "SERVICE_NAME", &cfg.Service.Name),
		applyString(lookup, "HTTP_ADDR", &cfg.HTTP.Address),
		applyDuration(lookup, "HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout),
		applyDuration(lookup, "HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout),
		applyDuration(lookup, "HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout),
		applyString(lookup, "CORS_ALLOWED_ORIGINS", &corsOrigins),

		applyString(lookup, "WAREHOUSE_DRIVER", &cfg.Warehouse.Driver),
		applyString(lookup, "WAREHOUSE_DSN", &cfg.Warehouse.DSN),
		applyString(lookup, "DB_HOST", &cfg.Warehouse.Host),
		applyString(lookup, "DB_PORT", &cfg.Warehouse.Port),
		applyString(lookup, "DB_NAME", &cfg.Warehouse.Database),
		applyString(lookup, "DB_USER", &cfg.Warehouse.User),
		applyString(lookup, "DB_PASSWORD", &cfg.Warehouse.Password),
		applyString(lookup, "DB_SSLMODE", &cfg.Warehouse.SSLMode),
		applyString(lookup, "WAREHOUSE_SCHEMA", &cfg.Warehouse.Schema),
		applyInt(lookup, "WAREHOUSE_MAX_OPEN_CONNS", &cfg.Warehouse.MaxOpenConns),
		applyInt(lookup, "WAREHOUSE_MAX_IDLE_CONNS", &cfg.Warehouse.MaxIdleConns),
		applyDuration(lookup, "WAREHOUSE_CONN_MAX_IDLE_TIME", &cfg.Warehouse.ConnMaxIdleTime),
		applyDuration(lookup, "WAREHOUSE_CONN_MAX_LIFETIME", &cfg.Warehouse.ConnMaxLifetime),
		applyInt(lookup, "WAREHOUSE_ROW_LIMIT", &cfg.Warehouse.RowLimit),
		applyDuration(lookup, "WAREHOUSE_QUERY_TIMEOUT", &cfg.Warehouse.QueryTimeout),

		applyString(lookup, "DUCKDB_PATH", &cfg.DuckDB.Path),
		applyString(lookup, "DUCKDB_DATASETS", &cfg.DuckDB.Datasets),

		applyString(lookup, "OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint),
		applyString(lookup, "OBJECTSTORE_REGION", &cfg.ObjectStore.Region),
		applyString(lookup, "OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket),
		applyString(lookup, "OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID),
		applyString(lookup, "OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey),
		applyBool(lookup, "OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL),
		applyString(lookup, "OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix),
		applyBool(lookup, "OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket),

		applyBool(lookup, "AI_ENABLED", &cfg.AI.Enabled),
		applyString(lookup, "AI_BASE_URL", &cfg.AI.BaseURL),
		applyString(lookup, "AI_API_KEY", &cfg.AI.APIKey),
		applyString(lookup, "AI_MODEL", &cfg.AI.Model),
		applyFloat(lookup, "AI_TEMPERATURE", &cfg.AI.Temperature),
		applyInt(lookup, "AI_MAX_TOKENS", &cfg.AI.MaxTokens),
		applyInt(lookup, "AI_MAX_STEPS", &cfg.AI.MaxSteps),
		applyDuration(lookup, "AI_TIMEOUT", &cfg.AI.Timeout),

		applyBool(lookup, "LOG_JSON", &cfg.Observability.LogJSON),
		applyLogLevel(lookup, "LOG_LEVEL", &cfg.Observability.LogLevel),
		applyBool(lookup, "AUTH_REQUIRED", &cfg.Auth.Required),
		applyString(lookup, "AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys),
	}
	for _, err := range steps {
		if err != nil {
			return Config{}, err
		}
	}

	if corsOrigins != "" {
		cfg.HTTP.CORSAllowedOrigins = splitList(corsOrigins)
	}
	if cfg.AI.APIKey == "" {
		if raw, ok := lookup("OPENAI_API_KEY"); ok {
			cfg.AI.APIKey = strings.TrimSpace(raw)
		}
	}
	cfg.Warehouse.Driver = strings.ToLower(cfg.Warehouse.Driver)
	if cfg.Warehouse.Schema == "" {
		cfg.Warehouse.Schema = defaultSchema(cfg.Warehouse.Driver)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	switch c.Warehouse.Driver {
	case DriverPostgres, DriverDuckDB:
	default:
		return fmt.Errorf("invalid %sWAREHOUSE_DRIVER: %q", envPrefix, c.Warehouse.Driver)
	}
	if c.Warehouse.RowLimit <= 0 {
		return fmt.Errorf("%sWAREHOUSE_ROW_LIMIT must be positive", envPrefix)
	}
	if c.AI.MaxSteps <= 0 {
		return fmt.Errorf("%sAI_MAX_STEPS must be positive", envPrefix)
	}
	if c.AI.Enabled && c.Profile == ProfileProd && c.AI.APIKey == "" {
		return fmt.Errorf("%sAI_API_KEY is required in prod when the agent is enabled", envPrefix)
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "dataspeak-api"},
		HTTP: HTTPConfig{
			Address:            ":4000",
			ReadTimeout:        5 * time.Second,
			WriteTimeout:       180 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: []string{"http://localhost:3001"},
		},
		Warehouse: WarehouseConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            "5432",
			Database:        "dataspeak",
			User:            "user",
			Password:        "password",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			RowLimit:        200,
			QueryTimeout:    15 * time.Second,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "dataspeak",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			AutoCreateBucket: true,
		},
		AI: AIConfig{
			Enabled:     true,
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-2024-08-06",
			Temperature: 0.1,
			MaxTokens:   4096,
			MaxSteps:    12,
			Timeout:     120 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":14000"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.AI.Enabled = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func defaultSchema(driver string) string {
	if driver == DriverDuckDB {
		return "main"
	}
	return "public"
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func splitList(raw string) []string {
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(envPrefix + key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s%s: %q", envPrefix, key, raw)
	}
	return nil
}
