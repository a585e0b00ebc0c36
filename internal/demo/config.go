package demo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

const (
	TargetPostgres    = "postgres"
	TargetObjectStore = "objectstore"
)

// Config controls the size and destination of a seeded dataset.
type Config struct {
	Target    string
	Customers int
	Products  int
	Orders    int
	Days      int
	Seed      int64
	Truncate  bool
}

func DefaultConfig() Config {
	return Config{
		Target:    TargetPostgres,
		Customers: 200,
		Products:  40,
		Orders:    2500,
		Days:      365,
		Seed:      time.Now().UTC().UnixNano(),
		Truncate:  true,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	steps := []error{
		applyString(lookup, "DATASPEAK_SEED_TARGET", &cfg.Target),
		applyInt(lookup, "DATASPEAK_SEED_CUSTOMERS", &cfg.Customers),
		applyInt(lookup, "DATASPEAK_SEED_PRODUCTS", &cfg.Products),
		applyInt(lookup, "DATASPEAK_SEED_ORDERS", &cfg.Orders),
		applyInt(lookup, "DATASPEAK_SEED_DAYS", &cfg.Days),
		applyInt64(lookup, "DATASPEAK_SEED_SEED", &cfg.Seed),
		applyBool(lookup, "DATASPEAK_SEED_TRUNCATE", &cfg.Truncate),
	}
	for _, err := range steps {
		if err != nil {
			return Config{}, err
		}
	}

	cfg.Target = strings.ToLower(cfg.Target)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Target {
	case TargetPostgres, TargetObjectStore:
	default:
		return fmt.Errorf("DATASPEAK_SEED_TARGET must be %s or %s", TargetPostgres, TargetObjectStore)
	}
	if c.Customers <= 0 {
		return fmt.Errorf("DATASPEAK_SEED_CUSTOMERS must be > 0")
	}
	if c.Products <= 0 {
		return fmt.Errorf("DATASPEAK_SEED_PRODUCTS must be > 0")
	}
	if c.Orders <= 0 {
		return fmt.Errorf("DATASPEAK_SEED_ORDERS must be > 0")
	}
	if c.Days <= 0 {
		return fmt.Errorf("DATASPEAK_SEED_DAYS must be > 0")
	}
	return nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
