package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config captures every setting of the search console.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Service ServiceConfig `yaml:"service"`
	Search  SearchConfig  `yaml:"search"`
	Lookup  LookupConfig  `yaml:"lookup"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
	Labels  LabelsConfig  `yaml:"labels"`
}

// ServerConfig controls the operational HTTP listener. An empty
// MetricsAddress leaves it off.
type ServerConfig struct {
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout" validate:"gte=0"`
}

// ServiceConfig configures access to the record and directory service.
type ServiceConfig struct {
	BaseURL         string        `yaml:"baseURL" validate:"required,url"`
	APIKey          string        `yaml:"apiKey"`
	TenantID        string        `yaml:"tenantId" validate:"required"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	TicketsPath     string        `yaml:"ticketsPath" validate:"required"`
	PurchasesPath   string        `yaml:"purchasesPath" validate:"required"`
	DiagnosticsPath string        `yaml:"diagnosticsPath" validate:"required"`
	CustomersPath   string        `yaml:"customersPath" validate:"required"`
	DevicesPath     string        `yaml:"devicesPath" validate:"required"`
}

// SearchConfig shapes the record window and client-side filtering.
type SearchConfig struct {
	InitialYears   int    `yaml:"initialYears" validate:"gte=1"`
	ExpandYears    int    `yaml:"expandYears" validate:"gtefield=InitialYears"`
	PageSize       int    `yaml:"pageSize" validate:"gte=1,lte=10000"`
	SortBy         string `yaml:"sortBy"`
	SortDescending bool   `yaml:"sortDescending"`
	TextMinLength  int    `yaml:"textMinLength" validate:"gte=0"`
	Timezone       string `yaml:"timezone" validate:"required"`
}

// LookupConfig tunes the directory typeahead.
type LookupConfig struct {
	QuietPeriod time.Duration `yaml:"quietPeriod" validate:"gt=0"`
	Limit       int           `yaml:"limit" validate:"gte=1,lte=100"`
	Policy      string        `yaml:"policy" validate:"omitempty,oneof=latest-issued latest last-completed legacy"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig selects the directory lookup cache backend.
type CacheConfig struct {
	Backend      string        `yaml:"backend" validate:"omitempty,oneof=none memory valkey"`
	Addr         string        `yaml:"addr" validate:"required_if=Backend valkey"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"gte=0"`
	Prefix       string        `yaml:"prefix"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	LookupTTL    time.Duration `yaml:"lookupTTL" validate:"gte=0"`
}

// LabelsConfig overrides display labels keyed by upper-case code.
type LabelsConfig struct {
	Status    map[string]string `yaml:"status"`
	Payment   map[string]string `yaml:"payment"`
	Condition map[string]string `yaml:"condition"`
}

// Load initialises Config from defaults, a YAML file and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REPAIRDESK_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Validate checks struct constraints and that the timezone resolves.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves search.timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Search.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Search.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid search.timezone %q: %w", c.Search.Timezone, err)
	}
	return loc, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			GracefulTimeout: 10 * time.Second,
		},
		Service: ServiceConfig{
			Timeout:         15 * time.Second,
			TicketsPath:     "/api/v1/tickets/search",
			PurchasesPath:   "/api/v1/purchases/search",
			DiagnosticsPath: "/api/v1/diagnostics",
			CustomersPath:   "/api/v1/customers/lookup",
			DevicesPath:     "/api/v1/devices/lookup",
		},
		Search: SearchConfig{
			InitialYears:   1,
			ExpandYears:    3,
			PageSize:       1000,
			SortBy:         "createdAt",
			SortDescending: true,
			TextMinLength:  3,
			Timezone:       "Local",
		},
		Lookup: LookupConfig{
			QuietPeriod: 300 * time.Millisecond,
			Limit:       10,
			Policy:      "latest-issued",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Backend:      "memory",
			Prefix:       "repairdesk",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			LookupTTL:    2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.MetricsAddress, "REPAIRDESK_METRICS_ADDRESS")
	setString(&cfg.Service.BaseURL, "REPAIRDESK_SERVICE_BASE_URL")
	setString(&cfg.Service.APIKey, "REPAIRDESK_SERVICE_API_KEY")
	setString(&cfg.Service.TenantID, "REPAIRDESK_TENANT_ID")
	setDuration(&cfg.Service.Timeout, "REPAIRDESK_SERVICE_TIMEOUT")
	setString(&cfg.Service.TicketsPath, "REPAIRDESK_TICKETS_PATH")
	setString(&cfg.Service.PurchasesPath, "REPAIRDESK_PURCHASES_PATH")
	setString(&cfg.Service.DiagnosticsPath, "REPAIRDESK_DIAGNOSTICS_PATH")
	setString(&cfg.Service.CustomersPath, "REPAIRDESK_CUSTOMERS_PATH")
	setString(&cfg.Service.DevicesPath, "REPAIRDESK_DEVICES_PATH")

	setInt(&cfg.Search.InitialYears, "REPAIRDESK_SEARCH_INITIAL_YEARS")
	setInt(&cfg.Search.ExpandYears, "REPAIRDESK_SEARCH_EXPAND_YEARS")
	setInt(&cfg.Search.PageSize, "REPAIRDESK_SEARCH_PAGE_SIZE")
	setInt(&cfg.Search.TextMinLength, "REPAIRDESK_SEARCH_TEXT_MIN_LENGTH")
	setString(&cfg.Search.Timezone, "REPAIRDESK_TIMEZONE")

	setDuration(&cfg.Lookup.QuietPeriod, "REPAIRDESK_LOOKUP_QUIET_PERIOD")
	setInt(&cfg.Lookup.Limit, "REPAIRDESK_LOOKUP_LIMIT")
	setString(&cfg.Lookup.Policy, "REPAIRDESK_LOOKUP_POLICY")

	setString(&cfg.Logging.Level, "REPAIRDESK_LOG_LEVEL")
	if v := os.Getenv("REPAIRDESK_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}

	setString(&cfg.Cache.Backend, "REPAIRDESK_CACHE_BACKEND")
	setString(&cfg.Cache.Addr, "REPAIRDESK_CACHE_ADDR")
	setString(&cfg.Cache.Username, "REPAIRDESK_CACHE_USERNAME")
	setString(&cfg.Cache.Password, "REPAIRDESK_CACHE_PASSWORD")
	setInt(&cfg.Cache.DB, "REPAIRDESK_CACHE_DB")
	setBool(&cfg.Cache.TLS, "REPAIRDESK_CACHE_TLS")
	setInt(&cfg.Cache.MaxRetries, "REPAIRDESK_CACHE_MAX_RETRIES")
	setDuration(&cfg.Cache.DialTimeout, "REPAIRDESK_CACHE_DIAL_TIMEOUT")
	setDuration(&cfg.Cache.ReadTimeout, "REPAIRDESK_CACHE_READ_TIMEOUT")
	setDuration(&cfg.Cache.WriteTimeout, "REPAIRDESK_CACHE_WRITE_TIMEOUT")
	setDuration(&cfg.Cache.LookupTTL, "REPAIRDESK_CACHE_LOOKUP_TTL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
