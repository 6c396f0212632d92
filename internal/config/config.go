// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// DemoClientID is the public client id of the demo headless store. It is used
// when no client id is configured anywhere else.
const DemoClientID = "0d4ec2cb-0e07-4aa3-8e56-6c5b0b1e7d2f"

// Defaults for optional settings.
const (
	DefaultAllProductsCategory = "all-products"
	DefaultPromotedCategory    = "promotion"
	DefaultPlatformRateLimit   = 10.0
	DefaultSessionTTL          = 4 * time.Hour
)

// Config holds all service configuration.
// Environment determines whether the client id may be read from Secret Manager.
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string

	// Store settings
	Store StoreConfig

	// ClientIDSource records where Store.WixClientID came from:
	// "file", "env", "secret_manager" or "demo".
	ClientIDSource string
}

// StoreConfig contains the storefront's platform settings.
// In production, WixClientID may be loaded from Secret Manager as JSON.
type StoreConfig struct {
	StoreURL            string        `json:"store_url"`
	WixClientID         string        `json:"wix_client_id,omitempty"`
	WixAPIBaseURL       string        `json:"wix_api_base_url,omitempty"`
	AllProductsCategory string        `json:"all_products_category,omitempty"`
	PromotedCategory    string        `json:"promoted_category,omitempty"`
	PlatformRateLimit   float64       `json:"platform_rate_limit,omitempty"` // requests per second, 0 = default
	SessionTTL          time.Duration `json:"-"`
}

// Load reads configuration from file, environment, or Secret Manager.
// The client id is resolved once, in order: CONFIG_FILE, WIX_CLIENT_ID,
// Secret Manager (production only), then DemoClientID.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
	}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if cfg.Store.WixClientID != "" {
		cfg.ClientIDSource = "env"
	} else if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if err := cfg.loadFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading store config: %w", err)
		}
		cfg.ClientIDSource = "secret_manager"
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port        string      `json:"port"`
		Environment string      `json:"environment"`
		LogLevel    string      `json:"log_level"`
		SessionTTL  string      `json:"session_ttl"`
		Store       StoreConfig `json:"store"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		Store:       fileConfig.Store,
	}
	if fileConfig.SessionTTL != "" {
		ttl, err := time.ParseDuration(fileConfig.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid session_ttl: %w", err)
		}
		cfg.Store.SessionTTL = ttl
	}
	if cfg.Store.WixClientID != "" {
		cfg.ClientIDSource = "file"
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/storefront/versions/latest
// Only fields set in the secret override the environment.
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, envOrDefault("SECRET_NAME", "storefront"))

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return c.mergeSecret(result.Payload.Data)
}

// mergeSecret overlays the non-empty fields of a secret payload onto c.Store.
func (c *Config) mergeSecret(data []byte) error {
	var secret StoreConfig
	if err := json.Unmarshal(data, &secret); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	if secret.WixClientID == "" {
		return fmt.Errorf("secret has no wix_client_id")
	}
	c.Store.WixClientID = secret.WixClientID
	if secret.StoreURL != "" {
		c.Store.StoreURL = secret.StoreURL
	}
	if secret.WixAPIBaseURL != "" {
		c.Store.WixAPIBaseURL = secret.WixAPIBaseURL
	}
	return nil
}

// loadFromEnv reads store config from individual environment variables.
func (c *Config) loadFromEnv() error {
	c.Store = StoreConfig{
		StoreURL:            os.Getenv("STORE_URL"),
		WixClientID:         os.Getenv("WIX_CLIENT_ID"),
		WixAPIBaseURL:       os.Getenv("WIX_API_BASE_URL"),
		AllProductsCategory: os.Getenv("ALL_PRODUCTS_CATEGORY"),
		PromotedCategory:    os.Getenv("PROMOTED_CATEGORY"),
	}

	if v := os.Getenv("PLATFORM_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing PLATFORM_RATE_LIMIT: %w", err)
		}
		c.Store.PlatformRateLimit = limit
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing SESSION_TTL: %w", err)
		}
		c.Store.SessionTTL = ttl
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Store.WixClientID == "" {
		c.Store.WixClientID = DemoClientID
		c.ClientIDSource = "demo"
	}
	if c.Store.AllProductsCategory == "" {
		c.Store.AllProductsCategory = DefaultAllProductsCategory
	}
	if c.Store.PromotedCategory == "" {
		c.Store.PromotedCategory = DefaultPromotedCategory
	}
	if c.Store.PlatformRateLimit == 0 {
		c.Store.PlatformRateLimit = DefaultPlatformRateLimit
	}
	if c.Store.SessionTTL == 0 {
		c.Store.SessionTTL = DefaultSessionTTL
	}
	if c.Store.StoreURL == "" {
		c.Store.StoreURL = fmt.Sprintf("http://localhost:%s", c.Port)
	}
	c.Store.StoreURL = strings.TrimSuffix(c.Store.StoreURL, "/")
}

// validate checks that all configuration fields are well-formed.
func (c *Config) validate() error {
	u, err := url.Parse(c.Store.StoreURL)
	if err != nil {
		return fmt.Errorf("invalid store_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid store_url: %q is not absolute", c.Store.StoreURL)
	}
	if c.Store.WixAPIBaseURL != "" {
		if _, err := url.Parse(c.Store.WixAPIBaseURL); err != nil {
			return fmt.Errorf("invalid wix_api_base_url: %w", err)
		}
	}
	if c.Store.PlatformRateLimit < 0 {
		return fmt.Errorf("platform_rate_limit must not be negative")
	}
	if c.Store.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must not be negative")
	}
	return nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
