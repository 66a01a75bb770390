package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

const (
	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultEnvironment    = "local"
	defaultTemplatesDir   = "templates"
	defaultContentDir     = "content"
	defaultLang           = "en"
	defaultCatalogPath    = "data/items.json"
	defaultCatalogTimeout = 5 * time.Second
	defaultSubmitTimeout  = 10 * time.Second
	defaultMinimumAmount  = 1000
	defaultCurrency       = "XAF"
	defaultLogLevel       = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment  string
	LogLevel     string
	Server       ServerConfig
	Site         SiteConfig
	Catalog      CatalogConfig
	Contribution ContributionConfig
	Session      SessionConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SiteConfig controls page rendering.
type SiteConfig struct {
	DevMode      bool
	TemplatesDir string
	ContentDir   string
	DefaultLang  string
}

// CatalogConfig locates the item catalog document. URL wins over Path when both are set.
type CatalogConfig struct {
	URL     string
	Path    string
	Timeout time.Duration
}

// ContributionConfig holds the external endpoints and limits of the contribution flow.
type ContributionConfig struct {
	// Endpoint receives the drafted contribution. Empty means dry-run.
	Endpoint      string
	PaymentURL    string
	SubmitTimeout time.Duration
	MinimumAmount int64
	Currency      string
}

// SessionConfig carries the cookie keys. Empty keys are replaced by ephemeral ones at start-up.
type SessionConfig struct {
	HashKey  string
	BlockKey string
}

// Secure reports whether cookies should carry the Secure attribute.
func (c Config) Secure() bool { return c.Environment == "prod" }

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence over system
// environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, the .env file, the process environment and
// explicit overrides, in increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	port := stringWithDefault(lookup, "REGISTRY_SERVER_PORT", "")
	if port == "" {
		port = stringWithDefault(lookup, "PORT", defaultPort)
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "REGISTRY_ENV", defaultEnvironment)),
		LogLevel:    stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
		Server: ServerConfig{
			Port:         port,
			ReadTimeout:  durationWithDefault(lookup, "REGISTRY_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "REGISTRY_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "REGISTRY_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Site: SiteConfig{
			DevMode:      boolWithDefault(lookup, "REGISTRY_DEV", false),
			TemplatesDir: stringWithDefault(lookup, "REGISTRY_TEMPLATES_DIR", defaultTemplatesDir),
			ContentDir:   stringWithDefault(lookup, "REGISTRY_CONTENT_DIR", defaultContentDir),
			DefaultLang:  strings.ToLower(stringWithDefault(lookup, "REGISTRY_DEFAULT_LANG", defaultLang)),
		},
		Catalog: CatalogConfig{
			URL:     strings.TrimSpace(stringWithDefault(lookup, "REGISTRY_CATALOG_URL", "")),
			Path:    stringWithDefault(lookup, "REGISTRY_CATALOG_PATH", defaultCatalogPath),
			Timeout: durationWithDefault(lookup, "REGISTRY_CATALOG_TIMEOUT", defaultCatalogTimeout),
		},
		Contribution: ContributionConfig{
			Endpoint:      strings.TrimSpace(stringWithDefault(lookup, "REGISTRY_CONTRIBUTION_ENDPOINT", "")),
			PaymentURL:    strings.TrimSpace(stringWithDefault(lookup, "REGISTRY_PAYMENT_URL", "")),
			SubmitTimeout: durationWithDefault(lookup, "REGISTRY_SUBMIT_TIMEOUT", defaultSubmitTimeout),
			MinimumAmount: int64WithDefault(lookup, "REGISTRY_MIN_CONTRIBUTION", defaultMinimumAmount),
			Currency:      strings.ToUpper(stringWithDefault(lookup, "REGISTRY_CURRENCY", defaultCurrency)),
		},
		Session: SessionConfig{
			HashKey:  stringWithDefault(lookup, "REGISTRY_SESSION_HASH_KEY", ""),
			BlockKey: stringWithDefault(lookup, "REGISTRY_SESSION_BLOCK_KEY", ""),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		invalid = append(invalid, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		invalid = append(invalid, "Server.WriteTimeout")
	}
	if _, err := language.Parse(cfg.Site.DefaultLang); err != nil {
		invalid = append(invalid, "Site.DefaultLang")
	}
	if cfg.Catalog.URL == "" && strings.TrimSpace(cfg.Catalog.Path) == "" {
		invalid = append(invalid, "Catalog.Path")
	}
	if cfg.Catalog.URL != "" && !isAbsoluteURL(cfg.Catalog.URL) {
		invalid = append(invalid, "Catalog.URL")
	}
	if cfg.Catalog.Timeout <= 0 {
		invalid = append(invalid, "Catalog.Timeout")
	}
	if cfg.Contribution.Endpoint != "" && !isAbsoluteURL(cfg.Contribution.Endpoint) {
		invalid = append(invalid, "Contribution.Endpoint")
	}
	if !validPaymentURL(cfg.Contribution.PaymentURL, cfg.Environment) {
		invalid = append(invalid, "Contribution.PaymentURL")
	}
	if cfg.Contribution.SubmitTimeout <= 0 {
		invalid = append(invalid, "Contribution.SubmitTimeout")
	}
	if cfg.Contribution.MinimumAmount <= 0 {
		invalid = append(invalid, "Contribution.MinimumAmount")
	}
	if _, err := currency.ParseISO(cfg.Contribution.Currency); err != nil {
		invalid = append(invalid, "Contribution.Currency")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

// validPaymentURL accepts an absolute https URL without query or fragment. Plain http is
// tolerated for local development only.
func validPaymentURL(raw, environment string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return false
	}
	switch u.Scheme {
	case "https":
		return true
	case "http":
		return environment == defaultEnvironment
	default:
		return false
	}
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
