package config

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Load builds the configuration from environment variables, falling back to
// the defaults declared on Config, and validates it.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := decodeEnv(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// decodeEnv fills every field tagged `env` in v and its section structs. An
// unset or empty variable falls back to the field's `default` tag.
func decodeEnv(v reflect.Value, getenv func(string) string) error {
	for i := 0; i < v.NumField(); i++ {
		field, fv := v.Type().Field(i), v.Field(i)
		if field.Type.Kind() == reflect.Struct {
			if err := decodeEnv(fv, getenv); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		raw := getenv(name)
		if raw == "" {
			raw = field.Tag.Get("default")
		}
		if raw == "" {
			continue
		}
		if err := parseInto(fv, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, raw, err)
		}
	}
	return nil
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	listType     = reflect.TypeOf([]string(nil))
)

// parseInto stores raw in fv. Only the field types Config declares are
// supported.
func parseInto(fv reflect.Value, raw string) error {
	switch {
	case fv.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		fv.SetInt(int64(d))
	case fv.Type() == listType:
		fv.Set(reflect.ValueOf(splitList(raw)))
	case fv.Kind() == reflect.String:
		fv.SetString(raw)
	case fv.Kind() == reflect.Int, fv.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		fv.SetInt(n)
	case fv.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

// splitList parses a comma-separated variable, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once, named by its variable.
func (c *Config) Validate() error {
	var errs []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	db := c.Database
	check(db.MaxConns > 0, "DB_MAX_CONNS must be positive")
	check(db.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
	check(db.MaxConns >= db.MinConns, "DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", db.MaxConns, db.MinConns)

	srv := c.Server
	check(srv.Port > 0 && srv.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", srv.Port)
	check(srv.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(srv.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	imp := c.Import
	check(imp.MaxFileSize > 0, "IMPORT_MAX_FILE_SIZE must be positive")
	check(imp.MaxRows > 0, "IMPORT_MAX_ROWS must be positive")
	check(imp.PreviewSamples >= 0, "IMPORT_PREVIEW_SAMPLES must be non-negative")
	check(imp.MaxConcurrent > 0, "IMPORT_MAX_CONCURRENT must be positive")
	check(imp.MaxWaitTime > 0, "IMPORT_MAX_WAIT_TIME must be positive")

	check(c.Export.FreezeColumns >= 1, "EXPORT_FREEZE_COLUMNS must be at least 1")

	check(!c.Rate.Enabled || c.Rate.RequestsPerMinute > 0,
		"RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	check(!c.Security.RequireAPIKey || len(c.Security.APIKeys) > 0,
		"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")

	check(slices.Contains(logLevels, strings.ToLower(c.Logging.Level)),
		"LOG_LEVEL (%q) must be one of: %s", c.Logging.Level, strings.Join(logLevels, ", "))
	check(slices.Contains(logFormats, strings.ToLower(c.Logging.Format)),
		"LOG_FORMAT (%q) must be one of: %s", c.Logging.Format, strings.Join(logFormats, ", "))

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RequireDatabase reports an error when no connection string is configured.
// The server calls it after Load; the CLI runs against in-memory data.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("required environment variable DATABASE_URL is not set")
	}
	return nil
}

// String renders the config for startup logs with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config{Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		maskIfSet(c.Database.URL), c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxRows: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxRows, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Export: {FreezeColumns: %d, SheetPassword: %s}, ",
		c.Export.FreezeColumns, maskIfSet(c.Export.SheetPassword))
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d, TrustedProxies: %d}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys), len(c.Security.TrustedProxies))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}}", c.Logging.Level, c.Logging.Format)
	return b.String()
}

func maskIfSet(s string) string {
	if s == "" {
		return `""`
	}
	return "[MASKED]"
}
