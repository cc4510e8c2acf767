package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

const (
	TaxonomyStatic = "static"
	TaxonomyStore  = "store"
)

// Config is everything the API and the CLI read from the environment.
type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	InfosimplesURL     string
	InfosimplesToken   string
	ProviderTimeout    int
	RetryAttempts      int
	RetryDelays        []time.Duration
	TaxonomySource     string
	CompareInterval    time.Duration
	DictionaryInterval time.Duration

	RedisAddr    string
	CardCacheTTL time.Duration

	S3Bucket string
	S3Region string

	JWTSecret     string
	SnowflakeNode int64
	LogLevel      log.Lvl
}

// Load reads the configuration. Missing values fall back to defaults;
// malformed ones are errors.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:       str("HTTP_ADDR", ":7070"),
		DBDriver:       str("DB_DRIVER", "sqlite"),
		DBDSN:          str("DB_DSN", ""),
		InfosimplesURL: str("INFOSIMPLES_URL", ""),
		// the token is only required by commands that reach the provider
		InfosimplesToken: str("INFOSIMPLES_TOKEN", ""),
		TaxonomySource:   strings.ToLower(str("TAXONOMY_SOURCE", TaxonomyStatic)),
		RedisAddr:        str("REDIS_ADDR", ""),
		S3Bucket:         str("S3_BUCKET_NAME", ""),
		S3Region:         str("AWS_S3_REGION", "us-east-2"),
		JWTSecret:        str("API_JWT_SECRET", ""),
	}

	var err error
	if cfg.ProviderTimeout, err = integer("INFOSIMPLES_TIMEOUT_SECONDS", 600); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = integer("PROVIDER_RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RetryDelays, err = millisList("PROVIDER_RETRY_DELAYS_MS", []time.Duration{
		1500 * time.Millisecond, 3000 * time.Millisecond, 5000 * time.Millisecond,
	}); err != nil {
		return nil, err
	}

	compareMs, err := integer("COMPARE_INTERVAL_MS", 600)
	if err != nil {
		return nil, err
	}
	cfg.CompareInterval = time.Duration(compareMs) * time.Millisecond

	ttl, err := integer("CARD_CACHE_TTL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	cfg.CardCacheTTL = time.Duration(ttl) * time.Minute

	reload, err := integer("DICTIONARY_RELOAD_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	cfg.DictionaryInterval = time.Duration(reload) * time.Minute

	node, err := integer("SNOWFLAKE_NODE", 1)
	if err != nil {
		return nil, err
	}
	cfg.SnowflakeNode = int64(node)

	if cfg.LogLevel, err = logLevel(str("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	switch cfg.TaxonomySource {
	case TaxonomyStatic, TaxonomyStore:
	default:
		return nil, fmt.Errorf("TAXONOMY_SOURCE must be %q or %q, got %q", TaxonomyStatic, TaxonomyStore, cfg.TaxonomySource)
	}

	if cfg.RetryAttempts < 1 {
		return nil, fmt.Errorf("PROVIDER_RETRY_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

// millisList parses a comma separated list of milliseconds, e.g. "1500,3000,5000".
func millisList(key string, def []time.Duration) ([]time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	var out []time.Duration
	for _, part := range strings.Split(v, ",") {
		ms, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("%s: invalid delay %q", key, part)
		}
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out, nil
}

func logLevel(s string) (log.Lvl, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG, nil
	case "info":
		return log.INFO, nil
	case "warn":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL: unknown level %q", s)
	}
}
