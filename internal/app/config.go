package app

import (
	"net/url"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/catalog-browser/internal/domain/fetch"
	"github.com/xenking/catalog-browser/internal/source"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CATALOG_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Source    SourceConfig
	Fetch     FetchConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// SourceConfig selects where the catalog is read from.
type SourceConfig struct {
	URL     string        `default:"https://dummyjson.com/products" usage:"Remote catalog URL"`
	File    string        `default:"" usage:"Read the catalog from a snapshot file instead of URL (.json or .json.gz)"`
	Timeout time.Duration `default:"10s" usage:"Remote catalog request timeout"`
}

// FetchConfig controls how fetch results are applied.
type FetchConfig struct {
	DiscardStale bool `default:"true" usage:"Drop responses superseded by a newer reload" flag:"discard-stale"`
}

// RateLimitConfig controls the per-client sliding window limiter on reload.
type RateLimitConfig struct {
	Max    int           `default:"10" usage:"Max reload requests per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "CATALOG",
		Files:     []string{"config.yaml", "/etc/catalog-browser/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the PORT variable set by hosting platforms
// (Railway, Render, etc.) onto Addr unless Addr was changed explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Source.File == "" {
		u, err := url.Parse(c.Source.URL)
		if err != nil {
			return errors.Wrap(err, "source url")
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Errorf("source url %q must be an absolute http(s) URL", c.Source.URL)
		}
	}
	if c.Source.Timeout <= 0 {
		return errors.New("source timeout must be positive")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// NewSource builds the configured catalog source.
func (c *Config) NewSource(httpCfg source.HTTPConfig) fetch.Source {
	if c.Source.File != "" {
		return source.NewFileSource(c.Source.File)
	}
	httpCfg.URL = c.Source.URL
	httpCfg.Timeout = c.Source.Timeout
	return source.NewHTTPSource(httpCfg)
}
