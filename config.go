// config.go
// ----------
// This file defines Config, the settings a Client is built from, and the
// FamilySearch environments it can target. A Client copies its Config at
// construction time; nothing changes it afterwards.
//
// Retry settings (MaxRetries, BaseBackoff, MaxBackoff, ThrottleFallbackDelay,
// MaxThrottleDelay) drive the RequestExecutor. A zero MaxRetries means the
// default of 3; NoRetries turns retrying off. ConfigFromEnv reads the same settings from FS_*
// environment variables.
package fsbridge

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Environment selects which FamilySearch deployment requests go to.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentBeta       Environment = "beta"
	EnvironmentProduction Environment = "production"
)

const (
	DefaultMaxRetries            = 3
	DefaultBaseBackoff           = time.Second
	DefaultMaxBackoff            = 30 * time.Second
	DefaultThrottleFallbackDelay = time.Second
	DefaultMaxThrottleDelay      = 5 * time.Minute
	DefaultUserAgent             = "familysearch-bridge"
)

// NoRetries as Config.MaxRetries sends every request exactly once, throttled
// ones included.
const NoRetries = -1

// Endpoints are the base URLs of one environment.
type Endpoints struct {
	Platform string // REST API root
	Identity string // OAuth2 root (authorization and token endpoints live below it)
}

var environmentEndpoints = map[Environment]Endpoints{
	EnvironmentSandbox: {
		Platform: "https://api-integ.familysearch.org",
		Identity: "https://identint.familysearch.org/cis-web/oauth2/v3",
	},
	EnvironmentBeta: {
		Platform: "https://apibeta.familysearch.org",
		Identity: "https://identbeta.familysearch.org/cis-web/oauth2/v3",
	},
	EnvironmentProduction: {
		Platform: "https://api.familysearch.org",
		Identity: "https://ident.familysearch.org/cis-web/oauth2/v3",
	},
}

// Endpoints returns the base URLs for e. The bool is false for unknown
// environments.
func (e Environment) Endpoints() (Endpoints, bool) {
	ep, ok := environmentEndpoints[e]
	return ep, ok
}

// ParseEnvironment accepts the environment names plus the "integration" alias
// used by FamilySearch documentation.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sandbox", "integration", "integ":
		return EnvironmentSandbox, nil
	case "beta", "staging":
		return EnvironmentBeta, nil
	case "production", "prod":
		return EnvironmentProduction, nil
	}
	return "", fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, s)
}

// Config holds everything a Client needs.
type Config struct {
	AppKey          string
	Environment     Environment
	AuthCallbackURI string

	// Transport performs the HTTP calls. Required.
	Transport Transport

	// PlatformURL overrides the environment's REST API root, e.g. for a proxy.
	PlatformURL string

	// AccessToken is an optional initial token, e.g. one cached by the caller.
	AccessToken string

	MaxRetries            int           // Max number of retries per logical call, 0 for the default, NoRetries for none
	BaseBackoff           time.Duration // Initial backoff duration for exponential backoff
	MaxBackoff            time.Duration // Cap for a single backoff step
	Jitter                float64       // Randomization factor for backoff, 0 disables
	ThrottleFallbackDelay time.Duration // Minimum wait after a 429 without Retry-After
	MaxThrottleDelay      time.Duration // Cap on a server-requested Retry-After wait

	UserAgent string

	Logger            *logrus.Logger
	MetricsRegisterer prometheus.Registerer

	// Registry lets several clients share one set of accessors. When nil the
	// client gets its own registry with the built-in resource accessors.
	Registry *Registry
}

// DefaultConfig returns a sandbox configuration with default retry settings.
// AppKey and Transport still have to be set.
func DefaultConfig() Config {
	return Config{
		Environment:           EnvironmentSandbox,
		MaxRetries:            DefaultMaxRetries,
		BaseBackoff:           DefaultBaseBackoff,
		MaxBackoff:            DefaultMaxBackoff,
		ThrottleFallbackDelay: DefaultThrottleFallbackDelay,
		MaxThrottleDelay:      DefaultMaxThrottleDelay,
		UserAgent:             DefaultUserAgent,
	}
}

// ConfigFromEnv builds a Config from FS_* environment variables on top of
// DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	cfg.AppKey = os.Getenv("FS_APP_KEY")
	cfg.AuthCallbackURI = os.Getenv("FS_AUTH_CALLBACK_URI")
	cfg.AccessToken = os.Getenv("FS_ACCESS_TOKEN")
	cfg.PlatformURL = os.Getenv("FS_PLATFORM_URL")

	if v := os.Getenv("FS_ENVIRONMENT"); v != "" {
		env, err := ParseEnvironment(v)
		if err != nil {
			return cfg, err
		}
		cfg.Environment = env
	}
	cfg.MaxRetries = getEnvAsInt("FS_MAX_RETRIES", cfg.MaxRetries)
	cfg.BaseBackoff = getEnvAsDuration("FS_BASE_BACKOFF", cfg.BaseBackoff)

	if v := os.Getenv("FS_LOG_LEVEL"); v != "" {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			level = logrus.InfoLevel
		}
		cfg.Logger = logrus.New()
		cfg.Logger.SetLevel(level)
	}
	return cfg, nil
}

// Validate reports configuration that cannot produce a working client.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AppKey) == "" {
		return fmt.Errorf("%w: app key is required", ErrInvalidConfig)
	}
	if _, ok := c.Environment.Endpoints(); !ok {
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, c.Environment)
	}
	if c.Transport == nil {
		return fmt.Errorf("%w: transport is required", ErrInvalidConfig)
	}
	if c.MaxRetries < NoRetries {
		return fmt.Errorf("%w: max retries must be NoRetries or more", ErrInvalidConfig)
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return fmt.Errorf("%w: jitter must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

// withDefaults fills zero values and the logger.
func (c Config) withDefaults() Config {
	if c.Environment == "" {
		c.Environment = EnvironmentSandbox
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseBackoff == 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.MaxBackoff < c.BaseBackoff {
		c.MaxBackoff = c.BaseBackoff
	}
	if c.ThrottleFallbackDelay == 0 {
		c.ThrottleFallbackDelay = DefaultThrottleFallbackDelay
	}
	if c.MaxThrottleDelay == 0 {
		c.MaxThrottleDelay = DefaultMaxThrottleDelay
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
		c.Logger.SetLevel(logrus.InfoLevel)
	}
	return c
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
