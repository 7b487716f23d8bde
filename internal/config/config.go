package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of the application configuration tree.
//
// Secrets resolve in precedence order: Vault (when configured), then
// the config file, then PMTAILOR_* environment variables, then
// defaults.
type Config struct {
	Engine        EngineConfig        `mapstructure:"engine"`
	Fetch         FetchConfig         `mapstructure:"fetch"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// EngineConfig holds tailoring engine configuration
type EngineConfig struct {
	MinRelevanceScore  float64 `mapstructure:"minRelevanceScore"`  // Minimum score to keep an experience
	MaxExperiences     int     `mapstructure:"maxExperiences"`     // Maximum experiences in the output
	MaxSkills          int     `mapstructure:"maxSkills"`          // Maximum skills in the output
	MaxSummaryKeywords int     `mapstructure:"maxSummaryKeywords"` // Maximum terms appended to the summary
	TitleBonus         float64 `mapstructure:"titleBonus"`         // Bonus for PM-role titles
	ExactSkillBonus    float64 `mapstructure:"exactSkillBonus"`    // Bonus per exact skill match

	// Custom vocabulary extensions: category name -> weight / terms
	CategoryWeights map[string]float64  `mapstructure:"categoryWeights"`
	CustomKeywords  map[string][]string `mapstructure:"customKeywords"`
}

// FetchConfig holds remote job-description fetcher configuration
type FetchConfig struct {
	Timeout        time.Duration        `mapstructure:"timeout"`     // HTTP request timeout
	UserAgent      string               `mapstructure:"userAgent"`   // User-Agent header
	MaxBodySize    int64                `mapstructure:"maxBodySize"` // Response body size cap in bytes
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ServerConfig configures the HTTP API server: listen address,
// connection timeouts, TLS, authentication, and rate limiting.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS       TLSConfig       `mapstructure:"tls"`
	APIKeys   []string        `mapstructure:"apiKeys"` // empty means open access
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig describes how the server terminates TLS. Certificate
// material comes either from PEM files or from inline content (the
// content fields are what Vault secrets populate); content wins when
// both are set.
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // "disabled", "server", or "mutual"
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"` // client CA, required for mutual mode

	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string   `mapstructure:"minVersion"` // "1.2" or "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // "require", "request", or "verify"

	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"` // dev only
	ServerName         string `mapstructure:"serverName"`

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig enables hot certificate rotation without a restart,
// from file changes, Vault version advances, or both.
type AutoReloadConfig struct {
	Enabled      bool               `mapstructure:"enabled"`
	FileWatcher  FileWatcherConfig  `mapstructure:"fileWatcher"`
	VaultWatcher VaultWatcherConfig `mapstructure:"vaultWatcher"`
}

// FileWatcherConfig tunes filesystem-based certificate watching.
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"` // coalesces bursts of change events
}

// VaultWatcherConfig tunes Vault-based certificate polling.
type VaultWatcherConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	SecretPath   string        `mapstructure:"secretPath"`
}

// RateLimitConfig configures the per-client token bucket limiter.
// ByIP and ByAPIKey select the bucketing key; when both are set the
// API key takes precedence for authenticated requests.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"`
}

// AppConfig holds settings shared by every command: logging and the
// output formatting layer.
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig configures OpenTelemetry tracing and metrics and
// their exporters.
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// TracingConfig toggles span export and sampling.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig toggles metric export and its collection cadence.
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig routes telemetry to stdout for local development.
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig gates the application-level instruments
// individually so operators can trim telemetry volume.
type CustomMetricsConfig struct {
	EngineOperations EngineOperationsMetricsConfig `mapstructure:"engineOperations"`
	BusinessMetrics  BusinessMetricsConfig         `mapstructure:"businessMetrics"`
	Infrastructure   InfrastructureMetricsConfig   `mapstructure:"infrastructure"`
}

// EngineOperationsMetricsConfig gates tailoring-engine instruments.
type EngineOperationsMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackMatches  bool `mapstructure:"trackMatches"`
}

// BusinessMetricsConfig gates outcome counters (resumes tailored,
// jobs analyzed).
type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackContentSizes bool `mapstructure:"trackContentSizes"`
}

// InfrastructureMetricsConfig gates rate-limit and certificate
// instruments.
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackCertExpiry bool `mapstructure:"trackCertExpiry"`
}

// PrometheusConfig configures the standalone Prometheus scrape
// endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig configures the OTLP/HTTP exporters.
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig builds the effective configuration from defaults, an
// optional config file, and PMTAILOR_* environment variables, then
// validates it. Progress is logged so a misconfigured deployment can be
// traced from the startup output alone.
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PMTAILOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/pmtailor/")
	v.AddConfigPath("$HOME/.pmtailor")
	v.AddConfigPath(".")

	configFileUsed := ""
	switch err := v.ReadInConfig(); err.(type) {
	case nil:
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	case viper.ConfigFileNotFoundError:
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks the configuration for values that would make the
// engine, server, or output layer misbehave at runtime.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}
	return nil
}

// validateEngine checks the tailoring engine bounds
func (c *Config) validateEngine() error {
	if c.Engine.MinRelevanceScore < 0 {
		return fmt.Errorf("engine minRelevanceScore must be >= 0, got %g", c.Engine.MinRelevanceScore)
	}
	if c.Engine.MaxExperiences < 1 {
		return fmt.Errorf("engine maxExperiences must be >= 1, got %d", c.Engine.MaxExperiences)
	}
	if c.Engine.MaxSkills < 1 {
		return fmt.Errorf("engine maxSkills must be >= 1, got %d", c.Engine.MaxSkills)
	}
	if c.Engine.MaxSummaryKeywords < 0 {
		return fmt.Errorf("engine maxSummaryKeywords must be >= 0, got %d", c.Engine.MaxSummaryKeywords)
	}
	for name, weight := range c.Engine.CategoryWeights {
		if weight < 0 {
			return fmt.Errorf("engine categoryWeights[%s] must be >= 0, got %g", name, weight)
		}
	}
	return nil
}
