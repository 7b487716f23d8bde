package server

import (
	"time"

	"pmtailor/internal/config"
	"pmtailor/internal/engine"
	pmtailorErrors "pmtailor/internal/errors"
	"pmtailor/internal/types"
)

// TailorRequest is the POST /tailor body.
type TailorRequest struct {
	Profile        types.Profile `json:"profile"`
	JobDescription string        `json:"jobDescription"`
}

// AnalyzeRequest is the POST /analyze body.
type AnalyzeRequest struct {
	JobDescription string `json:"jobDescription"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server carries everything the HTTP endpoints need: the tailoring
// engine, auth and rate-limit state, TLS settings, and the certificate
// reloader once configureTLS has started it.
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config
	Engine    *engine.Engine
	Logger    *pmtailorErrors.Logger

	TLSConfig config.TLSConfig
	certs     *certReloader

	// Accepted API keys, keyed for O(1) lookup. Empty means open access.
	APIKeys map[string]bool

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter
}

// ServerConfig bundles the NewServer parameters.
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer assembles a Server. The engine is constructed here so every
// handler shares one vocabulary.
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *pmtailorErrors.Logger) *Server {
	apiKeys := make(map[string]bool, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeys[key] = true
		}
	}

	var limiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		limiter = NewRateLimiter(cfg.RateLimit, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		Engine:         engine.New(appCfg.Engine, logger),
		Logger:         logger,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeys,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    limiter,
	}
}
