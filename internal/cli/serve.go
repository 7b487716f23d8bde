package cli

import (
	"fmt"

	"pmtailor/internal/config"
	"pmtailor/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for resume tailoring and job analysis",
	Long: `Start an HTTP server exposing the tailoring engine as a REST API.

Endpoints:
- POST /tailor: Tailor a resume profile for a job description
- POST /analyze: Analyze a job description for PM keywords and requirements
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS flags (--tls-mode, --cert-file, --key-file, --ca-file) override the
corresponding config file values.`,
	RunE: runServe,
}

// Flags the serve command binds straight onto viper config keys.
var serveFlags = []struct {
	configKey string
	flag      string
}{
	{"server.port", "port"},
	{"server.host", "host"},
	{"server.tls.mode", "tls-mode"},
	{"server.tls.certfile", "cert-file"},
	{"server.tls.keyfile", "key-file"},
	{"server.tls.cafile", "ca-file"},
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")

	for _, b := range serveFlags {
		if err := viper.BindPFlag(b.configKey, serveCmd.Flags().Lookup(b.flag)); err != nil {
			panic(err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	// Vault-held secrets (API keys, TLS material) win over config values.
	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to apply vault secrets: %w", err)
	}

	// TLS validation happens after flag overrides and Vault overlays so
	// it sees the effective values.
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: int64(cfg.App.MaxFileSize),
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, logger).Start()
}
