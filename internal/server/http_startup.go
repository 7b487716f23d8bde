package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pmtailor/internal/config"
	"pmtailor/internal/observability"
)

const shutdownGracePeriod = 30 * time.Second

// Start brings up observability, TLS, and the HTTP listener, then blocks
// until a shutdown signal or a listener error.
func (s *Server) Start() error {
	om, err := observability.NewFromAppConfig(s.AppConfig, s.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			s.Logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      om.HTTPMiddleware()(s.setupRoutes(om)),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	vault, err := s.vaultSecretReader()
	if err != nil {
		return err
	}

	if err := s.configureTLS(httpServer, vault, om); err != nil {
		return err
	}

	s.printStartupBanner()

	return s.run(httpServer)
}

// vaultSecretReader builds a Vault client when the certificate reloader
// is configured to poll Vault, and nothing otherwise.
func (s *Server) vaultSecretReader() (secretReader, error) {
	if !s.TLSConfig.AutoReload.VaultWatcher.Enabled {
		return nil, nil
	}
	vc, err := config.NewVaultClient(s.AppConfig.Vault, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Vault client: %w", err)
	}
	if vc == nil {
		// Vault integration disabled in config; the reloader falls back
		// to file watching only.
		return nil, nil
	}
	return vc, nil
}

// run starts the listener and waits for SIGINT/SIGTERM or a listener
// error, then drains in-flight requests before returning.
func (s *Server) run(server *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// The certificate material is already wired into the TLS
			// config, so the file arguments stay empty.
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal", "signal", sig.String())
	}

	if s.certs != nil {
		s.certs.close()
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Graceful shutdown failed, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed")
	return nil
}

// printStartupBanner summarizes the security posture on stdout.
func (s *Server) printStartupBanner() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health    - Health check")
	fmt.Println("  GET  /stats     - Server statistics")
	fmt.Println("  POST /tailor    - Tailor resume (requires API key)")
	fmt.Println("  POST /analyze   - Analyze job description (requires API key)")

	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: enabled (%d keys)\n", len(s.APIKeys))
	} else {
		fmt.Println("WARNING: no API keys configured, /tailor and /analyze are open")
	}

	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes\n", s.MaxRequestSize)
	} else {
		fmt.Println("WARNING: no request size limit configured")
	}

	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: %d requests/min, burst %d\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Println("WARNING: rate limiting disabled")
	}

	if s.TLSConfig.AutoReload.Enabled && s.TLSConfig.Mode != "disabled" {
		fmt.Println("TLS certificate auto-reload: enabled")
	}
}
