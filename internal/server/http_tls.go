package server

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"pmtailor/internal/observability"
)

// configureTLS assembles the tls.Config for the configured mode and
// attaches it to httpServer. With auto-reload enabled the certificate
// reloader owns the material; otherwise the keypair is loaded once.
func (s *Server) configureTLS(httpServer *http.Server, vault secretReader, om *observability.ObservabilityManager) error {
	switch s.TLSConfig.Mode {
	case "disabled":
		fmt.Printf("Starting server on http://%s (TLS disabled)\n", httpServer.Addr)
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	fmt.Printf("Starting server on https://%s (TLS mode: %s)\n", httpServer.Addr, s.TLSConfig.Mode)

	tlsConfig := &tls.Config{
		MinVersion:   minTLSVersion(s.TLSConfig.MinVersion),
		CipherSuites: cipherSuiteIDs(s.TLSConfig.CipherSuites),
	}
	if s.TLSConfig.ServerName != "" {
		tlsConfig.ServerName = s.TLSConfig.ServerName
	}
	if s.TLSConfig.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
		fmt.Println("WARNING: TLS certificate verification is disabled (insecureSkipVerify=true)")
	}

	if s.TLSConfig.AutoReload.Enabled {
		reloader := newCertReloader(&s.TLSConfig, vault, om, s.Logger)
		if err := reloader.start(); err != nil {
			return fmt.Errorf("start certificate reloader: %w", err)
		}
		s.certs = reloader

		tlsConfig.GetCertificate = reloader.getCertificate
		if s.TLSConfig.Mode == "mutual" {
			// RequireAnyClientCert delegates chain verification to the
			// reloader so the CA pool can rotate at runtime.
			tlsConfig.ClientAuth = tls.RequireAnyClientCert
			tlsConfig.VerifyPeerCertificate = reloader.verifyPeer
		}
	} else {
		kp, err := loadKeypair(&s.TLSConfig)
		if err != nil {
			return err
		}
		tlsConfig.Certificates = []tls.Certificate{kp.cert}
		if s.TLSConfig.Mode == "mutual" {
			tlsConfig.ClientCAs = kp.clientCA
			tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
		}
	}

	httpServer.TLSConfig = tlsConfig
	return nil
}

func minTLSVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// cipherSuiteIDs resolves configured suite names against the suites the
// runtime actually implements. Unknown names are skipped.
func cipherSuiteIDs(names []string) []uint16 {
	if len(names) == 0 {
		return nil // Go picks its own defaults
	}

	byName := make(map[string]uint16)
	for _, cs := range tls.CipherSuites() {
		byName[cs.Name] = cs.ID
	}

	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
