package config

import "fmt"

// ValidateTLSConfig checks the server TLS block for missing material and
// contradictory sources before the server tries to use it.
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS

	switch t.MinVersion {
	case "", "1.2", "1.3": // empty defaults to 1.2
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}

	switch t.Mode {
	case "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	if (t.CertFile == "" && t.CertContent == "") || (t.KeyFile == "" && t.KeyContent == "") {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", t.Mode)
	}
	if t.CertFile != "" && t.CertContent != "" {
		return fmt.Errorf("cannot specify both certFile and certContent - choose one")
	}
	if t.KeyFile != "" && t.KeyContent != "" {
		return fmt.Errorf("cannot specify both keyFile and keyContent - choose one")
	}

	if t.Mode != "mutual" {
		return nil
	}

	if t.CAFile == "" && t.CAContent == "" {
		return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}
	if t.CAFile != "" && t.CAContent != "" {
		return fmt.Errorf("cannot specify both caFile and caContent - choose one")
	}

	switch t.ClientAuthPolicy {
	case "", "require", "request", "verify": // empty defaults to require
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", t.ClientAuthPolicy)
	}
}
