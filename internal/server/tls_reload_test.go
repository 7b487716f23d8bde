package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmtailor/internal/config"
	"pmtailor/internal/errors"
)

// generateTestCert builds a self-signed certificate and returns PEM-encoded
// cert and key material.
func generateTestCert(t *testing.T, commonName string, notAfter time.Time) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return string(certPEM), string(keyPEM)
}

func TestLoadKeypairFromContent(t *testing.T) {
	notAfter := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	certPEM, keyPEM := generateTestCert(t, "pmtailor-server", notAfter)

	kp, err := loadKeypair(&config.TLSConfig{
		Mode:        "server",
		CertContent: certPEM,
		KeyContent:  keyPEM,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, notAfter, kp.expiry, time.Second)
	assert.Nil(t, kp.clientCA, "server mode does not build a client CA pool")
}

func TestLoadKeypairContentWinsOverFiles(t *testing.T) {
	certPEM, keyPEM := generateTestCert(t, "pmtailor-server", time.Now().Add(time.Hour))

	// The file paths do not exist; content should be used without
	// touching them.
	kp, err := loadKeypair(&config.TLSConfig{
		Mode:        "server",
		CertFile:    "/nonexistent/server.crt",
		KeyFile:     "/nonexistent/server.key",
		CertContent: certPEM,
		KeyContent:  keyPEM,
	})
	require.NoError(t, err)
	assert.NotNil(t, kp)
}

func TestLoadKeypairRequiresMaterial(t *testing.T) {
	_, err := loadKeypair(&config.TLSConfig{Mode: "server"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "certificate and key are required")
}

func TestLoadKeypairMutualNeedsCA(t *testing.T) {
	certPEM, keyPEM := generateTestCert(t, "pmtailor-server", time.Now().Add(time.Hour))
	caPEM, _ := generateTestCert(t, "pmtailor-ca", time.Now().Add(time.Hour))

	cfg := &config.TLSConfig{
		Mode:        "mutual",
		CertContent: certPEM,
		KeyContent:  keyPEM,
	}
	_, err := loadKeypair(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CA certificate is required")

	cfg.CAContent = caPEM
	kp, err := loadKeypair(cfg)
	require.NoError(t, err)
	assert.NotNil(t, kp.clientCA)
}

func TestGetCertificateBeforeLoad(t *testing.T) {
	cr := newCertReloader(&config.TLSConfig{}, nil, nil, errors.NewLogger(slog.LevelError))
	_, err := cr.getCertificate(nil)
	assert.Error(t, err)
}

// fakeSecretReader serves a fixed secret, or an error.
type fakeSecretReader struct {
	secret *config.VaultSecret
	err    error
	calls  int
}

func (f *fakeSecretReader) GetSecretV2(string) (*config.VaultSecret, error) {
	f.calls++
	return f.secret, f.err
}

func TestCheckVaultAppliesAdvancedVersion(t *testing.T) {
	oldCert, oldKey := generateTestCert(t, "pmtailor-old", time.Now().Add(time.Hour))
	newExpiry := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	newCert, newKey := generateTestCert(t, "pmtailor-new", newExpiry)

	tlsCfg := &config.TLSConfig{
		Mode:        "server",
		CertContent: oldCert,
		KeyContent:  oldKey,
		AutoReload: config.AutoReloadConfig{
			VaultWatcher: config.VaultWatcherConfig{SecretPath: "secret/data/pmtailor/tls"},
		},
	}
	vault := &fakeSecretReader{secret: &config.VaultSecret{
		Version: 2,
		Data:    map[string]any{"cert": newCert, "key": newKey},
	}}

	cr := newCertReloader(tlsCfg, vault, nil, errors.NewLogger(slog.LevelError))
	kp, err := loadKeypair(tlsCfg)
	require.NoError(t, err)
	cr.active = kp

	cr.checkVault()

	assert.Equal(t, int64(2), cr.vaultVersion)
	assert.Equal(t, newCert, tlsCfg.CertContent)
	assert.Equal(t, int64(1), cr.reloads)
	assert.Empty(t, cr.lastError)

	expiry, err := cr.timeToExpiry()
	require.NoError(t, err)
	assert.InDelta(t, time.Until(newExpiry).Seconds(), expiry.Seconds(), 5)
}

func TestCheckVaultIgnoresStaleVersion(t *testing.T) {
	certPEM, keyPEM := generateTestCert(t, "pmtailor-server", time.Now().Add(time.Hour))
	tlsCfg := &config.TLSConfig{
		Mode:        "server",
		CertContent: certPEM,
		KeyContent:  keyPEM,
		AutoReload: config.AutoReloadConfig{
			VaultWatcher: config.VaultWatcherConfig{SecretPath: "secret/data/pmtailor/tls"},
		},
	}
	vault := &fakeSecretReader{secret: &config.VaultSecret{
		Version: 3,
		Data:    map[string]any{"cert": "garbage"},
	}}

	cr := newCertReloader(tlsCfg, vault, nil, errors.NewLogger(slog.LevelError))
	cr.vaultVersion = 3

	cr.checkVault()

	assert.Equal(t, int64(0), cr.reloads, "same version must not trigger a reload")
	assert.Equal(t, certPEM, tlsCfg.CertContent)
}

func TestCheckVaultPollErrorKeepsState(t *testing.T) {
	certPEM, keyPEM := generateTestCert(t, "pmtailor-server", time.Now().Add(time.Hour))
	tlsCfg := &config.TLSConfig{
		Mode:        "server",
		CertContent: certPEM,
		KeyContent:  keyPEM,
		AutoReload: config.AutoReloadConfig{
			VaultWatcher: config.VaultWatcherConfig{SecretPath: "secret/data/pmtailor/tls"},
		},
	}
	vault := &fakeSecretReader{err: fmt.Errorf("vault sealed")}

	cr := newCertReloader(tlsCfg, vault, nil, errors.NewLogger(slog.LevelError))
	cr.checkVault()

	assert.Equal(t, int64(0), cr.reloads)
	assert.Equal(t, 1, vault.calls)
}

func TestReloadFailureKeepsActiveKeypair(t *testing.T) {
	certPEM, keyPEM := generateTestCert(t, "pmtailor-server", time.Now().Add(time.Hour))
	tlsCfg := &config.TLSConfig{
		Mode:        "server",
		CertContent: certPEM,
		KeyContent:  keyPEM,
	}

	cr := newCertReloader(tlsCfg, nil, nil, errors.NewLogger(slog.LevelError))
	kp, err := loadKeypair(tlsCfg)
	require.NoError(t, err)
	cr.active = kp

	tlsCfg.CertContent = "not a certificate"
	cr.reload("file")

	assert.Equal(t, int64(1), cr.reloads)
	assert.Equal(t, int64(1), cr.failures)
	assert.NotEmpty(t, cr.lastError)

	got, err := cr.getCertificate(nil)
	require.NoError(t, err, "previous keypair stays active after a failed reload")
	assert.Equal(t, &kp.cert, got)
}

func TestCertReloaderStatus(t *testing.T) {
	certPEM, keyPEM := generateTestCert(t, "pmtailor-server", time.Now().Add(time.Hour))
	tlsCfg := &config.TLSConfig{
		Mode:        "server",
		CertContent: certPEM,
		KeyContent:  keyPEM,
		AutoReload: config.AutoReloadConfig{
			VaultWatcher: config.VaultWatcherConfig{SecretPath: "secret/data/pmtailor/tls"},
		},
	}
	vault := &fakeSecretReader{secret: &config.VaultSecret{Version: 1, Data: map[string]any{}}}

	cr := newCertReloader(tlsCfg, vault, nil, errors.NewLogger(slog.LevelError))
	st := cr.status()

	assert.Equal(t, int64(0), st["reloads"])
	assert.Equal(t, int64(0), st["failures"])
	assert.NotContains(t, st, "last_reload")
	assert.Equal(t, "secret/data/pmtailor/tls", st["vault_secret_path"])

	cr.reload("file")
	st = cr.status()
	assert.Equal(t, int64(1), st["reloads"])
	assert.Contains(t, st, "last_reload")
}
