package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pmtailor/internal/config"
	"pmtailor/internal/errors"
	"pmtailor/internal/observability"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// secretReader is the slice of the Vault client that certificate
// reloading needs.
type secretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// keypair is an immutable snapshot of loaded TLS material. The reloader
// swaps whole snapshots so a handshake never observes a half-loaded pair.
type keypair struct {
	cert     tls.Certificate
	expiry   time.Time
	clientCA *x509.CertPool
}

// certReloader keeps the server's TLS material fresh without restarts.
// It hands the current keypair to the TLS stack through getCertificate
// and swaps it when the certificate files change on disk or a newer
// secret version shows up in Vault.
type certReloader struct {
	tlsCfg *config.TLSConfig
	vault  secretReader
	om     *observability.ObservabilityManager
	logger *errors.Logger

	mu           sync.RWMutex
	active       *keypair
	reloads      int64
	failures     int64
	lastReload   time.Time
	lastError    string
	vaultVersion int64
	watching     []string

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func newCertReloader(tlsCfg *config.TLSConfig, vault secretReader, om *observability.ObservabilityManager, logger *errors.Logger) *certReloader {
	return &certReloader{
		tlsCfg: tlsCfg,
		vault:  vault,
		om:     om,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// start loads the initial keypair and spawns the watch goroutines.
func (cr *certReloader) start() error {
	kp, err := loadKeypair(cr.tlsCfg)
	if err != nil {
		return err
	}
	cr.mu.Lock()
	cr.active = kp
	cr.mu.Unlock()
	cr.recordExpiry(kp.expiry)

	if cr.tlsCfg.AutoReload.FileWatcher.Enabled && cr.tlsCfg.CertFile != "" {
		if err := cr.watchFiles(); err != nil {
			return fmt.Errorf("watch certificate files: %w", err)
		}
	}

	if cr.tlsCfg.AutoReload.VaultWatcher.Enabled && cr.vault != nil &&
		cr.tlsCfg.AutoReload.VaultWatcher.SecretPath != "" {
		cr.wg.Add(1)
		go cr.pollVault()
	}

	return nil
}

// close stops the watch goroutines. The active keypair stays readable so
// in-flight handshakes finish cleanly.
func (cr *certReloader) close() {
	close(cr.done)
	if cr.watcher != nil {
		_ = cr.watcher.Close()
	}
	cr.wg.Wait()
}

func (cr *certReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	if cr.active == nil {
		return nil, fmt.Errorf("no TLS certificate loaded")
	}
	return &cr.active.cert, nil
}

// verifyPeer validates the client chain against the current CA pool. The
// server runs with RequireAnyClientCert in mutual mode so the pool can
// rotate without rebuilding the tls.Config.
func (cr *certReloader) verifyPeer(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	cr.mu.RLock()
	kp := cr.active
	cr.mu.RUnlock()
	if kp == nil || kp.clientCA == nil {
		return fmt.Errorf("no client CA pool loaded")
	}
	if len(rawCerts) == 0 {
		return fmt.Errorf("client certificate required")
	}

	leaf, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("parse client certificate: %w", err)
	}
	opts := x509.VerifyOptions{
		Roots:         kp.clientCA,
		Intermediates: x509.NewCertPool(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	for _, raw := range rawCerts[1:] {
		intermediate, err := x509.ParseCertificate(raw)
		if err != nil {
			return fmt.Errorf("parse intermediate certificate: %w", err)
		}
		opts.Intermediates.AddCert(intermediate)
	}

	if _, err := leaf.Verify(opts); err != nil {
		return fmt.Errorf("client certificate verification failed: %w", err)
	}
	return nil
}

func (cr *certReloader) timeToExpiry() (time.Duration, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	if cr.active == nil {
		return 0, fmt.Errorf("no TLS certificate loaded")
	}
	return time.Until(cr.active.expiry), nil
}

// status reports reload bookkeeping for the health endpoint.
func (cr *certReloader) status() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	st := map[string]any{
		"reloads":  cr.reloads,
		"failures": cr.failures,
	}
	if !cr.lastReload.IsZero() {
		st["last_reload"] = cr.lastReload.Format(time.RFC3339)
	}
	if cr.lastError != "" {
		st["last_error"] = cr.lastError
	}
	if len(cr.watching) > 0 {
		st["watched_files"] = append([]string(nil), cr.watching...)
	}
	if cr.vault != nil {
		st["vault_secret_path"] = cr.tlsCfg.AutoReload.VaultWatcher.SecretPath
		st["vault_secret_version"] = cr.vaultVersion
	}
	return st
}

// reload re-reads the configured material and swaps it in. A failed
// reload keeps the previous keypair active.
func (cr *certReloader) reload(source string) {
	cr.mu.Lock()
	cfg := *cr.tlsCfg
	cr.mu.Unlock()

	kp, err := loadKeypair(&cfg)

	cr.mu.Lock()
	cr.reloads++
	cr.lastReload = time.Now()
	if err != nil {
		cr.failures++
		cr.lastError = err.Error()
	} else {
		cr.active = kp
		cr.lastError = ""
	}
	cr.mu.Unlock()

	if err != nil {
		cr.logger.LogError(err, "TLS certificate reload failed", "source", source)
		cr.recordReload(source, err)
		return
	}

	cr.logger.Info("TLS certificates reloaded",
		"source", source,
		"expires", kp.expiry.Format(time.RFC3339))
	cr.recordReload(source, nil)
	cr.recordExpiry(kp.expiry)
}

// watchFiles registers fsnotify watches on the parent directories of the
// certificate files. Cert rotation tooling typically swaps files via
// rename, which drops a watch placed on the file itself.
func (cr *certReloader) watchFiles() error {
	files := []string{cr.tlsCfg.CertFile, cr.tlsCfg.KeyFile}
	if cr.tlsCfg.Mode == "mutual" && cr.tlsCfg.CAFile != "" {
		files = append(files, cr.tlsCfg.CAFile)
	}

	targets := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	cr.watcher = w

	cr.mu.Lock()
	for t := range targets {
		cr.watching = append(cr.watching, t)
	}
	sort.Strings(cr.watching)
	cr.mu.Unlock()

	cr.wg.Add(1)
	go cr.runFileWatcher(targets)
	return nil
}

func (cr *certReloader) runFileWatcher(targets map[string]bool) {
	defer cr.wg.Done()

	debounce := cr.tlsCfg.AutoReload.FileWatcher.DebounceDelay
	if debounce <= 0 {
		debounce = time.Second
	}
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-cr.watcher.Events:
			if !ok {
				return
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// A rotation emits a burst of events; collapse it into
			// one reload.
			if pending == nil {
				pending = time.AfterFunc(debounce, func() { cr.reload("file") })
			} else {
				pending.Reset(debounce)
			}
		case err, ok := <-cr.watcher.Errors:
			if !ok {
				return
			}
			cr.logger.Warn("Certificate watcher error", "error", err)
		case <-cr.done:
			return
		}
	}
}

func (cr *certReloader) pollVault() {
	defer cr.wg.Done()

	interval := cr.tlsCfg.AutoReload.VaultWatcher.PollInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cr.checkVault()
		case <-cr.done:
			return
		}
	}
}

// checkVault applies the secret's cert/key/ca fields and reloads when the
// secret version advanced past the one last applied.
func (cr *certReloader) checkVault() {
	path := cr.tlsCfg.AutoReload.VaultWatcher.SecretPath
	secret, err := cr.vault.GetSecretV2(path)
	if err != nil {
		cr.logger.Warn("Vault certificate poll failed", "path", path, "error", err)
		return
	}

	cr.mu.Lock()
	advanced := secret.Version > cr.vaultVersion
	if advanced {
		cr.vaultVersion = secret.Version
		if cert, ok := secret.Data["cert"].(string); ok && cert != "" {
			cr.tlsCfg.CertContent = cert
		}
		if key, ok := secret.Data["key"].(string); ok && key != "" {
			cr.tlsCfg.KeyContent = key
		}
		if ca, ok := secret.Data["ca"].(string); ok && ca != "" {
			cr.tlsCfg.CAContent = ca
		}
	}
	cr.mu.Unlock()

	if advanced {
		cr.logger.Info("Vault certificate secret advanced",
			"path", path, "version", secret.Version)
		cr.reload("vault")
	}
}

func (cr *certReloader) recordReload(source string, err error) {
	if cr.om == nil {
		return
	}
	m := cr.om.GetMetrics()
	if m.CertReloadCount == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.CertReloadCount.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("source", source),
	))
}

func (cr *certReloader) recordExpiry(expiry time.Time) {
	if cr.om == nil {
		return
	}
	m := cr.om.GetMetrics()
	if m.CertExpiryTime == nil {
		return
	}
	m.CertExpiryTime.Record(context.Background(), time.Until(expiry).Seconds())
}

// loadKeypair reads the configured certificate material. Inline content
// wins over file paths since Vault-sourced secrets arrive as content.
func loadKeypair(cfg *config.TLSConfig) (*keypair, error) {
	var cert tls.Certificate
	var err error
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return nil, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return nil, fmt.Errorf("load server keypair: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parse server certificate: %w", err)
	}

	kp := &keypair{cert: cert, expiry: leaf.NotAfter}

	if cfg.Mode == "mutual" {
		pem, err := clientCAPEM(cfg)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no usable certificates in client CA material")
		}
		kp.clientCA = pool
	}

	return kp, nil
}

func clientCAPEM(cfg *config.TLSConfig) ([]byte, error) {
	if cfg.CAContent != "" {
		return []byte(cfg.CAContent), nil
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read client CA file: %w", err)
		}
		return pem, nil
	}
	return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
}
