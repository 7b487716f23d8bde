package config

import (
	"time"

	"github.com/spf13/viper"
)

// configDefaults maps every configuration key to its default value.
// Keeping the table in one place makes the full surface greppable.
var configDefaults = map[string]any{
	// tailoring engine
	"engine.minRelevanceScore":  0.5,
	"engine.maxExperiences":     5,
	"engine.maxSkills":          15,
	"engine.maxSummaryKeywords": 5,
	"engine.titleBonus":         2.0,
	"engine.exactSkillBonus":    1.0,
	"engine.categoryWeights":    map[string]float64{},
	"engine.customKeywords":     map[string][]string{},

	// remote job-description fetcher
	"fetch.timeout":     30 * time.Second,
	"fetch.userAgent":   "pmtailor/1.0",
	"fetch.maxBodySize": 2 * 1024 * 1024,

	"fetch.circuitBreaker.enabled":          true,
	"fetch.circuitBreaker.maxRequests":      3,
	"fetch.circuitBreaker.interval":         60 * time.Second,
	"fetch.circuitBreaker.timeout":          60 * time.Second,
	"fetch.circuitBreaker.minRequests":      3,
	"fetch.circuitBreaker.failureThreshold": 0.6,

	// HTTP server
	"server.host":         "localhost",
	"server.port":         "8080",
	"server.readTimeout":  30 * time.Second,
	"server.writeTimeout": 30 * time.Second,
	"server.idleTimeout":  120 * time.Second,
	"server.apiKeys":      []string{},

	"server.tls.mode":               "disabled",
	"server.tls.certFile":           "",
	"server.tls.keyFile":            "",
	"server.tls.caFile":             "",
	"server.tls.minVersion":         "1.2",
	"server.tls.cipherSuites":       []string{}, // empty means Go's defaults
	"server.tls.clientAuthPolicy":   "require",
	"server.tls.insecureSkipVerify": false,
	"server.tls.serverName":         "",

	"server.tls.autoReload.enabled":                   true,
	"server.tls.autoReload.fileWatcher.enabled":       true,
	"server.tls.autoReload.fileWatcher.debounceDelay": time.Second,
	"server.tls.autoReload.vaultWatcher.enabled":      false,
	"server.tls.autoReload.vaultWatcher.pollInterval": 5 * time.Minute,
	"server.tls.autoReload.vaultWatcher.secretPath":   "",

	"server.rateLimit.enabled":        false,
	"server.rateLimit.requestsPerMin": 60,
	"server.rateLimit.burstCapacity":  10,
	"server.rateLimit.byIP":           true,
	"server.rateLimit.byAPIKey":       false,
	"server.rateLimit.window":         time.Minute,

	// shared application settings
	"app.logLevel":         "info",
	"app.defaultFormat":    "json",
	"app.supportedFormats": []string{"json", "text", "markdown"},
	"app.maxFileSize":      1024 * 1024,

	// Vault
	"vault.enabled":          false,
	"vault.address":          "",
	"vault.token":            "",
	"vault.tokenFile":        "",
	"vault.namespace":        "",
	"vault.secrets.apiKeys":  "",
	"vault.secrets.tlsCerts": "",

	// observability; serviceVersion and serviceInstance are derived at
	// startup when left empty
	"observability.enabled":         true,
	"observability.serviceName":     "pmtailor",
	"observability.serviceVersion":  "",
	"observability.serviceInstance": "",
	"observability.consoleOutput":   false,
	"observability.sampleRate":      1.0,

	"observability.tracing.enabled":    true,
	"observability.tracing.sampleRate": 1.0,

	"observability.metrics.enabled":            true,
	"observability.metrics.collectionInterval": 15 * time.Second,

	"observability.customMetrics.engineOperations.enabled":          true,
	"observability.customMetrics.engineOperations.trackDuration":    true,
	"observability.customMetrics.engineOperations.trackMatches":     true,
	"observability.customMetrics.businessMetrics.enabled":           true,
	"observability.customMetrics.businessMetrics.trackSuccessRates": true,
	"observability.customMetrics.businessMetrics.trackContentSizes": true,
	"observability.customMetrics.infrastructure.enabled":            true,
	"observability.customMetrics.infrastructure.trackRateLimits":    true,
	"observability.customMetrics.infrastructure.trackCertExpiry":    true,

	"observability.console.enabled":     false,
	"observability.console.prettyPrint": true,

	"observability.prometheus.enabled":  true,
	"observability.prometheus.endpoint": "/metrics",
	"observability.prometheus.port":     "9090",

	"observability.otlp.enabled":  false,
	"observability.otlp.endpoint": "http://localhost:4318",
	"observability.otlp.insecure": true,
	"observability.otlp.headers":  map[string]string{},
}

func setDefaults(v *viper.Viper) {
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}
}
