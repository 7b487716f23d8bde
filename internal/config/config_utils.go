package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills in values viper cannot express as plain defaults:
// the comma-separated API key env var, mode-dependent TLS defaults, and
// the derived service instance ID.
func (c *Config) applyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if raw := os.Getenv("PMTAILOR_SERVER_APIKEYS"); raw != "" {
			keys := strings.Split(raw, ",")
			for i := range keys {
				keys[i] = strings.TrimSpace(keys[i])
			}
			c.Server.APIKeys = keys
		}
	}

	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		name := c.Observability.ServiceName
		if hostname, err := os.Hostname(); err == nil {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-%s", name, hostname)
		} else {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-1", name)
		}
	}
}

// Env vars reported by the startup summary. APIKEYS is masked.
var summaryEnvVars = []string{
	"PMTAILOR_SERVER_PORT",
	"PMTAILOR_SERVER_HOST",
	"PMTAILOR_SERVER_APIKEYS",
	"PMTAILOR_APP_LOGLEVEL",
	"PMTAILOR_ENGINE_MINRELEVANCESCORE",
	"PMTAILOR_FETCH_TIMEOUT",
	"PMTAILOR_VAULT_ENABLED",
}

// logConfigurationSources writes a startup summary of where the effective
// configuration came from and what the key knobs resolved to.
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	log.Println("[CONFIG] Environment variables:")
	found := 0
	for _, envVar := range summaryEnvVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if strings.Contains(strings.ToLower(envVar), "key") {
			value = "***MASKED***"
		}
		log.Printf("[CONFIG]   %s=%s", envVar, value)
		found++
	}
	if found == 0 {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Engine Min Relevance Score: %g", c.Engine.MinRelevanceScore)
	log.Printf("[CONFIG] Engine Max Experiences: %d", c.Engine.MaxExperiences)
	log.Printf("[CONFIG] Engine Max Skills: %d", c.Engine.MaxSkills)
	log.Printf("[CONFIG] Engine Custom Categories: %d", len(c.Engine.CustomKeywords))
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
