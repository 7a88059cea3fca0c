// Package config provides configuration management for PulseTrader.
// This file centralizes all port constants to avoid duplication and ensure consistency.
package config

// Service Ports
const (
	// PipelinePort is the port for the pipeline HTTP server (health checks,
	// pause/resume, status, Prometheus metrics).
	PipelinePort = 8081

	// LLMGatewayPort is the port the LLM gateway (Bifrost) listens on.
	LLMGatewayPort = 8080
)

// Infrastructure Service Ports
const (
	// VaultPort is the default port for HashiCorp Vault.
	VaultPort = 8200

	// PostgresPort is the default port for PostgreSQL.
	PostgresPort = 5432

	// RedisPort is the default port for Redis.
	RedisPort = 6379

	// NATSPort is the default port for NATS messaging.
	NATSPort = 4222
)

// Monitoring Service Ports
const (
	// PrometheusPort is the default port for Prometheus.
	PrometheusPort = 9090

	// GrafanaPort is the default port for Grafana.
	GrafanaPort = 3000

	// NATSExporterPort is the port for the NATS Prometheus exporter.
	NATSExporterPort = 7777
)

// ServicePorts maps service names to their default ports. Useful for
// Prometheus scrape configuration and health checks.
var ServicePorts = map[string]int{
	"pipeline":    PipelinePort,
	"llm-gateway": LLMGatewayPort,
	"vault":       VaultPort,
	"postgres":    PostgresPort,
	"redis":       RedisPort,
	"nats":        NATSPort,
}

// GetServicePort returns the default port for a given service name.
// Returns 0 if the service is not found.
func GetServicePort(service string) int {
	if port, ok := ServicePorts[service]; ok {
		return port
	}
	return 0
}
