package observability

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"careerkit/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusConfig holds Prometheus-specific configuration
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
	Port     string
}

// PrometheusServer serves the metrics endpoint while a command runs
type PrometheusServer struct {
	server   *http.Server
	listener net.Listener
	port     string
}

// SetupPrometheusExporter creates a Prometheus metrics exporter backed by
// its own registry, and the server that exposes it
func SetupPrometheusExporter(cfg PrometheusConfig) (metric.Reader, *PrometheusServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return exporter, &PrometheusServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		port: cfg.Port,
	}, nil
}

// Start listens on the configured port and serves in the background
func (ps *PrometheusServer) Start() error {
	ln, err := net.Listen("tcp", ":"+ps.port)
	if err != nil {
		return fmt.Errorf("cannot listen on port %s: %w", ps.port, err)
	}
	ps.listener = ln
	fmt.Fprintf(os.Stderr, "Prometheus metrics available at http://%s\n", ln.Addr())

	go func() {
		if err := ps.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Prometheus server error: %v\n", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started
func (ps *PrometheusServer) Addr() string {
	if ps.listener == nil {
		return ""
	}
	return ps.listener.Addr().String()
}

// Shutdown stops the metrics server
func (ps *PrometheusServer) Shutdown(ctx context.Context) error {
	if ps.listener == nil {
		return nil
	}
	return ps.server.Shutdown(ctx)
}

// GetPrometheusConfig creates Prometheus configuration from provided config
func GetPrometheusConfig(cfg *config.Config) PrometheusConfig {
	if cfg != nil {
		return PrometheusConfig{
			Enabled:  cfg.Observability.Prometheus.Enabled,
			Endpoint: cfg.Observability.Prometheus.Endpoint,
			Port:     cfg.Observability.Prometheus.Port,
		}
	}

	return PrometheusConfig{
		Enabled:  false,
		Endpoint: "/metrics",
		Port:     "9090",
	}
}
