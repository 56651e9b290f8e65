// dCache Exporter is a Prometheus exporter for the dCache storage system.
// It fetches the XML status snapshot published by the dCache info service
// and republishes selected component state as labeled metrics.
//
// The exporter walks the snapshot's component categories:
//   - doors, domains, pools, pool groups, links, link groups
//   - pool membership relations of groups and links
//
// Metrics are exposed via HTTP endpoint for Prometheus scraping.
//
// Usage:
//
//	dcache_exporter --config config.yaml [--debug]
//
// Configuration is provided via YAML file specifying:
//   - Server settings (host, port, metrics URI)
//   - Info service details (host, port, transport, timeout, cache TTL)
//   - Cluster label value
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconfig "github.com/fjacquet/dcache_exporter/internal/config"
	"github.com/fjacquet/dcache_exporter/internal/exporter"
	"github.com/fjacquet/dcache_exporter/internal/logging"
	"github.com/fjacquet/dcache_exporter/internal/models"
	"github.com/fjacquet/dcache_exporter/internal/telemetry"
	"github.com/fjacquet/dcache_exporter/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	programName       = "dcache_exporter" // Application name
	programVersion    = "1.0.0"
	shutdownTimeout   = 10 * time.Second // Maximum time to wait for graceful shutdown
	readHeaderTimeout = 5 * time.Second  // HTTP server read header timeout
)

var (
	configFile string
	debug      bool
)

// Server encapsulates the HTTP server and its dependencies for serving
// Prometheus metrics. It manages the lifecycle of the HTTP server,
// Prometheus registry, dCache collector, and OpenTelemetry telemetry
// manager.
//
// Error Handling:
// Server errors (such as port binding failures) are communicated through
// the ErrorChan() channel rather than calling log.Fatal. This allows the
// caller to perform graceful shutdown even when the server encounters
// errors.
type Server struct {
	safeCfg          *models.SafeConfig
	httpSrv          *http.Server
	registry         *prometheus.Registry
	telemetryManager *telemetry.Manager // nil if disabled
	collector        *exporter.DcacheCollector
	// serverErrChan receives HTTP server errors. It is buffered (capacity 1)
	// so the goroutine can send an error even if the main select hasn't
	// started listening yet.
	serverErrChan chan error
}

// NewServer creates a new server instance with the provided configuration.
// It initializes a new Prometheus registry for metric collection and
// creates a telemetry manager if OpenTelemetry is enabled in the
// configuration.
func NewServer(cfg *models.Config) *Server {
	var telemetryMgr *telemetry.Manager

	if cfg.IsOTelEnabled() {
		telemetryMgr = telemetry.NewManager(telemetry.Config{
			Enabled:        cfg.OpenTelemetry.Enabled,
			Endpoint:       cfg.OpenTelemetry.Endpoint,
			Insecure:       cfg.OpenTelemetry.Insecure,
			SamplingRate:   cfg.OpenTelemetry.SamplingRate,
			ServiceName:    "dcache-exporter",
			ServiceVersion: programVersion,
			InfoServer:     cfg.Info.Host,
		})
	}

	return &Server{
		safeCfg:          models.NewSafeConfig(cfg),
		registry:         prometheus.NewRegistry(),
		telemetryManager: telemetryMgr,
		serverErrChan:    make(chan error, 1),
	}
}

// Start initializes and starts the HTTP server with the Prometheus metrics
// endpoint. It initializes OpenTelemetry if enabled, registers the dCache
// collector, configures HTTP handlers, and starts the server in a
// goroutine.
//
// The server exposes:
//   - Metrics endpoint at the configured URI (default: /metrics)
//   - Health check endpoint at /health
//
// Returns an error if collector creation or registration fails. The HTTP
// server runs asynchronously and reports failures on ErrorChan().
func (s *Server) Start() error {
	var tracerProvider trace.TracerProvider
	if s.telemetryManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.telemetryManager.Initialize(ctx); err != nil {
			log.Warnf("Failed to initialize OpenTelemetry: %v. Continuing without tracing.", err)
		}

		if s.telemetryManager.IsEnabled() {
			tracerProvider = s.telemetryManager.TracerProvider()

			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
			log.Info("OpenTelemetry trace context propagation configured")
		}
	}

	var collectorOpts []exporter.CollectorOption
	if tracerProvider != nil {
		collectorOpts = append(collectorOpts, exporter.WithCollectorTracerProvider(tracerProvider))
	}

	collector, err := exporter.NewDcacheCollector(s.safeCfg, collectorOpts...)
	if err != nil {
		return fmt.Errorf("failed to create collector: %w", err)
	}
	s.collector = collector

	if err := s.registry.Register(collector); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}

	cfg := s.safeCfg.Get()

	mux := http.NewServeMux()

	prometheusHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	if s.telemetryManager != nil && s.telemetryManager.IsEnabled() {
		prometheusHandler = s.extractTraceContextMiddleware(prometheusHandler)
	}

	mux.Handle(cfg.Server.URI, prometheusHandler)
	mux.HandleFunc("/health", s.healthHandler)

	s.httpSrv = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Infof("Starting %s on %s%s", programName, cfg.GetServerAddress(), cfg.Server.URI)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	return nil
}

// ReloadConfig reloads configuration from the given path. Invalid
// configurations are rejected without touching the running config. Wired
// to SIGHUP and the config file watcher.
func (s *Server) ReloadConfig(configPath string) error {
	return s.collector.ReloadConfig(configPath)
}

// ErrorChan returns the channel for receiving server errors.
// The main function should select on this channel to handle errors
// gracefully.
func (s *Server) ErrorChan() <-chan error {
	return s.serverErrChan
}

// Shutdown gracefully shuts down the server components in order:
//
//  1. Stop HTTP server (no new scrapes accepted)
//  2. Shutdown OpenTelemetry (flush pending spans)
//  3. Close collector (drains info service connections)
//
// Telemetry is shut down BEFORE the collector so traces from in-flight
// scrapes are flushed before connections close.
//
// Returns an error if shutdown fails or times out.
func (s *Server) Shutdown() error {
	var errs []error

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("Shutting down HTTP server...")
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	if s.telemetryManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("Shutting down telemetry...")
		if err := s.telemetryManager.Shutdown(ctx); err != nil {
			// Telemetry shutdown warnings are non-fatal
			log.Warnf("Telemetry shutdown warning: %v", err)
		}
	}

	if s.collector != nil {
		log.Info("Closing collector connections...")
		if err := s.collector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("collector close: %w", err))
		}
	}

	close(s.serverErrChan)

	if len(errs) > 0 {
		log.Errorf("Shutdown completed with %d errors", len(errs))
		return errs[0]
	}

	log.Info("Server stopped gracefully")
	return nil
}

// extractTraceContextMiddleware wraps an HTTP handler to extract trace
// context from incoming requests, enabling distributed tracing when the
// exporter is part of a larger observability pipeline.
func (s *Server) extractTraceContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// healthHandler provides a simple health check endpoint that returns HTTP
// 200 OK. This endpoint can be used by load balancers and monitoring
// systems to verify the application is running.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK\n")
}

// validateConfig checks if the configuration file exists, loads it, and
// validates its contents.
func validateConfig(configPath string) (*models.Config, error) {
	if !utils.FileExists(configPath) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	var cfg models.Config
	if err := utils.ReadFile(&cfg, configPath); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setupLogging initializes the logging system with the configured log file.
// If debug mode is enabled, sets the log level to DEBUG for verbose output.
func setupLogging(cfg *models.Config, debugMode bool) error {
	if err := logging.PrepareLogs(cfg.Server.LogName); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if debugMode {
		log.SetLevel(log.DebugLevel)
		log.Debug("Debug mode enabled")
	}

	return nil
}

// waitForShutdown blocks until either a shutdown signal is received or a
// server error occurs through the error channel.
//
// Signals handled:
//   - SIGINT (Ctrl+C)
//   - SIGTERM (kill command)
//
// Returns an error if the server encountered a fatal error, nil for normal
// signal shutdown.
func waitForShutdown(serverErr <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Infof("Received signal %v, initiating graceful shutdown...", sig)
		return nil
	case err := <-serverErr:
		return err
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Prometheus exporter for dCache",
		Long:  "dCache Exporter collects the info service status snapshot and exposes it in Prometheus format",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := validateConfig(configFile)
			if err != nil {
				return err
			}

			if err := setupLogging(cfg, debug); err != nil {
				return err
			}

			log.Infof("Starting %s...", programName)
			log.Infof("Info service: %s (%s transport)", cfg.GetInfoAddress(), cfg.Info.Transport)
			log.Infof("Cluster label: %s", cfg.Cluster)

			server := NewServer(cfg)
			if err := server.Start(); err != nil {
				return err
			}

			// Dynamic reload: SIGHUP plus file watcher on the config file
			appconfig.SetupSIGHUPHandler(configFile, server.ReloadConfig)
			watcher, err := appconfig.WatchConfigFile(configFile, server.ReloadConfig)
			if err != nil {
				log.Warnf("Config file watcher setup failed: %v", err)
			} else {
				defer func() { _ = watcher.Close() }()
			}

			if err := waitForShutdown(server.ErrorChan()); err != nil {
				log.Errorf("Server error: %v", err)
				// Continue to graceful shutdown
			}

			return server.Shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (required)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug mode")
	_ = rootCmd.MarkPersistentFlagRequired("config")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
