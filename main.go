package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/catalog"
	"github.com/ekaya-inc/ekaya-engine/pkg/config"
	"github.com/ekaya-inc/ekaya-engine/pkg/fetch"
	"github.com/ekaya-inc/ekaya-engine/pkg/httpapi"
	"github.com/ekaya-inc/ekaya-engine/pkg/malloyrt"
	"github.com/ekaya-inc/ekaya-engine/pkg/mcp"
	"github.com/ekaya-inc/ekaya-engine/pkg/middleware"
	"github.com/ekaya-inc/ekaya-engine/pkg/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("node_env", cfg.NodeEnv),
		zap.String("server_root", cfg.ServerRoot),
		zap.String("addr", cfg.Addr()),
		zap.Bool("telemetry_enabled", cfg.TelemetryEnabled()),
	)
	if cfg.TelemetryEnabled() {
		logger.Warn("OTEL_EXPORTER_OTLP_ENDPOINT is set but trace/metric export is not wired in this build",
			zap.String("endpoint", cfg.OTLPEndpoint))
	}

	ctx := context.Background()
	runtime := malloyrt.NewNaiveRuntime()

	// GCS and S3 transports resolve credentials from the ambient
	// environment (ADC / the default credential chain). Either can be
	// left unconfigured in a deployment that never uses gs:// or s3://
	// package locations; DefaultFetcher.Fetch rejects those schemes
	// cleanly instead of dereferencing a nil transport.
	var gcsFetcher fetch.GCSFetcher
	if gcsClient, gcsErr := storage.NewClient(ctx); gcsErr != nil {
		logger.Warn("GCS client unavailable; gs:// package locations will fail", zap.Error(gcsErr))
	} else {
		gcsFetcher = fetch.NewGCSFetcher(gcsClient)
	}
	var s3Fetcher fetch.S3Fetcher
	if awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx); awsErr != nil {
		logger.Warn("AWS config unavailable; s3:// package locations will fail", zap.Error(awsErr))
	} else {
		s3Fetcher = fetch.NewS3Fetcher(s3.NewFromConfig(awsCfg))
	}
	fetcher := fetch.NewDefaultFetcher(fetch.NewGoGitFetcher(), gcsFetcher, s3Fetcher)

	store, err := catalog.NewProjectStore(ctx, cfg.ServerRoot, runtime, fetcher, logger)
	if err != nil {
		logger.Fatal("Failed to load project store", zap.Error(err))
	}
	logger.Info("Project store loaded", zap.Int("projects", len(store.ListProjects())))

	watch := watcher.New(func(projectName string) {
		if _, err := store.GetProject(projectName, true); err != nil {
			logger.Error("Failed to reload project after file change", zap.String("project", projectName), zap.Error(err))
		}
	}, logger)

	devServerURL := ""
	if cfg.IsDevelopment() {
		devServerURL = "http://localhost:5173"
	}
	apiServer, err := httpapi.NewServer(store, watch, logger, devServerURL)
	if err != nil {
		logger.Fatal("Failed to build HTTP API server", zap.Error(err))
	}

	mcpServer := mcp.NewServer("malloy-publisher", Version, logger)
	mcp.RegisterAll(mcpServer, store)
	mcpHTTP := mcpServer.NewStreamableHTTPServer()

	mux := http.NewServeMux()
	mux.Handle("/mcp", middleware.MCPRequestLogger(logger)(mcpHTTP))
	mux.Handle("/", apiServer.Handler())

	handler := middleware.RequestLogger(logger)(mux)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	shutdownComplete := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan

		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		watch.StopWatchMode()

		close(shutdownComplete)
	}()

	logger.Info("Starting HTTP server", zap.String("addr", cfg.Addr()), zap.String("version", Version))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed", zap.Error(err))
	}

	<-shutdownComplete
	logger.Info("Server shutdown complete")
}
