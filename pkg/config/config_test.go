package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("PUBLISHER_PORT")
	os.Unsetenv("PUBLISHER_HOST")
	os.Unsetenv("SERVER_ROOT")
	os.Unsetenv("NODE_ENV")
	os.Unsetenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4000" {
		t.Errorf("expected Port=4000 (default), got %s", cfg.Port)
	}
	if cfg.Host != "localhost" {
		t.Errorf("expected Host=localhost (default), got %s", cfg.Host)
	}
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment()=false by default")
	}
	if cfg.TelemetryEnabled() {
		t.Error("expected TelemetryEnabled()=false by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PUBLISHER_PORT", "8080")
	t.Setenv("PUBLISHER_HOST", "0.0.0.0")
	t.Setenv("SERVER_ROOT", "/srv/publisher")
	t.Setenv("NODE_ENV", "development")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected Port=8080, got %s", cfg.Port)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("expected Host=0.0.0.0, got %s", cfg.Host)
	}
	if cfg.ServerRoot != "/srv/publisher" {
		t.Errorf("expected ServerRoot=/srv/publisher, got %s", cfg.ServerRoot)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment()=true")
	}
	if !cfg.TelemetryEnabled() {
		t.Error("expected TelemetryEnabled()=true")
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("expected Addr()=0.0.0.0:8080, got %s", cfg.Addr())
	}
}
