package logging

import (
	"testing"

	"github.com/rs/zerolog"

	"reactorcad/config"
)

func TestSetupDefaults(t *testing.T) {
	logger, cleanup, err := Setup(config.LoggingConfig{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer cleanup()
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", logger.GetLevel())
	}
}

func TestSetupParsesLevel(t *testing.T) {
	logger, cleanup, err := Setup(config.LoggingConfig{Level: "DEBUG", Format: "json"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer cleanup()
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, _, err := Setup(config.LoggingConfig{Level: "loudest"}); err == nil {
		t.Fatal("expected level parse error")
	}
}

func TestSetupRejectsUnknownFormat(t *testing.T) {
	if _, _, err := Setup(config.LoggingConfig{Format: "xml"}); err == nil {
		t.Fatal("expected format error")
	}
}

func TestSetupRequiresLokiURL(t *testing.T) {
	cfg := config.LoggingConfig{Loki: config.LokiConfig{Enabled: true}}
	if _, _, err := Setup(cfg); err == nil {
		t.Fatal("expected missing loki url error")
	}
}

func TestLokiLabelsDefault(t *testing.T) {
	labels := lokiLabels(nil)
	if labels["app"] != defaultLokiApp {
		t.Fatalf("expected default app label, got %v", labels)
	}
	labels = lokiLabels(map[string]string{"env": "lab"})
	if _, ok := labels["app"]; ok {
		t.Fatal("configured labels must not gain the default")
	}
	if labels["env"] != "lab" {
		t.Fatalf("unexpected labels %v", labels)
	}
}
