// Package logging builds the root logger the editor components share.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"reactorcad/config"
)

const defaultLokiApp = "reactorcad"

// Setup builds the root logger for one editor run. The default output is a
// human-readable console stream; "json" switches to raw zerolog output for
// machine consumption. The returned cleanup flushes the optional Loki sink.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	out, err := selectOutput(cfg.Format)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	writers := []io.Writer{out}
	cleanup := func() {}
	if cfg.Loki.Enabled {
		sink, stop, err := newLokiSink(cfg.Loki)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, sink)
		cleanup = stop
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().Logger().Level(level)
	return logger, cleanup, nil
}

func parseLevel(value string) (zerolog.Level, error) {
	if value == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

func selectOutput(format string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console", "text":
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, nil
	case "json":
		return os.Stdout, nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func newLokiSink(cfg config.LokiConfig) (io.Writer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}
	sink := &lokiSink{client: client, labels: lokiLabels(cfg.Labels)}
	return sink, client.Stop, nil
}

func lokiLabels(configured map[string]string) model.LabelSet {
	labels := model.LabelSet{}
	for k, v := range configured {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	if len(labels) == 0 {
		labels["app"] = defaultLokiApp
	}
	return labels
}

// lokiSink forwards each rendered log line as one Loki entry.
type lokiSink struct {
	client *loki.Client
	labels model.LabelSet
}

func (s *lokiSink) Write(p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	err := s.client.Handle(s.labels, time.Now(), entry)
	return len(p), err
}
