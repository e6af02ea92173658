package telemetryx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/logging"
	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const logID = "brandguard"

// Config selects the Cloud Operations integrations. Both are off by default;
// local runs keep plain stdout logging and a no-op tracer.
type Config struct {
	ProjectID           string `envconfig:"GOOGLE_CLOUD_PROJECT"`
	CloudLoggingEnabled bool   `envconfig:"CLOUD_LOGGING_ENABLED" default:"false"`
	CloudTraceEnabled   bool   `envconfig:"CLOUD_TRACE_ENABLED" default:"false"`
}

// Setup wires the enabled exporters: Cloud Logging mirrors every zerolog
// line, Cloud Trace receives spans through the global tracer provider. The
// returned shutdown flushes and closes whatever was started.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	if !cfg.CloudLoggingEnabled && !cfg.CloudTraceEnabled {
		return noop, nil
	}
	if cfg.ProjectID == "" {
		return noop, errors.New("telemetry: GOOGLE_CLOUD_PROJECT is required when an exporter is enabled")
	}

	var shutdowns []func(context.Context) error

	if cfg.CloudLoggingEnabled {
		client, err := logging.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return noop, fmt.Errorf("telemetry: create logging client: %w", err)
		}
		lg := client.Logger(logID)
		log.Logger = log.Output(zerolog.MultiLevelWriter(os.Stdout, entryWriter{logger: lg}))
		shutdowns = append(shutdowns, func(context.Context) error { return client.Close() })
		log.Info().Str("project", cfg.ProjectID).Msg("cloud logging enabled")
	}

	if cfg.CloudTraceEnabled {
		exporter, err := texporter.New(texporter.WithProjectID(cfg.ProjectID))
		if err != nil {
			_ = runShutdowns(ctx, shutdowns)
			return noop, fmt.Errorf("telemetry: create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
		log.Info().Str("project", cfg.ProjectID).Msg("cloud trace enabled")
	}

	return func(ctx context.Context) error {
		return runShutdowns(ctx, shutdowns)
	}, nil
}

func runShutdowns(ctx context.Context, shutdowns []func(context.Context) error) error {
	var errs []error
	for i := len(shutdowns) - 1; i >= 0; i-- {
		if err := shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// entryWriter forwards zerolog's JSON lines as structured log entries.
type entryWriter struct {
	logger *logging.Logger
}

func (w entryWriter) Write(p []byte) (int, error) {
	payload := json.RawMessage(bytes.TrimSpace(append([]byte(nil), p...)))
	w.logger.Log(logging.Entry{Payload: payload})
	return len(p), nil
}
