// Package telemetry provides OpenTelemetry spans and metrics for analysis
// runs.
//
// Instrumentation goes through the global otel providers. Until Setup is
// called those are no-ops, so library users pay nothing unless they opt in.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/skim/internal/ir"
)

const scope = "github.com/roach88/skim"

// Metrics for artifact analysis.
var (
	artifactDuration metric.Float64Histogram
	artifactTotal    metric.Int64Counter
	resultsTotal     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments on first use. Safe to call from any
// goroutine.
func initMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.Meter(scope)
		var err error

		artifactDuration, err = meter.Float64Histogram(
			"skim_artifact_duration_seconds",
			metric.WithDescription("Time spent analyzing one artifact"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		artifactTotal, err = meter.Int64Counter(
			"skim_artifacts_total",
			metric.WithDescription("Artifacts processed, by commit status"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resultsTotal, err = meter.Int64Counter(
			"skim_results_total",
			metric.WithDescription("Results produced before filtering"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func tracer() trace.Tracer {
	return otel.Tracer(scope)
}

// StartRun opens the span covering one analysis run.
func StartRun(ctx context.Context, runID string, rules int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "skim.run",
		trace.WithAttributes(
			attribute.String("skim.run_id", runID),
			attribute.Int("skim.rules", rules),
		),
	)
}

// EndRun records the run's outcome on its span. The caller still ends it.
func EndRun(span trace.Span, conds ir.RuntimeConditions, results, notifications int) {
	span.SetAttributes(
		attribute.String("skim.conditions", conds.String()),
		attribute.Int("skim.results", results),
		attribute.Int("skim.notifications", notifications),
	)
	if conds.Fatal() {
		span.SetStatus(codes.Error, conds.String())
	}
}

// StartArtifact opens a child span for one artifact.
func StartArtifact(ctx context.Context, uri string, index int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "skim.artifact",
		trace.WithAttributes(
			attribute.String("skim.artifact", uri),
			attribute.Int("skim.index", index),
		),
	)
}

// RecordArtifact annotates the artifact span and updates the metrics.
// status is "committed", "abandoned" or "discarded".
func RecordArtifact(ctx context.Context, span trace.Span, d time.Duration, results int, status string) {
	span.SetAttributes(
		attribute.Int("skim.results", results),
		attribute.String("skim.status", status),
	)
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	artifactDuration.Record(ctx, d.Seconds(), attrs)
	artifactTotal.Add(ctx, 1, attrs)
	resultsTotal.Add(ctx, int64(results))
}

// Setup installs global providers that export spans and metrics as JSON
// to w. The returned function flushes and shuts both down.
func Setup(w io.Writer) (func(context.Context) error, error) {
	res := resource.NewWithAttributes("",
		attribute.String("service.name", ir.ToolName),
		attribute.String("service.version", ir.ToolVersion),
	)

	spans, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(spans),
		sdktrace.WithResource(res),
	)

	metrics, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics)),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
