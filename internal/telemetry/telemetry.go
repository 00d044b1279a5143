// Copyright (c) Microsoft. All rights reserved.

// Package telemetry installs an OpenTelemetry tracer provider for the
// command-line tools.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const tracesPath = "/v1/traces"

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Setup exports spans over OTLP/HTTP to endpoint and registers the provider
// globally. Like OTEL_EXPORTER_OTLP_ENDPOINT, endpoint is a base URL and
// traces go to its /v1/traces path. An empty endpoint leaves the global
// no-op provider in place.
func Setup(ctx context.Context, endpoint, service string) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	if !strings.HasSuffix(endpoint, tracesPath) {
		endpoint = strings.TrimRight(endpoint, "/") + tracesPath
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(service)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}
