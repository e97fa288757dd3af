// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("CARSURVEY_ENV", "")

	cfg := DefaultConfig()

	assert.Equal(t, "carsurvey", cfg.ServiceName)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ExporterNone, cfg.TraceExporter)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.True(t, cfg.OTLPInsecure)
}

func TestDefaultConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("CARSURVEY_ENV", "production")

	cfg := DefaultConfig()

	assert.Equal(t, ExporterStdout, cfg.TraceExporter)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "production", cfg.Environment)
}

func TestInit_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := Init(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_NoneExporterIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterNone

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = "zipkin"

	_, err := Init(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownExporter))
}

func TestRecordError_MarksSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "boom", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestRecordError_NilIsNoop(t *testing.T) {
	RecordError(nil, errors.New("x"))
	_, span := StartSpan(context.Background(), "test", "op")
	RecordError(span, nil)
	span.End()
}

func TestLoggerWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	t.Run("no span leaves logger untouched", func(t *testing.T) {
		buf.Reset()
		LoggerWithTrace(context.Background(), logger).Info("hello")
		assert.NotContains(t, buf.String(), "trace_id")
	})

	t.Run("valid span adds ids", func(t *testing.T) {
		tp := trace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		buf.Reset()
		LoggerWithTrace(ctx, logger).Info("hello")
		out := buf.String()
		assert.True(t, strings.Contains(out, span.SpanContext().TraceID().String()))
		assert.Contains(t, out, "span_id")
	})
}
