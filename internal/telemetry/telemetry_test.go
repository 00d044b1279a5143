// Copyright (c) Microsoft. All rights reserved.

package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/jochenvw/agent-framework-workflows/internal/telemetry"
)

func TestSetup_NoEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := telemetry.Setup(context.Background(), "", "afw")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestSetup_ExportsSpans(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			posts.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	shutdown, err := telemetry.Setup(context.Background(), srv.URL, "afw-test")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "workflow.run")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.GreaterOrEqual(t, posts.Load(), int32(1))
}
