package otelx

import (
	"context"
	"testing"
)

func TestInitReturnsNoopShutdownByDefault(t *testing.T) {
	// OTEL_ENABLED is unset by default in the test environment, so Init
	// should not attempt to build a real resource/exporter.
	shutdown := Init(context.Background(), nil, Config{ServiceName: "agentcore-test"})
	if shutdown == nil {
		t.Fatalf("Init: expected a non-nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSampleRatioClampsToUnitInterval(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "2.5")
	if got := sampleRatio(); got != 1 {
		t.Fatalf("sampleRatio: expected clamp to 1, got %v", got)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "-1")
	if got := sampleRatio(); got != 0 {
		t.Fatalf("sampleRatio: expected clamp to 0, got %v", got)
	}
}

func TestHeadersParsesCommaSeparatedPairs(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, x-team = infra")
	got := headers()
	if got["x-api-key"] != "abc" || got["x-team"] != "infra" {
		t.Fatalf("headers: unexpected result %v", got)
	}
}

func TestHeadersReturnsNilWhenUnset(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if got := headers(); got != nil {
		t.Fatalf("headers: expected nil when unset, got %v", got)
	}
}

func TestHeadersSkipsMalformedPairs(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "no-equals-sign,=missing-key,missing-value=")
	if got := headers(); got != nil {
		t.Fatalf("headers: expected nil for all-malformed input, got %v", got)
	}
}
