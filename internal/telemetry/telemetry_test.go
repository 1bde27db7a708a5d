package telemetry

import (
	"context"
	"testing"

	"resell/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		host     string
		insecure bool
	}{
		{"http://collector:4318", "collector:4318", true},
		{"https://otel.example.com", "otel.example.com", false},
		{"collector:4318", "collector:4318", true},
	}
	for _, tt := range tests {
		host, insecure, err := parseEndpoint(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.host, host, tt.raw)
		assert.Equal(t, tt.insecure, insecure, tt.raw)
	}
}
