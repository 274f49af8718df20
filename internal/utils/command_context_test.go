package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithConfigurationFilePathStoresValue(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithConfigurationFilePath(context.Background(), "/etc/initgraph/config.yaml")

	configurationFilePath, exists := accessor.ConfigurationFilePath(enriched)
	require.True(t, exists)
	require.Equal(t, "/etc/initgraph/config.yaml", configurationFilePath)
}

func TestWithExecutionFlagsStoresNormalizedValues(t *testing.T) {
	accessor := NewCommandContextAccessor()
	flags := ExecutionFlags{
		MaxConcurrency:    3,
		MaxConcurrencySet: true,
		TaskTimeout:       2 * time.Second,
		TaskTimeoutSet:    true,
		ClassMixing:       " reject ",
		ClassMixingSet:    true,
		MetricsAddress:    " :9090 ",
	}

	enriched := accessor.WithExecutionFlags(context.Background(), flags)

	retrieved, exists := accessor.ExecutionFlags(enriched)
	require.True(t, exists)
	require.True(t, retrieved.Any())
	require.Equal(t, 3, retrieved.MaxConcurrency)
	require.Equal(t, 2*time.Second, retrieved.TaskTimeout)
	require.Equal(t, "reject", retrieved.ClassMixing)
	require.Equal(t, ":9090", retrieved.MetricsAddress)
	require.False(t, retrieved.MetricsAddressSet)
}

func TestWithExecutionFlagsHandlesMissingContext(t *testing.T) {
	accessor := NewCommandContextAccessor()

	_, exists := accessor.ExecutionFlags(context.Background())
	require.False(t, exists)
	require.False(t, ExecutionFlags{}.Any())
}

func TestWithLogLevelSkipsEmptyValue(t *testing.T) {
	accessor := NewCommandContextAccessor()

	unchanged := accessor.WithLogLevel(context.Background(), "   ")
	_, exists := accessor.LogLevel(unchanged)
	require.False(t, exists)

	enriched := accessor.WithLogLevel(context.Background(), " debug ")
	logLevel, exists := accessor.LogLevel(enriched)
	require.True(t, exists)
	require.Equal(t, "debug", logLevel)
}
