package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/uow-domain-events-go/config"
	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/publishers"
	"github.com/AntonStoeckl/uow-domain-events-go/testutil/testdoubles"
)

func givenObservability(cfg config.AppConfig) observability {
	return newObservability(cfg, slog.New(testdoubles.NewLogHandlerSpy(false)))
}

func Test_NewPublishers_DefaultConfigurationOnlyLogs(t *testing.T) {
	cfg := config.DefaultAppConfig()

	enabled, closers, err := newPublishers(cfg, givenObservability(cfg))

	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.IsType(t, &publishers.LogPublisher{}, enabled[0])
	assert.Empty(t, closers)
}

func Test_AppendWithRetry_WrapsUnlessDisabled(t *testing.T) {
	cfg := config.DefaultAppConfig()
	spy := testdoubles.NewPublisherSpy()

	wrapped, err := appendWithRetry(nil, spy, "spy", cfg, givenObservability(cfg))
	require.NoError(t, err)
	require.Len(t, wrapped, 1)
	assert.IsType(t, &publishers.RetryingPublisher{}, wrapped[0])

	cfg.Publishers.Retry.MaxAttempts = 1
	plain, err := appendWithRetry(nil, spy, "spy", cfg, givenObservability(cfg))
	require.NoError(t, err)
	require.Len(t, plain, 1)
	assert.Same(t, spy, plain[0])
}

func Test_NewObservability_SelectsMetricsBackend(t *testing.T) {
	cfg := config.DefaultAppConfig()
	assert.Nil(t, givenObservability(cfg).metricsCollector)

	cfg.Observability.Metrics = config.MetricsPrometheus
	obs := givenObservability(cfg)
	assert.NotNil(t, obs.metricsCollector)
	assert.NotNil(t, obs.registry)

	cfg.Observability.Metrics = config.MetricsOTel
	cfg.Observability.Tracing = true
	obs = givenObservability(cfg)
	assert.NotNil(t, obs.metricsCollector)
	assert.Nil(t, obs.registry)
	assert.NotNil(t, obs.tracingCollector)
	assert.NotNil(t, obs.contextualLogger)
}

func Test_DispatcherOptions_BuildAValidDispatcher(t *testing.T) {
	cfg := config.DefaultAppConfig()
	cfg.Dispatch.UnresolvedTypeTokens = config.PolicyFail
	cfg.Dispatch.SharedBuffer = true

	options := dispatcherOptions(cfg, givenObservability(cfg), []domainevents.Publisher{testdoubles.NewPublisherSpy()})
	dispatcher, err := domainevents.NewDispatcher(options...)

	require.NoError(t, err)
	assert.NotNil(t, dispatcher)
}
