package telemetry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/initgraph/internal/telemetry"
	"github.com/tyemirov/initgraph/pkg/initgraph"
)

func runWithCollector(testInstance *testing.T, collector *telemetry.Collector, tasks []initgraph.Task) initgraph.Report {
	testInstance.Helper()
	report, _ := initgraph.NewController(tasks, initgraph.WithObserver(collector)).Run(context.Background())
	return report
}

func succeed(context.Context, initgraph.DependencyProvider) (any, error) {
	return "ok", nil
}

func fail(context.Context, initgraph.DependencyProvider) (any, error) {
	return nil, errors.New("boom")
}

func TestCollectorCountsTaskAndRunOutcomes(testInstance *testing.T) {
	collector, collectorError := telemetry.NewCollector()
	require.NoError(testInstance, collectorError)

	runWithCollector(testInstance, collector, []initgraph.Task{
		initgraph.NewTask("config", succeed),
		initgraph.NewTask("database", fail, "config"),
		initgraph.NewTask("cache", succeed, "database"),
	})

	expected := `
# HELP initgraph_task_outcomes_total Tasks settled, by terminal outcome.
# TYPE initgraph_task_outcomes_total counter
initgraph_task_outcomes_total{outcome="cancelled",task="cache"} 1
initgraph_task_outcomes_total{outcome="failure",task="database"} 1
initgraph_task_outcomes_total{outcome="success",task="config"} 1
`
	require.NoError(testInstance, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "initgraph_task_outcomes_total"))

	expectedStarts := `
# HELP initgraph_task_started_total Task bodies started.
# TYPE initgraph_task_started_total counter
initgraph_task_started_total{task="config"} 1
initgraph_task_started_total{task="database"} 1
`
	require.NoError(testInstance, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expectedStarts), "initgraph_task_started_total"))

	expectedRuns := `
# HELP initgraph_run_outcomes_total Initialization runs finished, by status.
# TYPE initgraph_run_outcomes_total counter
initgraph_run_outcomes_total{status="failure"} 1
# HELP initgraph_tasks_active Task bodies currently executing.
# TYPE initgraph_tasks_active gauge
initgraph_tasks_active 0
# HELP initgraph_last_run_success Whether the most recent run succeeded (1) or failed (0).
# TYPE initgraph_last_run_success gauge
initgraph_last_run_success 0
`
	require.NoError(testInstance, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expectedRuns),
		"initgraph_run_outcomes_total", "initgraph_tasks_active", "initgraph_last_run_success"))
	require.False(testInstance, collector.Ready())

	durationSamples, countError := testutil.GatherAndCount(collector.Registry(), "initgraph_task_duration_seconds")
	require.NoError(testInstance, countError)
	require.Equal(testInstance, 2, durationSamples)
}

func TestCollectorBecomesReadyAfterSuccessfulRun(testInstance *testing.T) {
	collector, collectorError := telemetry.NewCollector()
	require.NoError(testInstance, collectorError)
	require.False(testInstance, collector.Ready())

	report := runWithCollector(testInstance, collector, []initgraph.Task{initgraph.NewTask("config", succeed)})
	require.True(testInstance, report.Succeeded())
	require.True(testInstance, collector.Ready())
}

func TestMetricsServerRoutes(testInstance *testing.T) {
	collector, collectorError := telemetry.NewCollector()
	require.NoError(testInstance, collectorError)
	handler := telemetry.NewMetricsServer(":0", collector, nil).Handler()

	testCases := []struct {
		name           string
		path           string
		beforeRequest  func()
		expectedStatus int
		expectedBody   string
	}{
		{name: "health", path: "/healthz", expectedStatus: http.StatusOK, expectedBody: `{"status":"ok"}`},
		{name: "not_ready", path: "/readyz", expectedStatus: http.StatusServiceUnavailable, expectedBody: `{"status":"pending"}`},
		{
			name: "ready_after_run",
			path: "/readyz",
			beforeRequest: func() {
				runWithCollector(testInstance, collector, []initgraph.Task{initgraph.NewTask("config", succeed)})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ready"}`,
		},
		{name: "metrics", path: "/metrics", expectedStatus: http.StatusOK, expectedBody: `initgraph_run_outcomes_total{status="success"} 1`},
		{name: "unknown", path: "/debug", expectedStatus: http.StatusNotFound},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			if testCase.beforeRequest != nil {
				testCase.beforeRequest()
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, testCase.path, nil))
			require.Equal(testInstance, testCase.expectedStatus, recorder.Code)
			if len(testCase.expectedBody) > 0 {
				require.Contains(testInstance, recorder.Body.String(), testCase.expectedBody)
			}
		})
	}
}

func TestMetricsServerServesOverTCP(testInstance *testing.T) {
	collector, collectorError := telemetry.NewCollector()
	require.NoError(testInstance, collectorError)

	server := telemetry.NewMetricsServer("127.0.0.1:0", collector, nil)
	require.NoError(testInstance, server.Start())
	defer func() {
		shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(testInstance, server.Shutdown(shutdownContext))
	}()

	response, requestError := http.Get("http://" + server.Address() + "/healthz")
	require.NoError(testInstance, requestError)
	defer response.Body.Close()
	body, readError := io.ReadAll(response.Body)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, http.StatusOK, response.StatusCode)
	require.JSONEq(testInstance, `{"status":"ok"}`, string(body))
}

func TestMetricsServerRequiresAddress(testInstance *testing.T) {
	collector, collectorError := telemetry.NewCollector()
	require.NoError(testInstance, collectorError)

	server := telemetry.NewMetricsServer("  ", collector, nil)
	require.ErrorIs(testInstance, server.Start(), telemetry.ErrMetricsAddressRequired)
	require.NoError(testInstance, server.Shutdown(context.Background()))
}
