package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacancy-report-service/internal/config"
	"vacancy-report-service/internal/models"
	"vacancy-report-service/internal/pipeline"
	"vacancy-report-service/internal/registry"
	"vacancy-report-service/internal/sfclient"
)

// newTestServer backs the API with a stub HR source. gate, when non-nil,
// blocks every stage-1 position fetch until closed.
func newTestServer(t *testing.T, gate chan struct{}) *httptest.Server {
	t.Helper()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gate != nil {
			<-gate
		}
		var rows []json.RawMessage
		filter := r.URL.Query().Get("$filter")
		if strings.Contains(filter, "businessUnit") && r.URL.Query().Get("$skip") == "0" {
			rows = []json.RawMessage{
				json.RawMessage(`{"code":"P1","externalName_defaultValue":"Role P1","effectiveStartDate":"2024-01-01"}`),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"d": map[string]any{"results": rows}})
	}))
	t.Cleanup(source.Close)

	jobs := registry.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{PageSize: 100, StageConcurrency: 2}
	pl := pipeline.New(cfg, sfclient.New(source.URL), jobs, nil, log)

	srv := httptest.NewServer(New(jobs, pl, nil, log).Router())
	t.Cleanup(srv.Close)
	return srv
}

func startJob(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/vacancy-jobs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestStartJobReturnsImmediately(t *testing.T) {
	gate := make(chan struct{})
	srv := newTestServer(t, gate)

	resp := startJob(t, srv, `{"ic":"1000","empGroup":"E1"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var payload struct {
		JobID          string                   `json:"jobId"`
		TotalPositions int                      `json:"totalPositions"`
		TotalVacancies int                      `json:"totalVacancies"`
		Results        []models.EnrichedVacancy `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotEmpty(t, payload.JobID)
	assert.Zero(t, payload.TotalPositions)
	assert.Zero(t, payload.TotalVacancies)
	assert.Empty(t, payload.Results)

	// The pipeline is still blocked on the gated source.
	status := getStatus(t, srv, payload.JobID)
	assert.Equal(t, models.StatusRunning, status.Status)

	close(gate)
	require.Eventually(t, func() bool {
		return getStatus(t, srv, payload.JobID).Status == models.StatusSuccess
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartJobValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing empGroup", `{"ic":"1000"}`},
		{"missing ic", `{"empGroup":"E1"}`},
		{"empty body", `{}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := startJob(t, srv, tt.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestJobStatusUnknownIDKeepsPollerShape(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/vacancy-jobs/does-not-exist/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status jobStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, models.StatusError, status.Status)
	assert.Equal(t, "invalid jobId", status.Message)
	assert.Zero(t, status.Progress)
	assert.Zero(t, status.Total)
}

func TestJobResultUnknownID(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/vacancy-jobs/does-not-exist/result")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCompletedJobResultAndIdempotentPolling(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := startJob(t, srv, `{"ic":"1000","empGroup":"E1"}`)
	var submitted struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return getStatus(t, srv, submitted.JobID).Status == models.StatusSuccess
	}, 5*time.Second, 10*time.Millisecond)

	first := getStatus(t, srv, submitted.JobID)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, getStatus(t, srv, submitted.JobID))
	}
	assert.Equal(t, first.Progress, first.Total)

	result := getResult(t, srv, submitted.JobID)
	assert.Equal(t, submitted.JobID, result.JobID)
	assert.Equal(t, 1, result.TotalPositions)
	assert.Equal(t, 1, result.TotalVacancies)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "P1", result.Results[0].PositionCode)
	assert.GreaterOrEqual(t, result.Results[0].ReporteeCount, 0)
}

func getStatus(t *testing.T, srv *httptest.Server, jobID string) jobStatusResponse {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/vacancy-jobs/%s/status", srv.URL, jobID))
	require.NoError(t, err)
	defer resp.Body.Close()
	var status jobStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	return status
}

func getResult(t *testing.T, srv *httptest.Server, jobID string) jobResultResponse {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/vacancy-jobs/%s/result", srv.URL, jobID))
	require.NoError(t, err)
	defer resp.Body.Close()
	var result jobResultResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}
