package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/scour/api"
	"github.com/TFMV/scour/pkg/quality"
)

func newServer(t *testing.T) *api.Server {
	t.Helper()
	s := api.NewServer(api.ServerOptions{Port: "3000", Prefork: false})
	require.NotNil(t, s, "Expected a non-nil server instance")
	return s
}

func post(t *testing.T, s *api.Server, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.GetApp().Test(req, -1)
	require.NoError(t, err)
	return resp
}

// TestHealthEndpoint checks if the /health endpoint returns "OK"
func TestHealthEndpoint(t *testing.T) {
	s := newServer(t)
	resp, err := s.GetApp().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

// versionResponse is used for JSON unmarshalling in the /version endpoint test
type versionResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Build   string `json:"build"`
	Time    string `json:"time"`
}

// TestVersionEndpoint checks if the /version endpoint returns the correct JSON structure
func TestVersionEndpoint(t *testing.T) {
	s := newServer(t)
	resp, err := s.GetApp().Test(httptest.NewRequest(http.MethodGet, "/version", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var v versionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "Scour API", v.Service)
	assert.NotEmpty(t, v.Version)
	assert.NotEmpty(t, v.Build)
	assert.NotEmpty(t, v.Time)
}

const ageBody = `{
  "name": "people",
  "rows": [{"age": 25}, {"age": null}, {"age": 30}, {"age": null}, {"age": 40}],
  "suggestions": {"age": {"action": "DeleteEverything"}}
}`

func TestProfileEndpoint(t *testing.T) {
	s := newServer(t)
	resp := post(t, s, "/v1/profile", ageBody)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.ProfileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "people", out.Dataset)
	require.Len(t, out.Profiles, 1)
	assert.Equal(t, 2, out.Profiles[0].MissingCount)
	assert.Less(t, out.Score, 1.0)

	var kinds []quality.IssueKind
	for _, issue := range out.Issues {
		kinds = append(kinds, issue.Kind)
	}
	assert.Contains(t, kinds, quality.MissingValues)
}

func TestCleanEndpoint(t *testing.T) {
	s := newServer(t)
	resp := post(t, s, "/v1/clean", ageBody)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.CleanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, []string{"age"}, out.Cleaned.Columns)
	require.Len(t, out.Cleaned.Rows, 5)
	require.NotNil(t, out.Cleaned.Rows[1][0])
	assert.Equal(t, "30", *out.Cleaned.Rows[1][0])
	assert.GreaterOrEqual(t, out.Report.PostScore, out.Report.PreScore)
	require.NotEmpty(t, out.Report.Warnings)
	assert.Contains(t, out.Report.Warnings[0].Message, "DeleteEverything")
}

func TestBadRequests(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"no rows", `{"name": "x"}`},
		{"rows not objects", `{"rows": [1, 2]}`},
		{"empty rows", `{"rows": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, s, "/v1/clean", tt.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	resp := post(t, s, "/v1/clean", ageBody)
	resp.Body.Close()

	resp, err := s.GetApp().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `scour_runs_total{status="succeeded"} 1`)
}

// TestShutdown verifies that calling Shutdown on the server does not return an error
func TestShutdown(t *testing.T) {
	s := newServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
