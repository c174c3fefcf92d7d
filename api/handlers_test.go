package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/config"
	"github.com/gcbaptista/go-entity-linker/internal/analytics"
	"github.com/gcbaptista/go-entity-linker/internal/disambiguation"
	"github.com/gcbaptista/go-entity-linker/internal/jobs"
	testutil "github.com/gcbaptista/go-entity-linker/internal/testing"
	"github.com/gcbaptista/go-entity-linker/model"
)

const parisText = "[[Paris]] is the capital of [[France]] and home of the [[Eiffel Tower]] on the seine"

type testAPI struct {
	router    *gin.Engine
	jobs      *jobs.Manager
	analytics *analytics.Service
}

func setupTestAPI(t *testing.T, withOptions bool) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.CreateTestKnowledgeBase(t, nil)
	tracker := analytics.NewService("", zap.NewNop())
	linker, err := disambiguation.NewService(store, config.LinkerSettings{Seed: 7}, zap.NewNop(),
		disambiguation.WithAnalytics(tracker))
	require.NoError(t, err)

	manager := jobs.NewManager(2, zap.NewNop())
	manager.Start()
	t.Cleanup(manager.Stop)

	opts := Options{}
	if withOptions {
		opts = Options{Jobs: manager, Analytics: tracker, Importer: store, MaxRequestBytes: 1 << 20}
	}

	router := gin.New()
	SetupRoutes(router, linker, opts)
	return &testAPI{router: router, jobs: manager, analytics: tracker}
}

func (a *testAPI) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return body
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) model.Result {
	t.Helper()
	var result model.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), w.Body.String())
	return result
}

func TestDisambiguateHandler_JSON(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodPost, "/disambiguate", mustJSON(t, gin.H{"text": parisText}), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.Empty(t, w.Header().Get("X-Error-Code"))

	result := decodeResult(t, w)
	assert.Equal(t, model.ServiceName, result.Service)
	assert.NotEmpty(t, result.RequestID)
	assert.Empty(t, result.Errors)
	assert.Greater(t, result.GlobalScore, 0.0)

	require.Len(t, result.Mappings, 3)
	want := map[string]int64{"paris": 1, "france": 10, "eiffel tower": 12}
	for _, m := range result.Mappings {
		require.NotNil(t, m.CandidateID, m.SurfaceForm)
		assert.Equal(t, want[m.SurfaceForm], *m.CandidateID, m.SurfaceForm)
	}
}

func TestDisambiguateHandler_XML(t *testing.T) {
	api := setupTestAPI(t, true)
	body := mustJSON(t, gin.H{"text": parisText})

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		wantXML bool
	}{
		{"accept header", "/disambiguate", map[string]string{"Accept": "application/xml"}, true},
		{"text xml accept header", "/disambiguate", map[string]string{"Accept": "text/xml"}, true},
		{"format query", "/disambiguate?format=xml", nil, true},
		{"format query wins over accept", "/disambiguate?format=json", map[string]string{"Accept": "application/xml"}, false},
		{"default is json", "/disambiguate", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, tt.path, body, tt.headers)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			if tt.wantXML {
				assert.Contains(t, w.Header().Get("Content-Type"), "xml")
				assert.True(t, strings.HasPrefix(w.Body.String(), "<message "), w.Body.String())
				assert.Contains(t, w.Body.String(), `surfaceForm="paris"`)
				assert.Contains(t, w.Body.String(), `wikiID="1">Paris</mapping>`)
			} else {
				assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
				assert.Equal(t, 3, len(decodeResult(t, w).Mappings))
			}
		})
	}
}

func TestDisambiguateHandler_FormRequest(t *testing.T) {
	api := setupTestAPI(t, true)

	form := url.Values{}
	form.Set("text", "Paris is the capital of France")
	form.Add("surface_forms", "Paris")
	form.Add("surface_forms", "France")
	form.Set("seed", "3")

	w := api.do(http.MethodPost, "/disambiguate", []byte(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeResult(t, w)
	require.Len(t, result.Mappings, 2)
	assert.Equal(t, "paris", result.Mappings[0].SurfaceForm)
	assert.Equal(t, int64(1), *result.Mappings[0].CandidateID)
}

func TestDisambiguateHandler_Failures(t *testing.T) {
	api := setupTestAPI(t, true)

	tests := []struct {
		name           string
		body           []byte
		expectedStatus int
		expectedCode   ErrorCode
		wantResult     bool
	}{
		{"empty text", mustJSON(t, gin.H{"text": "   "}), http.StatusBadRequest, ErrorCodeEmptyInput, true},
		{"no marked mentions", mustJSON(t, gin.H{"text": "nothing is marked here"}), http.StatusBadRequest, ErrorCodeNoMentions, true},
		{"unknown mentions", mustJSON(t, gin.H{"text": "[[Atlantis]] is lost"}), http.StatusUnprocessableEntity, ErrorCodeNoCandidates, true},
		{"invalid JSON", []byte(`{"text": `), http.StatusBadRequest, ErrorCodeInvalidJSON, false},
		{"blank surface form", mustJSON(t, gin.H{"text": "paris", "surface_forms": []string{" "}}), http.StatusBadRequest, ErrorCodeValidationFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/disambiguate", tt.body, nil)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.wantResult {
				assert.Equal(t, string(tt.expectedCode), w.Header().Get("X-Error-Code"))
				result := decodeResult(t, w)
				assert.NotEmpty(t, result.Errors)
				assert.Empty(t, result.Mappings)
				assert.Equal(t, 0.0, result.GlobalScore)
				return
			}

			var apiErr APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.expectedCode, apiErr.Code)
			assert.NotEmpty(t, apiErr.RequestID)
		})
	}
}

func TestDisambiguateHandler_NoCandidatesWarning(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodPost, "/disambiguate", mustJSON(t, gin.H{"text": "[[Atlantis]] and [[Paris]]"}), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeResult(t, w)
	assert.Contains(t, result.Warnings, "There are no candidates for named entity atlantis!")
	require.Len(t, result.Mappings, 2)
	assert.Nil(t, result.Mappings[0].CandidateID)
	assert.NotNil(t, result.Mappings[1].CandidateID)
}

func TestRequestSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := testutil.CreateTestKnowledgeBase(t, nil)
	linker, err := disambiguation.NewService(store, config.LinkerSettings{}, zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, linker, Options{MaxRequestBytes: 64})

	body := mustJSON(t, gin.H{"text": strings.Repeat("[[paris]] ", 50)})
	req := httptest.NewRequest(http.MethodPost, "/disambiguate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), string(ErrorCodeRequestTooLarge))
}

func TestDisambiguationJob(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodPost, "/jobs/disambiguate", mustJSON(t, gin.H{"text": parisText, "seed": 11}), nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	jobID, ok := accepted["job_id"].(string)
	require.True(t, ok)

	job := testutil.WaitForJobCompletion(t, api.jobs, jobID, testutil.DefaultJobPollingOptions())
	require.NotNil(t, job.Result)
	testutil.AssertJobCompleted(t, job, model.JobTypeDisambiguate, job.Result.RequestID)

	w = api.do(http.MethodGet, "/jobs/"+jobID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched model.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, model.JobStatusCompleted, fetched.Status)
	require.NotNil(t, fetched.Result)
	assert.Len(t, fetched.Result.Mappings, 3)
}

func TestDisambiguationJob_FailedRun(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodPost, "/jobs/disambiguate", mustJSON(t, gin.H{"text": "[[Atlantis]]"}), nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

	job := testutil.WaitForJobCompletion(t, api.jobs, accepted["job_id"], testutil.DefaultJobPollingOptions())
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "no candidates")
	require.NotNil(t, job.Result)
	assert.NotEmpty(t, job.Result.Errors)
}

const atlantisYAML = `
pages:
  - id: 50
    title: Atlantis
    context: {island: 3, plato: 2}
dictionary:
  - {surface_form: Atlantis, page_id: 50, count: 4}
links:
  - {source: 500, destination: 50}
`

func TestImportJob(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodPost, "/jobs/import?source=atlantis.yaml", []byte(atlantisYAML),
		map[string]string{"Content-Type": "application/yaml"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, float64(3), accepted["rows"])

	job := testutil.WaitForJobCompletion(t, api.jobs, accepted["job_id"].(string), testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeImport, "atlantis.yaml")
	assert.Equal(t, "1", job.Metadata["pages"])

	w = api.do(http.MethodPost, "/disambiguate", mustJSON(t, gin.H{"text": "[[Atlantis]] was an island"}), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeResult(t, w)
	require.Len(t, result.Mappings, 1)
	assert.Equal(t, int64(50), *result.Mappings[0].CandidateID)
}

func TestImportJob_RejectsInvalidData(t *testing.T) {
	api := setupTestAPI(t, true)

	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{"dangling dictionary row", `{"dictionary": [{"surface_form": "x", "page_id": 9, "count": 1}]}`, "application/json"},
		{"empty data", `{}`, "application/json"},
		{"broken yaml", "pages: [", "application/x-yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/jobs/import", []byte(tt.body), map[string]string{"Content-Type": tt.contentType})
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), string(ErrorCodeInvalidFixture))
		})
	}
	assert.Empty(t, api.jobs.ListJobs(nil))
}

func TestJobHandlers_NotFoundAndConflict(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodGet, "/jobs/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), string(ErrorCodeJobNotFound))

	w = api.do(http.MethodPost, "/jobs/missing/cancel", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPost, "/jobs/disambiguate", mustJSON(t, gin.H{"text": parisText}), nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	testutil.WaitForJobCompletion(t, api.jobs, accepted["job_id"], testutil.DefaultJobPollingOptions())

	w = api.do(http.MethodPost, "/jobs/"+accepted["job_id"]+"/cancel", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), string(ErrorCodeJobNotCancellable))
}

func TestListJobsHandler(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodPost, "/jobs/disambiguate", mustJSON(t, gin.H{"text": parisText}), nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	testutil.WaitForJobCompletion(t, api.jobs, accepted["job_id"], testutil.DefaultJobPollingOptions())

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedTotal  float64
	}{
		{"all jobs", "", http.StatusOK, 1},
		{"completed jobs", "?status=completed", http.StatusOK, 1},
		{"status is case insensitive", "?status=COMPLETED", http.StatusOK, 1},
		{"failed jobs", "?status=failed", http.StatusOK, 0},
		{"unknown status", "?status=sleeping", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodGet, "/jobs"+tt.query, nil, nil)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedTotal, body["total"])
		})
	}
}

func TestGetJobMetricsHandler(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodPost, "/jobs/disambiguate", mustJSON(t, gin.H{"text": parisText}), nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	testutil.WaitForJobCompletion(t, api.jobs, accepted["job_id"], testutil.DefaultJobPollingOptions())

	w = api.do(http.MethodGet, "/jobs/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Metrics     jobs.JobMetricsData `json:"metrics"`
		SuccessRate float64             `json:"success_rate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Metrics.JobsCreated)
	assert.Equal(t, int64(1), body.Metrics.JobsCompleted)
	assert.Equal(t, 1.0, body.SuccessRate)
}

func TestGetAnalyticsHandler(t *testing.T) {
	api := setupTestAPI(t, true)

	for range 2 {
		w := api.do(http.MethodPost, "/disambiguate", mustJSON(t, gin.H{"text": parisText}), nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := api.do(http.MethodPost, "/disambiguate", mustJSON(t, gin.H{"text": "[[Atlantis]]"}), nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(http.MethodGet, "/analytics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var dashboard model.AnalyticsDashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, 3, dashboard.TotalRuns)
	assert.Equal(t, 2, dashboard.Outcomes[model.OutcomeSuccess])
	assert.Equal(t, 1, dashboard.Outcomes[model.OutcomeNoCandidates])
	require.NotEmpty(t, dashboard.PopularSurfaceForms)
}

func TestHealthAndMetrics(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = api.do(http.MethodPost, "/disambiguate", mustJSON(t, gin.H{"text": parisText}), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "entity_linker_disambiguation_runs_total")
}

func TestGetSettingsHandler(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodGet, "/settings", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var settings config.LinkerSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, 10, settings.Neighbors)
	assert.Equal(t, int64(7), settings.Seed)
}

func TestOptionalRoutesWithoutCollaborators(t *testing.T) {
	api := setupTestAPI(t, false)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/analytics"},
		{http.MethodGet, "/jobs"},
		{http.MethodGet, "/jobs/metrics"},
		{http.MethodGet, "/jobs/some-id"},
		{http.MethodPost, "/jobs/disambiguate"},
		{http.MethodPost, "/jobs/import"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := api.do(tt.method, tt.path, mustJSON(t, gin.H{"text": parisText}), nil)
			assert.Equal(t, http.StatusNotImplemented, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), string(ErrorCodeNotSupported))
		})
	}

	// The synchronous endpoint works without any collaborator
	w := api.do(http.MethodPost, "/disambiguate", mustJSON(t, gin.H{"text": parisText}), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_CORSAndRequestID(t *testing.T) {
	api := setupTestAPI(t, true)

	w := api.do(http.MethodOptions, "/disambiguate", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = api.do(http.MethodGet, "/health", nil, map[string]string{requestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
}
