package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dbtune-service/service/config"
	"github.com/dbtune-service/service/snapshot"
	"github.com/dbtune-service/service/storage"
	"github.com/dbtune-service/service/types"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListDBMS(ctx context.Context) ([]*types.DBMSCatalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.DBMSCatalog), args.Error(1)
}

func (m *mockStore) GetDBMS(ctx context.Context, id int64) (*types.DBMSCatalog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DBMSCatalog), args.Error(1)
}

func (m *mockStore) ListKnobs(ctx context.Context, dbmsID int64) ([]*types.KnobCatalog, error) {
	args := m.Called(ctx, dbmsID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.KnobCatalog), args.Error(1)
}

func (m *mockStore) ListMetrics(ctx context.Context, dbmsID int64) ([]*types.MetricCatalog, error) {
	args := m.Called(ctx, dbmsID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.MetricCatalog), args.Error(1)
}

func (m *mockStore) InsertProject(ctx context.Context, p *types.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockStore) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Project), args.Error(1)
}

func (m *mockStore) ListProjects(ctx context.Context, userID int64) ([]*types.Project, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Project), args.Error(1)
}

func (m *mockStore) UpdateProject(ctx context.Context, p *types.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockStore) DeleteProject(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) InsertHardware(ctx context.Context, h *types.Hardware) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *mockStore) GetHardware(ctx context.Context, id int64) (*types.Hardware, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Hardware), args.Error(1)
}

func (m *mockStore) InsertApplication(ctx context.Context, a *types.Application) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockStore) GetApplication(ctx context.Context, id int64) (*types.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Application), args.Error(1)
}

func (m *mockStore) GetApplicationByUploadCode(ctx context.Context, code string) (*types.Application, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Application), args.Error(1)
}

func (m *mockStore) ListApplications(ctx context.Context, projectID int64) ([]*types.Application, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Application), args.Error(1)
}

func (m *mockStore) UpdateApplication(ctx context.Context, a *types.Application) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockStore) DeleteApplication(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) InsertBenchmarkConfig(ctx context.Context, b *types.BenchmarkConfig) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockStore) GetBenchmarkConfig(ctx context.Context, id int64) (*types.BenchmarkConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BenchmarkConfig), args.Error(1)
}

func (m *mockStore) ListBenchmarkConfigs(ctx context.Context, applicationID int64) ([]*types.BenchmarkConfig, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.BenchmarkConfig), args.Error(1)
}

func (m *mockStore) InsertDBConf(ctx context.Context, c *types.DBConf) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockStore) GetDBConf(ctx context.Context, id int64) (*types.DBConf, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DBConf), args.Error(1)
}

func (m *mockStore) ListDBConfs(ctx context.Context, applicationID int64) ([]*types.DBConf, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.DBConf), args.Error(1)
}

func (m *mockStore) InsertDBMSMetrics(ctx context.Context, mm *types.DBMSMetrics) error {
	args := m.Called(ctx, mm)
	return args.Error(0)
}

func (m *mockStore) GetDBMSMetrics(ctx context.Context, id int64) (*types.DBMSMetrics, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DBMSMetrics), args.Error(1)
}

func (m *mockStore) InsertResult(ctx context.Context, r *types.Result) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *mockStore) GetResult(ctx context.Context, id int64) (*types.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Result), args.Error(1)
}

func (m *mockStore) ListResults(ctx context.Context, filter storage.ResultFilter) ([]*types.Result, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Result), args.Error(1)
}

func (m *mockStore) DeleteResult(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) InsertResultData(ctx context.Context, rd *types.ResultData) error {
	args := m.Called(ctx, rd)
	return args.Error(0)
}

func (m *mockStore) GetResultData(ctx context.Context, resultID int64) ([]*types.ResultData, error) {
	args := m.Called(ctx, resultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.ResultData), args.Error(1)
}

func (m *mockStore) ListStatistics(ctx context.Context, resultID int64) ([]*types.Statistics, error) {
	args := m.Called(ctx, resultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Statistics), args.Error(1)
}

func (m *mockStore) GetTask(ctx context.Context, taskMetaID string) (*types.Task, error) {
	args := m.Called(ctx, taskMetaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Task), args.Error(1)
}

func (m *mockStore) ListTasksByResult(ctx context.Context, resultID int64) ([]*types.Task, error) {
	args := m.Called(ctx, resultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Task), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) Enqueue(resultID int64) error {
	args := m.Called(resultID)
	return args.Error(0)
}

func newTestServer(t *testing.T, store Store, jobs Jobs) *server {
	t.Helper()

	validator, err := snapshot.NewValidator()
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return NewServer(&config.ServerConfig{Addr: ":0"}, store, validator, jobs, log).(*server)
}

func doRequest(s *server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateProject(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	store.On("InsertProject", mock.Anything, mock.MatchedBy(func(p *types.Project) bool {
		return p.Name == "tpcc-tuning" && p.UploadCode != "" && !p.CreationTime.IsZero()
	})).Return(nil)

	rec := doRequest(s, "POST", "/api/projects", map[string]interface{}{
		"user_id": 1,
		"name":    "tpcc-tuning",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	store.AssertExpectations(t)
}

func TestHandleCreateProjectRejectsMissingName(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	rec := doRequest(s, "POST", "/api/projects", map[string]interface{}{"user_id": 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNotCalled(t, "InsertProject", mock.Anything, mock.Anything)
}

func TestHandleGetProjectNotFound(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	store.On("GetProject", mock.Anything, int64(42)).
		Return(nil, fmt.Errorf("project 42: %w", storage.ErrNotFound))

	rec := doRequest(s, "GET", "/api/projects/42", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListProjectsRequiresUser(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	rec := doRequest(s, "GET", "/api/projects", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTuningConfiguration(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	conf := &types.DBConf{
		ID:            5,
		DBMSID:        2,
		Configuration: json.RawMessage(`{"shared_buffers": "128MB", "port": 5432}`),
	}
	knobs := []*types.KnobCatalog{
		{Name: "port", Tunable: false},
		{Name: "shared_buffers", Tunable: true},
	}

	store.On("GetDBConf", mock.Anything, int64(5)).Return(conf, nil)
	store.On("ListKnobs", mock.Anything, int64(2)).Return(knobs, nil)

	rec := doRequest(s, "GET", "/api/dbconfs/5/tuning?all=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tuning []struct {
			Name  string      `json:"name"`
			Value interface{} `json:"value"`
		} `json:"tuning"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tuning, 2)
	assert.Equal(t, "port", body.Tuning[0].Name)
	assert.Equal(t, "--", body.Tuning[0].Value)
	assert.Equal(t, "shared_buffers", body.Tuning[1].Name)
	assert.Equal(t, "128MB", body.Tuning[1].Value)
}

func TestHandleNormalizedMetrics(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	m := &types.DBMSMetrics{
		ID:            3,
		DBMSID:        2,
		ExecutionTime: 100,
		Configuration: json.RawMessage(`{"xact_commit": 5000, "version": "9.6"}`),
	}
	metricCatalog := []*types.MetricCatalog{
		{Name: "version", VarType: types.VarString, MetricType: types.MetricInfo},
		{Name: "xact_commit", VarType: types.VarInteger, MetricType: types.MetricCounter},
	}

	store.On("GetDBMSMetrics", mock.Anything, int64(3)).Return(m, nil)
	store.On("ListMetrics", mock.Anything, int64(2)).Return(metricCatalog, nil)

	rec := doRequest(s, "GET", "/api/dbms-metrics/3/normalized", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Normalized []struct {
			Name  string      `json:"name"`
			Value interface{} `json:"value"`
		} `json:"normalized"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Normalized, 1)
	assert.Equal(t, "xact_commit", body.Normalized[0].Name)
	assert.InDelta(t, 50.0, body.Normalized[0].Value, 1e-9)
}

func TestHandleCreateDBConfRejectsInvalidPayload(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	rec := doRequest(s, "POST", "/api/applications/1/dbconfs", map[string]interface{}{
		"name":          "bad",
		"dbms_id":       2,
		"configuration": map[string]interface{}{},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNotCalled(t, "InsertDBConf", mock.Anything, mock.Anything)
}

func TestHandleUploadResult(t *testing.T) {
	store := new(mockStore)
	jobs := new(mockJobs)
	s := newTestServer(t, store, jobs)

	app := &types.Application{ID: 11, UploadCode: "code-abc"}

	store.On("GetApplicationByUploadCode", mock.Anything, "code-abc").Return(app, nil)
	store.On("InsertResult", mock.Anything, mock.MatchedBy(func(r *types.Result) bool {
		r.ID = 99
		return r.ApplicationID == 11 && r.Throughput == 250.0
	})).Return(nil)
	store.On("InsertResultData", mock.Anything, mock.MatchedBy(func(rd *types.ResultData) bool {
		return rd.ResultID == 99 && rd.ParamData == "k1=v1"
	})).Return(nil)
	jobs.On("Enqueue", int64(99)).Return(nil)

	rec := doRequest(s, "POST", "/api/results", map[string]interface{}{
		"upload_code": "code-abc",
		"hardware_id": 4,
		"param_data":  "k1=v1",
		"result": map[string]interface{}{
			"dbms_id":    2,
			"throughput": 250.0,
			"timestamp":  time.Now().Format(time.RFC3339),
		},
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	store.AssertExpectations(t)
	jobs.AssertExpectations(t)
}

func TestHandleUploadResultUnknownCode(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	store.On("GetApplicationByUploadCode", mock.Anything, "nope").
		Return(nil, fmt.Errorf("application with upload code nope: %w", storage.ErrNotFound))

	rec := doRequest(s, "POST", "/api/results", map[string]interface{}{
		"upload_code": "nope",
		"result":      map[string]interface{}{},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListResultsFilters(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	store.On("ListResults", mock.Anything, mock.MatchedBy(func(f storage.ResultFilter) bool {
		return f.ApplicationID == 7 && f.DBMSID == 2 && f.Limit == 10 && !f.Since.IsZero()
	})).Return([]*types.Result{{ID: 1}}, nil)

	rec := doRequest(s, "GET", "/api/results?application=7&dbms=2&limit=10&since=2026-01-01T00:00:00Z", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestHandleListResultsRejectsBadSince(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	rec := doRequest(s, "GET", "/api/results?since=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteProject(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	store.On("DeleteProject", mock.Anything, int64(3)).Return(nil)

	rec := doRequest(s, "DELETE", "/api/projects/3", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestHandleHealth(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	store.On("Ping", mock.Anything).Return(nil)

	rec := doRequest(s, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleHealthUnreachableDatabase(t *testing.T) {
	store := new(mockStore)
	s := newTestServer(t, store, new(mockJobs))

	store.On("Ping", mock.Anything).Return(fmt.Errorf("connection refused"))

	rec := doRequest(s, "GET", "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
