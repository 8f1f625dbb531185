package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dbtune-service/service/config"
	"github.com/dbtune-service/service/types"
)

// DatabaseTestSuite exercises the stores against a real PostgreSQL instance.
type DatabaseTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *Database
	ctx       context.Context
}

func (s *DatabaseTestSuite) SetupSuite() {
	s.ctx = context.Background()

	pgContainer, err := postgres.RunContainer(s.ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(s.T(), err)
	s.container = pgContainer

	mappedPort, err := pgContainer.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	cfg := &config.PostgreSQLConfig{
		Host:         "localhost",
		Port:         mappedPort.Int(),
		Database:     "testdb",
		User:         "testuser",
		Password:     "testpass",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	db, err := NewDatabase(cfg)
	require.NoError(s.T(), err)
	require.NoError(s.T(), db.Connect())
	s.db = db

	require.NoError(s.T(), RunMigrations(db.DB()))
}

func (s *DatabaseTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

func TestDatabaseTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(DatabaseTestSuite))
}

func (s *DatabaseTestSuite) TestMigrationsAreIdempotent() {
	// A second run must be a no-op.
	require.NoError(s.T(), RunMigrations(s.db.DB()))

	var count int
	err := s.db.DB().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count)
	require.NoError(s.T(), err)
	s.Equal(len(migrations), count)
}

func (s *DatabaseTestSuite) TestCatalogUpsert() {
	dbms := &types.DBMSCatalog{Type: types.DBMSPostgres, Version: "9.6"}
	require.NoError(s.T(), s.db.UpsertDBMS(s.ctx, dbms))
	firstID := dbms.ID
	s.NotZero(firstID)

	// Upserting the same type/version returns the same row.
	again := &types.DBMSCatalog{Type: types.DBMSPostgres, Version: "9.6"}
	require.NoError(s.T(), s.db.UpsertDBMS(s.ctx, again))
	s.Equal(firstID, again.ID)

	knob := &types.KnobCatalog{
		DBMSID:  dbms.ID,
		Name:    "shared_buffers",
		VarType: types.VarInteger,
		Unit:    types.UnitBytes,
		Scope:   "global",
		Default: "8192",
		Context: "postmaster",
		Tunable: true,
	}
	require.NoError(s.T(), s.db.UpsertKnob(s.ctx, knob))

	knob.Default = "16384"
	require.NoError(s.T(), s.db.UpsertKnob(s.ctx, knob))

	knobs, err := s.db.ListKnobs(s.ctx, dbms.ID)
	require.NoError(s.T(), err)

	var found *types.KnobCatalog
	for _, k := range knobs {
		if k.Name == "shared_buffers" {
			found = k
		}
	}
	require.NotNil(s.T(), found)
	s.Equal("16384", found.Default)

	metric := &types.MetricCatalog{
		DBMSID:     dbms.ID,
		Name:       "xact_commit",
		VarType:    types.VarInteger,
		Scope:      "global",
		MetricType: types.MetricCounter,
	}
	require.NoError(s.T(), s.db.UpsertMetric(s.ctx, metric))

	badMetric := &types.MetricCatalog{
		DBMSID:     dbms.ID,
		Name:       "bad_counter",
		VarType:    types.VarString,
		Scope:      "global",
		MetricType: types.MetricCounter,
	}
	s.Error(s.db.UpsertMetric(s.ctx, badMetric))
}

// seedTree inserts a project with one application carrying a benchmark
// config, a db conf, a metrics snapshot, and one result with child rows.
func (s *DatabaseTestSuite) seedTree(label string) (*types.Project, *types.Application, *types.Result) {
	now := time.Now()

	dbms := &types.DBMSCatalog{Type: types.DBMSMySQL, Version: "5.6"}
	require.NoError(s.T(), s.db.UpsertDBMS(s.ctx, dbms))

	hw := &types.Hardware{
		Type: types.HardwareGeneric, Name: "test-box", CPU: 4, Memory: 16,
		Storage: "32", StorageType: "SSD",
	}
	require.NoError(s.T(), s.db.InsertHardware(s.ctx, hw))

	p := &types.Project{
		UserID: 1, Name: "proj-" + label, CreationTime: now, LastUpdate: now,
		UploadCode: "proj-code-" + label,
	}
	require.NoError(s.T(), s.db.InsertProject(s.ctx, p))

	a := &types.Application{
		UserID: 1, Name: "app-" + label, Description: "test app",
		HardwareID: hw.ID, ProjectID: p.ID, CreationTime: now, LastUpdate: now,
		UploadCode: "app-code-" + label,
	}
	require.NoError(s.T(), s.db.InsertApplication(s.ctx, a))

	b := &types.BenchmarkConfig{
		ApplicationID: a.ID, Name: "tpcc", Configuration: json.RawMessage(`{}`),
		BenchmarkType: "tpcc", CreationTime: now, Isolation: "SERIALIZABLE",
		ScaleFactor: 1, Terminals: 8, Time: 300, Rate: "unlimited",
		TransactionTypes: "1,2,3", TransactionWeights: "45,43,12",
	}
	require.NoError(s.T(), s.db.InsertBenchmarkConfig(s.ctx, b))

	c := &types.DBConf{
		ApplicationID: a.ID, Name: "conf", Description: "snapshot",
		CreationTime: now, Configuration: json.RawMessage(`{"innodb_buffer_pool_size": "1G"}`),
		OrigConfigDiffs: "", DBMSID: dbms.ID,
	}
	require.NoError(s.T(), s.db.InsertDBConf(s.ctx, c))

	m := &types.DBMSMetrics{
		ApplicationID: a.ID, Name: "metrics", Description: "snapshot",
		CreationTime: now, ExecutionTime: 300,
		Configuration: json.RawMessage(`{"innodb_rows_read": 1000}`),
		OrigConfigDiffs: "", DBMSID: dbms.ID,
	}
	require.NoError(s.T(), s.db.InsertDBMSMetrics(s.ctx, m))

	r := &types.Result{
		ApplicationID: a.ID, DBMSID: dbms.ID, BenchmarkConfigID: b.ID,
		DBConfID: c.ID, DBMSMetricsID: m.ID, CreationTime: now,
		Summary: "{}", Timestamp: now, Throughput: 100,
		AvgLatency: 10, MinLatency: 1, P25Latency: 5, P50Latency: 8,
		P75Latency: 12, P90Latency: 20, P95Latency: 30, P99Latency: 50,
		MaxLatency: 80,
	}
	require.NoError(s.T(), s.db.InsertResult(s.ctx, r))

	rd := &types.ResultData{
		DBMSID: dbms.ID, HardwareID: hw.ID, ResultID: r.ID,
		ParamData: "k=v", MetricData: "m=1",
	}
	require.NoError(s.T(), s.db.InsertResultData(s.ctx, rd))

	task := &types.Task{
		TaskMetaID: "task-" + label, ResultID: r.ID, Type: types.TaskAggregate,
	}
	require.NoError(s.T(), s.db.InsertTask(s.ctx, task))

	stats := []*types.Statistics{
		{ResultID: r.ID, Time: 5, Throughput: 90, AvgLatency: 11},
		{ResultID: r.ID, Time: 10, Throughput: 110, AvgLatency: 9},
	}
	require.NoError(s.T(), s.db.InsertStatistics(s.ctx, stats))

	return p, a, r
}

func (s *DatabaseTestSuite) countRows(table, where string, args ...interface{}) int {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where)
	err := s.db.DB().QueryRow(query, args...).Scan(&count)
	require.NoError(s.T(), err)
	return count
}

func (s *DatabaseTestSuite) TestProjectCascadeDelete() {
	p, a, r := s.seedTree("cascade")

	require.NoError(s.T(), s.db.DeleteProject(s.ctx, p.ID))

	s.Zero(s.countRows("projects", "id = $1", p.ID))
	s.Zero(s.countRows("applications", "project_id = $1", p.ID))
	s.Zero(s.countRows("benchmark_configs", "application_id = $1", a.ID))
	s.Zero(s.countRows("db_confs", "application_id = $1", a.ID))
	s.Zero(s.countRows("dbms_metrics", "application_id = $1", a.ID))
	s.Zero(s.countRows("results", "application_id = $1", a.ID))
	s.Zero(s.countRows("result_data", "result_id = $1", r.ID))
	s.Zero(s.countRows("tasks", "result_id = $1", r.ID))
	s.Zero(s.countRows("statistics", "result_id = $1", r.ID))
}

func (s *DatabaseTestSuite) TestApplicationCascadeDelete() {
	_, a, r := s.seedTree("appdelete")

	require.NoError(s.T(), s.db.DeleteApplication(s.ctx, a.ID))

	s.Zero(s.countRows("applications", "id = $1", a.ID))
	s.Zero(s.countRows("results", "application_id = $1", a.ID))
	s.Zero(s.countRows("statistics", "result_id = $1", r.ID))
}

func (s *DatabaseTestSuite) TestDeleteResultCascade() {
	_, _, r := s.seedTree("resultdelete")

	require.NoError(s.T(), s.db.DeleteResult(s.ctx, r.ID))

	s.Zero(s.countRows("results", "id = $1", r.ID))
	s.Zero(s.countRows("result_data", "result_id = $1", r.ID))
	s.Zero(s.countRows("tasks", "result_id = $1", r.ID))
	s.Zero(s.countRows("statistics", "result_id = $1", r.ID))

	s.ErrorIs(s.db.DeleteResult(s.ctx, r.ID), ErrNotFound)
}

func (s *DatabaseTestSuite) TestGetApplicationByUploadCode() {
	_, a, _ := s.seedTree("uploadcode")

	got, err := s.db.GetApplicationByUploadCode(s.ctx, a.UploadCode)
	require.NoError(s.T(), err)
	s.Equal(a.ID, got.ID)

	_, err = s.db.GetApplicationByUploadCode(s.ctx, "missing-code")
	s.ErrorIs(err, ErrNotFound)
}

func (s *DatabaseTestSuite) TestListResultsFilters() {
	_, a, r := s.seedTree("filters")

	results, err := s.db.ListResults(s.ctx, ResultFilter{ApplicationID: a.ID})
	require.NoError(s.T(), err)
	s.Len(results, 1)
	s.Equal(r.ID, results[0].ID)

	results, err = s.db.ListResults(s.ctx, ResultFilter{
		ApplicationID: a.ID,
		Since:         time.Now().Add(time.Hour),
	})
	require.NoError(s.T(), err)
	s.Empty(results)

	results, err = s.db.ListResults(s.ctx, ResultFilter{ApplicationID: a.ID, Limit: 1, Offset: 1})
	require.NoError(s.T(), err)
	s.Empty(results)
}

func (s *DatabaseTestSuite) TestTaskStateTransitions() {
	_, _, r := s.seedTree("taskstate")

	tasks, err := s.db.ListTasksByResult(s.ctx, r.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 1)
	s.Equal(types.TaskStatePending, tasks[0].State)
	s.Nil(tasks[0].StartTime)

	require.NoError(s.T(), s.db.UpdateTaskState(s.ctx, tasks[0].TaskMetaID, types.TaskStateRunning))

	got, err := s.db.GetTask(s.ctx, tasks[0].TaskMetaID)
	require.NoError(s.T(), err)
	s.Equal(types.TaskStateRunning, got.State)
	s.NotNil(got.StartTime)

	s.ErrorIs(s.db.UpdateTaskState(s.ctx, "no-such-task", types.TaskStateSuccess), ErrNotFound)
}

func (s *DatabaseTestSuite) TestValidationRunsBeforeSQL() {
	_, a, _ := s.seedTree("validation")

	invalid := &types.BenchmarkConfig{
		ApplicationID: a.ID, Name: "bad", Configuration: json.RawMessage(`{}`),
		BenchmarkType: "tpcc", CreationTime: time.Now(), Isolation: "SERIALIZABLE",
		Time: 0, Rate: "unlimited",
		TransactionTypes: "1", TransactionWeights: "100",
	}
	s.Error(s.db.InsertBenchmarkConfig(s.ctx, invalid))

	badMetrics := &types.DBMSMetrics{
		ApplicationID: a.ID, Name: "bad", Description: "",
		CreationTime: time.Now(), ExecutionTime: 0,
		Configuration: json.RawMessage(`{}`), DBMSID: 1,
	}
	s.Error(s.db.InsertDBMSMetrics(s.ctx, badMetrics))
}

func (s *DatabaseTestSuite) TestDeleteResultsBefore() {
	_, _, r := s.seedTree("retention")

	// Cutoff in the past removes nothing.
	deleted, err := s.db.DeleteResultsBefore(s.ctx, time.Now().Add(-24*time.Hour))
	require.NoError(s.T(), err)
	s.Zero(deleted)

	deleted, err = s.db.DeleteResultsBefore(s.ctx, time.Now().Add(time.Hour))
	require.NoError(s.T(), err)
	s.GreaterOrEqual(deleted, 1)

	_, err = s.db.GetResult(s.ctx, r.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *DatabaseTestSuite) TestStatisticsOrdering() {
	_, _, r := s.seedTree("statsorder")

	stats, err := s.db.ListStatistics(s.ctx, r.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), stats, 2)
	s.Equal(5, stats[0].Time)
	s.Equal(10, stats[1].Time)
}
