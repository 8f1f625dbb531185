package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dbtune-service/service/catalog"
	"github.com/dbtune-service/service/hwinfo"
	"github.com/dbtune-service/service/storage"
	"github.com/dbtune-service/service/types"
)

// pathID parses the named mux variable as an int64 row ID.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// writeStoreError maps storage errors to HTTP responses.
func (s *server) writeStoreError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, storage.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, what+" not found")
		return
	}
	s.log.WithError(err).Error("Storage operation failed")
	s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to access "+what)
}

// Catalog Handlers

// handleListDBMS lists all registered DBMS catalog entries
func (s *server) handleListDBMS(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListDBMS(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "dbms catalog")
		return
	}

	type dbmsEntry struct {
		*types.DBMSCatalog
		Name     string `json:"name"`
		Key      string `json:"key"`
		FullName string `json:"full_name"`
	}
	out := make([]dbmsEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, dbmsEntry{DBMSCatalog: e, Name: e.Name(), Key: e.Key(), FullName: e.FullName()})
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"dbms":  out,
		"count": len(out),
	})
}

// handleListKnobs lists the knob catalog of one DBMS
func (s *server) handleListKnobs(w http.ResponseWriter, r *http.Request) {
	dbmsID, err := pathID(r, "dbmsId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// Optional tunable-only filter
	tunableOnly := r.URL.Query().Get("tunable") == "true"

	knobs, err := s.store.ListKnobs(r.Context(), dbmsID)
	if err != nil {
		s.writeStoreError(w, err, "knob catalog")
		return
	}

	if tunableOnly {
		filtered := knobs[:0]
		for _, k := range knobs {
			if k.Tunable {
				filtered = append(filtered, k)
			}
		}
		knobs = filtered
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"knobs": knobs,
		"count": len(knobs),
	})
}

// handleListMetrics lists the metric catalog of one DBMS
func (s *server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	dbmsID, err := pathID(r, "dbmsId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	metrics, err := s.store.ListMetrics(r.Context(), dbmsID)
	if err != nil {
		s.writeStoreError(w, err, "metric catalog")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"metrics": metrics,
		"count":   len(metrics),
	})
}

// Project Handlers

// handleListProjects lists the projects of one user
func (s *server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	userStr := r.URL.Query().Get("user")
	userID, err := strconv.ParseInt(userStr, 10, 64)
	if err != nil || userID <= 0 {
		s.writeErrorResponse(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	projects, err := s.store.ListProjects(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, err, "projects")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

// handleCreateProject creates a new project
func (s *server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p types.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := p.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	p.CreationTime = now
	p.LastUpdate = now
	if p.UploadCode == "" {
		p.UploadCode = uuid.New().String()[:30]
	}

	if err := s.store.InsertProject(r.Context(), &p); err != nil {
		s.writeStoreError(w, err, "project")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, p)
}

// handleGetProject retrieves a project
func (s *server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "project")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, p)
}

// handleUpdateProject updates a project's name and description
func (s *server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var p types.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p.ID = id
	p.LastUpdate = time.Now()

	if err := s.store.UpdateProject(r.Context(), &p); err != nil {
		s.writeStoreError(w, err, "project")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, p)
}

// handleDeleteProject deletes a project and everything it owns
func (s *server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		s.writeStoreError(w, err, "project")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Project deleted successfully",
	})
}

// Application Handlers

// handleListApplications lists the applications of one project
func (s *server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	apps, err := s.store.ListApplications(r.Context(), projectID)
	if err != nil {
		s.writeStoreError(w, err, "applications")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
		"count":        len(apps),
	})
}

// handleCreateApplication creates a new application under a project
func (s *server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var a types.Application
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now()
	a.ProjectID = projectID
	a.CreationTime = now
	a.LastUpdate = now
	if a.UploadCode == "" {
		a.UploadCode = uuid.New().String()[:30]
	}

	if err := a.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.InsertApplication(r.Context(), &a); err != nil {
		s.writeStoreError(w, err, "application")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, a)
}

// handleGetApplication retrieves an application
func (s *server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "appId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.store.GetApplication(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "application")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, a)
}

// handleUpdateApplication updates an application's mutable fields
func (s *server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "appId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.store.GetApplication(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "application")
		return
	}

	var a types.Application
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a.ID = id
	a.UploadCode = existing.UploadCode
	a.LastUpdate = time.Now()

	if err := s.store.UpdateApplication(r.Context(), &a); err != nil {
		s.writeStoreError(w, err, "application")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, a)
}

// handleDeleteApplication deletes an application and everything it owns
func (s *server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "appId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteApplication(r.Context(), id); err != nil {
		s.writeStoreError(w, err, "application")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Application deleted successfully",
	})
}

// Hardware Handlers

// handleCreateHardware registers a machine profile
func (s *server) handleCreateHardware(w http.ResponseWriter, r *http.Request) {
	var h types.Hardware
	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.InsertHardware(r.Context(), &h); err != nil {
		s.writeStoreError(w, err, "hardware")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, h)
}

// handleGetHardware retrieves a machine profile
func (s *server) handleGetHardware(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "hardwareId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h, err := s.store.GetHardware(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "hardware")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, h)
}

// handleDetectHardware reports the service host's own hardware profile, as a
// starting point for registering new machines.
func (s *server) handleDetectHardware(w http.ResponseWriter, r *http.Request) {
	h, err := hwinfo.Detect()
	if err != nil {
		s.log.WithError(err).Error("Failed to detect local hardware")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to detect hardware")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, h)
}

// Benchmark Config Handlers

// handleListBenchmarkConfigs lists the workload definitions of an application
func (s *server) handleListBenchmarkConfigs(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	configs, err := s.store.ListBenchmarkConfigs(r.Context(), appID)
	if err != nil {
		s.writeStoreError(w, err, "benchmark configs")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"benchmark_configs": configs,
		"count":             len(configs),
		"filters":           types.BenchmarkFilterFields,
	})
}

// handleCreateBenchmarkConfig records a workload definition
func (s *server) handleCreateBenchmarkConfig(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var b types.BenchmarkConfig
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.ApplicationID = appID
	b.CreationTime = time.Now()

	if err := b.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.InsertBenchmarkConfig(r.Context(), &b); err != nil {
		s.writeStoreError(w, err, "benchmark config")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, b)
}

// handleGetBenchmarkConfig retrieves a workload definition
func (s *server) handleGetBenchmarkConfig(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "configId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.store.GetBenchmarkConfig(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "benchmark config")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, b)
}

// DBConf Handlers

// handleListDBConfs lists the configuration snapshots of an application
func (s *server) handleListDBConfs(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	confs, err := s.store.ListDBConfs(r.Context(), appID)
	if err != nil {
		s.writeStoreError(w, err, "db confs")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"dbconfs": confs,
		"count":   len(confs),
	})
}

// handleCreateDBConf records a configuration snapshot after schema validation
func (s *server) handleCreateDBConf(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var c types.DBConf
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.validator.ValidateDBConf(c.Configuration); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	c.ApplicationID = appID
	c.CreationTime = time.Now()

	if err := s.store.InsertDBConf(r.Context(), &c); err != nil {
		s.writeStoreError(w, err, "db conf")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, c)
}

// handleGetDBConf retrieves a configuration snapshot
func (s *server) handleGetDBConf(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "confId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.store.GetDBConf(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "db conf")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, c)
}

// handleTuningConfiguration returns the tunable-knob view of a snapshot
func (s *server) handleTuningConfiguration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "confId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	includeAll := r.URL.Query().Get("all") == "true"

	conf, err := s.store.GetDBConf(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "db conf")
		return
	}

	knobs, err := s.store.ListKnobs(r.Context(), conf.DBMSID)
	if err != nil {
		s.writeStoreError(w, err, "knob catalog")
		return
	}

	params, err := catalog.TuningConfiguration(conf, knobs, includeAll)
	if err != nil {
		s.log.WithError(err).WithField("dbconf_id", id).Error("Failed to build tuning configuration")
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"dbconf_id": id,
		"dbms_id":   conf.DBMSID,
		"tuning":    params,
	})
}

// DBMS Metrics Handlers

// handleCreateDBMSMetrics records a metrics snapshot after schema validation
func (s *server) handleCreateDBMSMetrics(w http.ResponseWriter, r *http.Request) {
	appID, err := pathID(r, "appId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var m types.DBMSMetrics
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	envelope, err := json.Marshal(map[string]interface{}{
		"execution_time": m.ExecutionTime,
		"metrics":        m.Configuration,
	})
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid metrics payload")
		return
	}
	if err := s.validator.ValidateDBMSMetrics(envelope); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	m.ApplicationID = appID
	m.CreationTime = time.Now()

	if err := s.store.InsertDBMSMetrics(r.Context(), &m); err != nil {
		s.writeStoreError(w, err, "dbms metrics")
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, m)
}

// handleGetDBMSMetrics retrieves a metrics snapshot
func (s *server) handleGetDBMSMetrics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "metricsId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := s.store.GetDBMSMetrics(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "dbms metrics")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, m)
}

// handleNormalizedMetrics returns the counter metrics of a snapshot divided
// by its execution time
func (s *server) handleNormalizedMetrics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "metricsId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	includeAll := r.URL.Query().Get("all") == "true"

	m, err := s.store.GetDBMSMetrics(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "dbms metrics")
		return
	}

	metricCatalog, err := s.store.ListMetrics(r.Context(), m.DBMSID)
	if err != nil {
		s.writeStoreError(w, err, "metric catalog")
		return
	}

	normalized, err := catalog.NormalizedMetrics(m, metricCatalog, includeAll)
	if err != nil {
		s.log.WithError(err).WithField("metrics_id", id).Error("Failed to normalize metrics")
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"metrics_id":     id,
		"dbms_id":        m.DBMSID,
		"execution_time": m.ExecutionTime,
		"normalized":     normalized,
	})
}

// Result Handlers

// ResultUpload is the payload a benchmark driver posts after a run.
type ResultUpload struct {
	UploadCode string       `json:"upload_code"`
	Result     types.Result `json:"result"`
	HardwareID int64        `json:"hardware_id"`
	ParamData  string       `json:"param_data,omitempty"`
	MetricData string       `json:"metric_data,omitempty"`
}

// handleUploadResult records a benchmark outcome, its raw data, and queues
// statistics aggregation
func (s *server) handleUploadResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ResultUpload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UploadCode == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Upload code is required")
		return
	}

	app, err := s.store.GetApplicationByUploadCode(ctx, req.UploadCode)
	if err != nil {
		s.writeStoreError(w, err, "application")
		return
	}

	result := req.Result
	result.ApplicationID = app.ID
	result.CreationTime = time.Now()
	if result.Timestamp.IsZero() {
		result.Timestamp = result.CreationTime
	}

	if err := result.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.InsertResult(ctx, &result); err != nil {
		s.writeStoreError(w, err, "result")
		return
	}

	if req.ParamData != "" || req.MetricData != "" {
		rd := &types.ResultData{
			DBMSID:     result.DBMSID,
			HardwareID: req.HardwareID,
			ResultID:   result.ID,
			ParamData:  req.ParamData,
			MetricData: req.MetricData,
		}
		if err := s.store.InsertResultData(ctx, rd); err != nil {
			s.writeStoreError(w, err, "result data")
			return
		}
	}

	if err := s.jobs.Enqueue(result.ID); err != nil {
		s.log.WithError(err).WithField("result_id", result.ID).Warn("Failed to queue statistics aggregation")
	}

	resultUploadsTotal.Inc()
	s.writeJSONResponse(w, http.StatusCreated, result)
}

// handleListResults lists results matching the query filters
func (s *server) handleListResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.ResultFilter{Limit: 50}

	if v := q.Get("application"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid application filter")
			return
		}
		filter.ApplicationID = id
	}

	if v := q.Get("dbms"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid dbms filter")
			return
		}
		filter.DBMSID = id
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid since filter, expected RFC3339")
			return
		}
		filter.Since = since
	}

	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}

	results, err := s.store.ListResults(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, err, "results")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"results":   results,
		"count":     len(results),
		"limit":     filter.Limit,
		"plottable": types.PlottableFields,
	})
}

// handleGetResult retrieves a result
func (s *server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "resultId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.store.GetResult(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "result")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, result)
}

// handleDeleteResult deletes a result and its child rows
func (s *server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "resultId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteResult(r.Context(), id); err != nil {
		s.writeStoreError(w, err, "result")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Result deleted successfully",
	})
}

// handleListStatistics lists the time-series breakdown of a result
func (s *server) handleListStatistics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "resultId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.store.ListStatistics(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "statistics")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"result_id":  id,
		"statistics": stats,
		"count":      len(stats),
		"meta":       types.MetricMetadata,
	})
}

// handleGetResultData retrieves the raw payload rows of a result
func (s *server) handleGetResultData(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "resultId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.store.GetResultData(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "result data")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"result_id": id,
		"data":      data,
		"count":     len(data),
	})
}

// handleListResultTasks lists the background tasks attached to a result
func (s *server) handleListResultTasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "resultId")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := s.store.ListTasksByResult(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "tasks")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"result_id": id,
		"tasks":     tasks,
		"count":     len(tasks),
	})
}

// handleGetTask retrieves a task by its taskmeta identifier
func (s *server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskMetaID := mux.Vars(r)["taskmetaId"]
	if taskMetaID == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Task ID is required")
		return
	}

	task, err := s.store.GetTask(r.Context(), taskMetaID)
	if err != nil {
		s.writeStoreError(w, err, "task")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, task)
}

// handleHealth provides a health check endpoint
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"services": map[string]string{
			"database": "connected",
		},
	}

	if err := s.store.Ping(r.Context()); err != nil {
		status["status"] = "unhealthy"
		status["services"].(map[string]string)["database"] = "disconnected"
		s.writeJSONResponse(w, http.StatusServiceUnavailable, status)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, status)
}
