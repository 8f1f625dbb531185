package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dbtune-service/service/config"
	"github.com/dbtune-service/service/snapshot"
	"github.com/dbtune-service/service/storage"
	"github.com/dbtune-service/service/types"
)

// Store is the persistence surface the API needs.
type Store interface {
	// catalog
	ListDBMS(ctx context.Context) ([]*types.DBMSCatalog, error)
	GetDBMS(ctx context.Context, id int64) (*types.DBMSCatalog, error)
	ListKnobs(ctx context.Context, dbmsID int64) ([]*types.KnobCatalog, error)
	ListMetrics(ctx context.Context, dbmsID int64) ([]*types.MetricCatalog, error)

	// projects and applications
	InsertProject(ctx context.Context, p *types.Project) error
	GetProject(ctx context.Context, id int64) (*types.Project, error)
	ListProjects(ctx context.Context, userID int64) ([]*types.Project, error)
	UpdateProject(ctx context.Context, p *types.Project) error
	DeleteProject(ctx context.Context, id int64) error
	InsertHardware(ctx context.Context, h *types.Hardware) error
	GetHardware(ctx context.Context, id int64) (*types.Hardware, error)
	InsertApplication(ctx context.Context, a *types.Application) error
	GetApplication(ctx context.Context, id int64) (*types.Application, error)
	GetApplicationByUploadCode(ctx context.Context, code string) (*types.Application, error)
	ListApplications(ctx context.Context, projectID int64) ([]*types.Application, error)
	UpdateApplication(ctx context.Context, a *types.Application) error
	DeleteApplication(ctx context.Context, id int64) error

	// workload definitions and snapshots
	InsertBenchmarkConfig(ctx context.Context, b *types.BenchmarkConfig) error
	GetBenchmarkConfig(ctx context.Context, id int64) (*types.BenchmarkConfig, error)
	ListBenchmarkConfigs(ctx context.Context, applicationID int64) ([]*types.BenchmarkConfig, error)
	InsertDBConf(ctx context.Context, c *types.DBConf) error
	GetDBConf(ctx context.Context, id int64) (*types.DBConf, error)
	ListDBConfs(ctx context.Context, applicationID int64) ([]*types.DBConf, error)
	InsertDBMSMetrics(ctx context.Context, m *types.DBMSMetrics) error
	GetDBMSMetrics(ctx context.Context, id int64) (*types.DBMSMetrics, error)

	// results
	InsertResult(ctx context.Context, r *types.Result) error
	GetResult(ctx context.Context, id int64) (*types.Result, error)
	ListResults(ctx context.Context, filter storage.ResultFilter) ([]*types.Result, error)
	DeleteResult(ctx context.Context, id int64) error
	InsertResultData(ctx context.Context, rd *types.ResultData) error
	GetResultData(ctx context.Context, resultID int64) ([]*types.ResultData, error)
	ListStatistics(ctx context.Context, resultID int64) ([]*types.Statistics, error)

	// tasks
	GetTask(ctx context.Context, taskMetaID string) (*types.Task, error)
	ListTasksByResult(ctx context.Context, resultID int64) ([]*types.Task, error)

	Ping(ctx context.Context) error
}

// Jobs schedules background aggregation for uploaded results.
type Jobs interface {
	Enqueue(resultID int64) error
}

// Server provides the HTTP API for the tuning service.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
	NotifyTaskUpdate(task *types.Task)
}

// server implements the API server
type server struct {
	cfg         *config.ServerConfig
	store       Store
	validator   *snapshot.Validator
	jobs        Jobs
	log         logrus.FieldLogger
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	wsMu        sync.Mutex
	wsClients   map[*websocket.Conn]bool
	wsBroadcast chan []byte
	wsClosed    bool
}

// NewServer creates a new API server instance
func NewServer(
	cfg *config.ServerConfig,
	store Store,
	validator *snapshot.Validator,
	jobs Jobs,
	log logrus.FieldLogger,
) Server {
	return &server{
		cfg:       cfg,
		store:     store,
		validator: validator,
		jobs:      jobs,
		log:       log.WithField("component", "api-server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow connections from any origin
			},
		},
		wsClients:   make(map[*websocket.Conn]bool),
		wsBroadcast: make(chan []byte, 16),
	}
}

// Start initializes and starts the HTTP API server
func (s *server) Start(ctx context.Context) error {
	s.log.Info("Starting API server")

	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start WebSocket hub
	go s.handleWebSocketHub()

	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("API server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP API server
func (s *server) Stop() error {
	s.log.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.wsMu.Lock()
	for client := range s.wsClients {
		client.Close()
	}
	s.wsClosed = true
	close(s.wsBroadcast)
	s.wsMu.Unlock()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.WithError(err).Error("Failed to shutdown API server gracefully")
		return err
	}

	s.log.Info("API server stopped")
	return nil
}

// setupRoutes configures all HTTP routes and middleware
func (s *server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(s.enableCORS)
	router.Use(s.loggingMiddleware)
	router.Use(s.errorHandlingMiddleware)
	router.Use(s.instrumentationMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	// Catalog endpoints
	api.HandleFunc("/catalog/dbms", s.handleListDBMS).Methods("GET", "OPTIONS")
	api.HandleFunc("/catalog/dbms/{dbmsId}/knobs", s.handleListKnobs).Methods("GET", "OPTIONS")
	api.HandleFunc("/catalog/dbms/{dbmsId}/metrics", s.handleListMetrics).Methods("GET", "OPTIONS")

	// Project endpoints
	api.HandleFunc("/projects", s.handleListProjects).Methods("GET", "OPTIONS")
	api.HandleFunc("/projects", s.handleCreateProject).Methods("POST", "OPTIONS")
	api.HandleFunc("/projects/{projectId}", s.handleGetProject).Methods("GET", "OPTIONS")
	api.HandleFunc("/projects/{projectId}", s.handleUpdateProject).Methods("PUT", "OPTIONS")
	api.HandleFunc("/projects/{projectId}", s.handleDeleteProject).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/projects/{projectId}/applications", s.handleListApplications).Methods("GET", "OPTIONS")
	api.HandleFunc("/projects/{projectId}/applications", s.handleCreateApplication).Methods("POST", "OPTIONS")

	// Application endpoints
	api.HandleFunc("/applications/{appId}", s.handleGetApplication).Methods("GET", "OPTIONS")
	api.HandleFunc("/applications/{appId}", s.handleUpdateApplication).Methods("PUT", "OPTIONS")
	api.HandleFunc("/applications/{appId}", s.handleDeleteApplication).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/applications/{appId}/benchmark-configs", s.handleListBenchmarkConfigs).Methods("GET", "OPTIONS")
	api.HandleFunc("/applications/{appId}/benchmark-configs", s.handleCreateBenchmarkConfig).Methods("POST", "OPTIONS")
	api.HandleFunc("/applications/{appId}/dbconfs", s.handleListDBConfs).Methods("GET", "OPTIONS")
	api.HandleFunc("/applications/{appId}/dbconfs", s.handleCreateDBConf).Methods("POST", "OPTIONS")
	api.HandleFunc("/applications/{appId}/dbms-metrics", s.handleCreateDBMSMetrics).Methods("POST", "OPTIONS")

	// Snapshot and derived-view endpoints
	api.HandleFunc("/benchmark-configs/{configId}", s.handleGetBenchmarkConfig).Methods("GET", "OPTIONS")
	api.HandleFunc("/dbconfs/{confId}", s.handleGetDBConf).Methods("GET", "OPTIONS")
	api.HandleFunc("/dbconfs/{confId}/tuning", s.handleTuningConfiguration).Methods("GET", "OPTIONS")
	api.HandleFunc("/dbms-metrics/{metricsId}", s.handleGetDBMSMetrics).Methods("GET", "OPTIONS")
	api.HandleFunc("/dbms-metrics/{metricsId}/normalized", s.handleNormalizedMetrics).Methods("GET", "OPTIONS")

	// Hardware endpoints
	api.HandleFunc("/hardware", s.handleCreateHardware).Methods("POST", "OPTIONS")
	api.HandleFunc("/hardware/local", s.handleDetectHardware).Methods("GET", "OPTIONS")
	api.HandleFunc("/hardware/{hardwareId}", s.handleGetHardware).Methods("GET", "OPTIONS")

	// Result endpoints
	api.HandleFunc("/results", s.handleListResults).Methods("GET", "OPTIONS")
	api.HandleFunc("/results", s.handleUploadResult).Methods("POST", "OPTIONS")
	api.HandleFunc("/results/{resultId}", s.handleGetResult).Methods("GET", "OPTIONS")
	api.HandleFunc("/results/{resultId}", s.handleDeleteResult).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/results/{resultId}/statistics", s.handleListStatistics).Methods("GET", "OPTIONS")
	api.HandleFunc("/results/{resultId}/data", s.handleGetResultData).Methods("GET", "OPTIONS")
	api.HandleFunc("/results/{resultId}/tasks", s.handleListResultTasks).Methods("GET", "OPTIONS")

	// Task endpoints
	api.HandleFunc("/tasks/{taskmetaId}", s.handleGetTask).Methods("GET", "OPTIONS")

	// WebSocket endpoint for real-time task updates
	api.HandleFunc("/ws", s.handleWebSocket)

	api.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	return router
}

// enableCORS adds CORS headers to responses
func (s *server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapper.statusCode,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request processed")
	})
}

// errorHandlingMiddleware provides centralized error handling
func (s *server) errorHandlingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.WithField("error", err).Error("Panic in HTTP handler")
				s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status codes
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Hijack exposes the underlying connection so the WebSocket upgrade works
// through the middleware chain.
func (w *responseWriterWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// writeJSONResponse writes a JSON response with the given status code
func (s *server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response with the given status code and message
func (s *server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  statusCode,
	})
}
