package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// DBMSCatalog identifies one version of a database product.
type DBMSCatalog struct {
	ID      int64    `json:"id" db:"id"`
	Type    DBMSType `json:"type" db:"type"`
	Version string   `json:"version" db:"version"`
}

// Name returns the product name for the catalog entry's type.
func (c *DBMSCatalog) Name() string {
	return c.Type.String()
}

// Key returns the catalog lookup key, e.g. "Postgres_9.6".
func (c *DBMSCatalog) Key() string {
	return fmt.Sprintf("%s_%s", c.Name(), c.Version)
}

// FullName returns the display name, e.g. "Postgres v9.6".
func (c *DBMSCatalog) FullName() string {
	return fmt.Sprintf("%s v%s", c.Name(), c.Version)
}

func (c *DBMSCatalog) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown dbms type code %d", int(c.Type))
	}
	if c.Version == "" {
		return fmt.Errorf("dbms version is required")
	}
	return nil
}

// KnobCatalog describes one tunable configuration parameter of a DBMS.
type KnobCatalog struct {
	ID          int64        `json:"id" db:"id"`
	DBMSID      int64        `json:"dbms_id" db:"dbms_id"`
	Name        string       `json:"name" db:"name"`
	VarType     VarType      `json:"vartype" db:"vartype"`
	Unit        KnobUnitType `json:"unit" db:"unit"`
	Category    string       `json:"category,omitempty" db:"category"`
	Summary     string       `json:"summary,omitempty" db:"summary"`
	Description string       `json:"description,omitempty" db:"description"`
	Scope       string       `json:"scope" db:"scope"`
	MinVal      string       `json:"minval,omitempty" db:"minval"`
	MaxVal      string       `json:"maxval,omitempty" db:"maxval"`
	Default     string       `json:"default" db:"default"`
	EnumVals    string       `json:"enumvals,omitempty" db:"enumvals"`
	Context     string       `json:"context" db:"context"`
	Tunable     bool         `json:"tunable" db:"tunable"`
}

func (k *KnobCatalog) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("knob name is required")
	}
	if !k.VarType.Valid() {
		return fmt.Errorf("knob %s: unknown vartype code %d", k.Name, int(k.VarType))
	}
	return nil
}

// MetricCatalog describes one measurable runtime metric of a DBMS.
type MetricCatalog struct {
	ID         int64      `json:"id" db:"id"`
	DBMSID     int64      `json:"dbms_id" db:"dbms_id"`
	Name       string     `json:"name" db:"name"`
	VarType    VarType    `json:"vartype" db:"vartype"`
	Summary    string     `json:"summary,omitempty" db:"summary"`
	Scope      string     `json:"scope" db:"scope"`
	MetricType MetricType `json:"metric_type" db:"metric_type"`
}

// Validate enforces that counter metrics are integer-valued.
func (m *MetricCatalog) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metric name is required")
	}
	if !m.VarType.Valid() {
		return fmt.Errorf("metric %s: unknown vartype code %d", m.Name, int(m.VarType))
	}
	if !m.MetricType.Valid() {
		return fmt.Errorf("metric %s: unknown metric type code %d", m.Name, int(m.MetricType))
	}
	if m.MetricType == MetricCounter && m.VarType != VarInteger {
		return fmt.Errorf("metric %s: counter metrics must be integers", m.Name)
	}
	return nil
}

// Project groups the tuning applications owned by one user.
type Project struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description,omitempty" db:"description"`
	CreationTime time.Time `json:"creation_time" db:"creation_time"`
	LastUpdate   time.Time `json:"last_update" db:"last_update"`
	UploadCode   string    `json:"upload_code" db:"upload_code"`
}

func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project name is required")
	}
	return nil
}

// Hardware is a machine profile referenced by applications and result data.
type Hardware struct {
	ID              int64        `json:"id" db:"id"`
	Type            HardwareType `json:"type" db:"type"`
	Name            string       `json:"name" db:"name"`
	CPU             int          `json:"cpu" db:"cpu"`
	Memory          float64      `json:"memory" db:"memory"`
	Storage         string       `json:"storage" db:"storage"`
	StorageType     string       `json:"storage_type" db:"storage_type"`
	AdditionalSpecs string       `json:"additional_specs,omitempty" db:"additional_specs"`
}

func (h *Hardware) Validate() error {
	if err := ValidateCommaSeparatedInts(h.Storage); err != nil {
		return fmt.Errorf("hardware storage: %w", err)
	}
	return nil
}

// Application is a target database under tuning, owned by a project.
type Application struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	HardwareID    int64     `json:"hardware_id" db:"hardware_id"`
	ProjectID     int64     `json:"project_id" db:"project_id"`
	CreationTime  time.Time `json:"creation_time" db:"creation_time"`
	LastUpdate    time.Time `json:"last_update" db:"last_update"`
	UploadCode    string    `json:"upload_code" db:"upload_code"`
	TuningSession bool      `json:"tuning_session" db:"tuning_session"`
}

func (a *Application) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if a.UploadCode == "" {
		return fmt.Errorf("application upload code is required")
	}
	return nil
}

// BenchmarkConfig is a workload definition tied to an application.
type BenchmarkConfig struct {
	ID                 int64           `json:"id" db:"id"`
	ApplicationID      int64           `json:"application_id" db:"application_id"`
	Name               string          `json:"name" db:"name"`
	Description        string          `json:"description,omitempty" db:"description"`
	Configuration      json.RawMessage `json:"configuration" db:"configuration"`
	BenchmarkType      string          `json:"benchmark_type" db:"benchmark_type"`
	CreationTime       time.Time       `json:"creation_time" db:"creation_time"`
	Isolation          string          `json:"isolation" db:"isolation"`
	ScaleFactor        float64         `json:"scalefactor" db:"scalefactor"`
	Terminals          int             `json:"terminals" db:"terminals"`
	Time               int             `json:"time" db:"time"`
	Rate               string          `json:"rate" db:"rate"`
	Skew               float64         `json:"skew,omitempty" db:"skew"`
	TransactionTypes   string          `json:"transaction_types" db:"transaction_types"`
	TransactionWeights string          `json:"transaction_weights" db:"transaction_weights"`
}

func (b *BenchmarkConfig) Validate() error {
	if b.Time <= 0 {
		return fmt.Errorf("benchmark time must be greater than 0")
	}
	if err := ValidateCommaSeparatedInts(b.TransactionTypes); err != nil {
		return fmt.Errorf("transaction types: %w", err)
	}
	if err := ValidateCommaSeparatedInts(b.TransactionWeights); err != nil {
		return fmt.Errorf("transaction weights: %w", err)
	}
	return nil
}

// FilterField describes one benchmark config column exposed as a result
// filter in the UI.
type FilterField struct {
	Field string `json:"field"`
	Label string `json:"print"`
}

// BenchmarkFilterFields lists the config columns results can be filtered by.
var BenchmarkFilterFields = []FilterField{
	{Field: "isolation", Label: "Isolation Level"},
	{Field: "scalefactor", Label: "Scale Factor"},
	{Field: "terminals", Label: "# of Terminals"},
}

// DBConf is a point-in-time snapshot of knob values for one application.
type DBConf struct {
	ID              int64           `json:"id" db:"id"`
	ApplicationID   int64           `json:"application_id" db:"application_id"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description" db:"description"`
	CreationTime    time.Time       `json:"creation_time" db:"creation_time"`
	Configuration   json.RawMessage `json:"configuration" db:"configuration"`
	OrigConfigDiffs string          `json:"orig_config_diffs" db:"orig_config_diffs"`
	DBMSID          int64           `json:"dbms_id" db:"dbms_id"`
}

// DBMSMetrics is a metrics snapshot captured over one execution run.
type DBMSMetrics struct {
	ID              int64           `json:"id" db:"id"`
	ApplicationID   int64           `json:"application_id" db:"application_id"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description" db:"description"`
	CreationTime    time.Time       `json:"creation_time" db:"creation_time"`
	ExecutionTime   int             `json:"execution_time" db:"execution_time"`
	Configuration   json.RawMessage `json:"configuration" db:"configuration"`
	OrigConfigDiffs string          `json:"orig_config_diffs" db:"orig_config_diffs"`
	DBMSID          int64           `json:"dbms_id" db:"dbms_id"`
}

func (m *DBMSMetrics) Validate() error {
	if m.ExecutionTime <= 0 {
		return fmt.Errorf("execution time must be greater than 0")
	}
	return nil
}

// Result links one benchmark execution's workload config, DBMS config
// snapshot, and metrics snapshot, with latency/throughput summary stats.
type Result struct {
	ID                int64           `json:"id" db:"id"`
	ApplicationID     int64           `json:"application_id" db:"application_id"`
	DBMSID            int64           `json:"dbms_id" db:"dbms_id"`
	BenchmarkConfigID int64           `json:"benchmark_config_id" db:"benchmark_config_id"`
	DBConfID          int64           `json:"dbms_config_id" db:"dbms_config_id"`
	DBMSMetricsID     int64           `json:"dbms_metrics_id" db:"dbms_metrics_id"`
	CreationTime      time.Time       `json:"creation_time" db:"creation_time"`
	Summary           string          `json:"summary" db:"summary"`
	Samples           json.RawMessage `json:"samples" db:"samples"`
	TaskIDs           string          `json:"task_ids,omitempty" db:"task_ids"`
	Timestamp         time.Time       `json:"timestamp" db:"timestamp"`
	Throughput        float64         `json:"throughput" db:"throughput"`
	AvgLatency        float64         `json:"avg_latency" db:"avg_latency"`
	MinLatency        float64         `json:"min_latency" db:"min_latency"`
	P25Latency        float64         `json:"p25_latency" db:"p25_latency"`
	P50Latency        float64         `json:"p50_latency" db:"p50_latency"`
	P75Latency        float64         `json:"p75_latency" db:"p75_latency"`
	P90Latency        float64         `json:"p90_latency" db:"p90_latency"`
	P95Latency        float64         `json:"p95_latency" db:"p95_latency"`
	P99Latency        float64         `json:"p99_latency" db:"p99_latency"`
	MaxLatency        float64         `json:"max_latency" db:"max_latency"`
	MostSimilar       string          `json:"most_similar" db:"most_similar"`
}

func (r *Result) Validate() error {
	if r.TaskIDs != "" {
		if err := ValidateCommaSeparatedInts(r.TaskIDs); err != nil {
			return fmt.Errorf("task ids: %w", err)
		}
	}
	if r.MostSimilar != "" {
		if err := ValidateCommaSeparatedInts(r.MostSimilar); err != nil {
			return fmt.Errorf("most similar: %w", err)
		}
	}
	return nil
}

// ResultData carries the raw parameter and metric payloads of one result.
type ResultData struct {
	ID         int64  `json:"id" db:"id"`
	DBMSID     int64  `json:"dbms_id" db:"dbms_id"`
	HardwareID int64  `json:"hardware_id" db:"hardware_id"`
	ResultID   int64  `json:"result_id" db:"result_id"`
	ParamData  string `json:"param_data" db:"param_data"`
	MetricData string `json:"metric_data" db:"metric_data"`
}

// Task tracks one background job attached to a result.
type Task struct {
	ID         int64      `json:"id" db:"id"`
	TaskMetaID string     `json:"taskmeta_id" db:"taskmeta_id"`
	StartTime  *time.Time `json:"start_time,omitempty" db:"start_time"`
	ResultID   int64      `json:"result_id" db:"result_id"`
	Type       TaskType   `json:"type" db:"type"`
	State      string     `json:"state" db:"state"`
}

// Statistics is one time-slice of a result's latency breakdown.
type Statistics struct {
	ID         int64   `json:"id" db:"id"`
	ResultID   int64   `json:"result_id" db:"result_id"`
	Time       int     `json:"time" db:"time"`
	Throughput float64 `json:"throughput" db:"throughput"`
	AvgLatency float64 `json:"avg_latency" db:"avg_latency"`
	MinLatency float64 `json:"min_latency" db:"min_latency"`
	P25Latency float64 `json:"p25_latency" db:"p25_latency"`
	P50Latency float64 `json:"p50_latency" db:"p50_latency"`
	P75Latency float64 `json:"p75_latency" db:"p75_latency"`
	P90Latency float64 `json:"p90_latency" db:"p90_latency"`
	P95Latency float64 `json:"p95_latency" db:"p95_latency"`
	P99Latency float64 `json:"p99_latency" db:"p99_latency"`
	MaxLatency float64 `json:"max_latency" db:"max_latency"`
}
