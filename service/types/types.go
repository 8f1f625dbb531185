package types

import "fmt"

// DBMSType identifies a supported database product.
type DBMSType int

const (
	DBMSMySQL DBMSType = iota + 1
	DBMSPostgres
	DBMSDb2
	DBMSOracle
	DBMSSQLServer
	DBMSSQLite
	DBMSHStore
	DBMSVector
	DBMSMyRocks
)

var dbmsTypeNames = map[DBMSType]string{
	DBMSMySQL:     "MySQL",
	DBMSPostgres:  "Postgres",
	DBMSDb2:       "Db2",
	DBMSOracle:    "Oracle",
	DBMSSQLServer: "SQL Server",
	DBMSSQLite:    "SQLite",
	DBMSHStore:    "HStore",
	DBMSVector:    "Vector",
	DBMSMyRocks:   "MyRocks",
}

func (t DBMSType) String() string {
	if name, ok := dbmsTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// Valid reports whether t is a known DBMS type code.
func (t DBMSType) Valid() bool {
	_, ok := dbmsTypeNames[t]
	return ok
}

// VarType is the value type of a knob or metric.
type VarType int

const (
	VarString VarType = iota + 1
	VarInteger
	VarReal
	VarBool
	VarEnum
	VarTimestamp
)

var varTypeNames = map[VarType]string{
	VarString:    "STRING",
	VarInteger:   "INTEGER",
	VarReal:      "REAL",
	VarBool:      "BOOL",
	VarEnum:      "ENUM",
	VarTimestamp: "TIMESTAMP",
}

func (t VarType) String() string {
	if name, ok := varTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

func (t VarType) Valid() bool {
	_, ok := varTypeNames[t]
	return ok
}

// MetricType classifies how a runtime metric behaves over time.
type MetricType int

const (
	// MetricCounter is a monotonically increasing value, normalized by
	// execution time when building derived views.
	MetricCounter MetricType = iota + 1
	MetricInfo
	MetricStatistics
)

var metricTypeNames = map[MetricType]string{
	MetricCounter:    "COUNTER",
	MetricInfo:       "INFO",
	MetricStatistics: "STATISTICS",
}

func (t MetricType) String() string {
	if name, ok := metricTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

func (t MetricType) Valid() bool {
	_, ok := metricTypeNames[t]
	return ok
}

// KnobUnitType is the unit a knob value is expressed in.
type KnobUnitType int

const (
	UnitBytes KnobUnitType = iota + 1
	UnitMilliseconds
	UnitOther
)

var knobUnitNames = map[KnobUnitType]string{
	UnitBytes:        "bytes",
	UnitMilliseconds: "milliseconds",
	UnitOther:        "other",
}

func (u KnobUnitType) String() string {
	if name, ok := knobUnitNames[u]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(u))
}

// HardwareType identifies a machine profile class.
type HardwareType int

const (
	HardwareGeneric HardwareType = iota + 1
	HardwareEC2M3Xlarge
	HardwareEC2M32Xlarge
	HardwareEC2C3Large
	HardwareEC2C3Xlarge
	HardwareEC2C32Xlarge
	HardwareEC2R3Large
	HardwareEC2R3Xlarge
)

var hardwareTypeNames = map[HardwareType]string{
	HardwareGeneric:      "generic",
	HardwareEC2M3Xlarge:  "m3.xlarge",
	HardwareEC2M32Xlarge: "m3.2xlarge",
	HardwareEC2C3Large:   "c3.large",
	HardwareEC2C3Xlarge:  "c3.xlarge",
	HardwareEC2C32Xlarge: "c3.2xlarge",
	HardwareEC2R3Large:   "r3.large",
	HardwareEC2R3Xlarge:  "r3.xlarge",
}

func (t HardwareType) String() string {
	if name, ok := hardwareTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// TaskType identifies a kind of background task attached to a result.
type TaskType int

const (
	TaskAggregate TaskType = iota + 1
	TaskMap
	TaskRun
)

var taskTypeNames = map[TaskType]string{
	TaskAggregate: "aggregate",
	TaskMap:       "map",
	TaskRun:       "run",
}

func (t TaskType) String() string {
	if name, ok := taskTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// Task states recorded by the aggregation worker.
const (
	TaskStatePending = "pending"
	TaskStateRunning = "running"
	TaskStateSuccess = "success"
	TaskStateFailure = "failure"
)
