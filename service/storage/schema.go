package storage

// Table schemas for the tuning service. Foreign keys are plain columns;
// deletion is propagated explicitly by the stores so that removing a parent
// never strands child rows behind a failed constraint.

const dbmsCatalogTable = `
CREATE TABLE IF NOT EXISTS dbms_catalog (
    id BIGSERIAL PRIMARY KEY,
    type INTEGER NOT NULL,
    version VARCHAR(16) NOT NULL,
    UNIQUE (type, version)
);`

const knobCatalogTable = `
CREATE TABLE IF NOT EXISTS knob_catalog (
    id BIGSERIAL PRIMARY KEY,
    dbms_id BIGINT NOT NULL,
    name VARCHAR(64) NOT NULL,
    vartype INTEGER NOT NULL,
    unit INTEGER NOT NULL,
    category TEXT,
    summary TEXT,
    description TEXT,
    scope VARCHAR(16) NOT NULL,
    minval VARCHAR(32),
    maxval VARCHAR(32),
    default_val TEXT NOT NULL,
    enumvals TEXT,
    context VARCHAR(32) NOT NULL,
    tunable BOOLEAN NOT NULL,
    UNIQUE (dbms_id, name)
);`

const metricCatalogTable = `
CREATE TABLE IF NOT EXISTS metric_catalog (
    id BIGSERIAL PRIMARY KEY,
    dbms_id BIGINT NOT NULL,
    name VARCHAR(64) NOT NULL,
    vartype INTEGER NOT NULL,
    summary TEXT,
    scope VARCHAR(16) NOT NULL,
    metric_type INTEGER NOT NULL,
    UNIQUE (dbms_id, name)
);`

const projectsTable = `
CREATE TABLE IF NOT EXISTS projects (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    name VARCHAR(64) NOT NULL,
    description TEXT,
    creation_time TIMESTAMPTZ NOT NULL,
    last_update TIMESTAMPTZ NOT NULL,
    upload_code VARCHAR(30) NOT NULL
);`

const hardwareTable = `
CREATE TABLE IF NOT EXISTS hardware (
    id BIGSERIAL PRIMARY KEY,
    type INTEGER NOT NULL,
    name VARCHAR(32) NOT NULL,
    cpu INTEGER NOT NULL,
    memory DOUBLE PRECISION NOT NULL,
    storage VARCHAR(64) NOT NULL,
    storage_type VARCHAR(16) NOT NULL,
    additional_specs TEXT
);`

const applicationsTable = `
CREATE TABLE IF NOT EXISTS applications (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    name VARCHAR(64) NOT NULL,
    description TEXT NOT NULL,
    hardware_id BIGINT NOT NULL,
    project_id BIGINT NOT NULL,
    creation_time TIMESTAMPTZ NOT NULL,
    last_update TIMESTAMPTZ NOT NULL,
    upload_code VARCHAR(30) NOT NULL UNIQUE,
    tuning_session BOOLEAN NOT NULL
);`

const benchmarkConfigsTable = `
CREATE TABLE IF NOT EXISTS benchmark_configs (
    id BIGSERIAL PRIMARY KEY,
    application_id BIGINT NOT NULL,
    name VARCHAR(64) NOT NULL,
    description VARCHAR(512),
    configuration JSONB NOT NULL,
    benchmark_type VARCHAR(64) NOT NULL,
    creation_time TIMESTAMPTZ NOT NULL,
    isolation VARCHAR(64) NOT NULL,
    scalefactor DOUBLE PRECISION NOT NULL,
    terminals INTEGER NOT NULL,
    time INTEGER NOT NULL,
    rate VARCHAR(32) NOT NULL,
    skew DOUBLE PRECISION,
    transaction_types TEXT NOT NULL,
    transaction_weights TEXT NOT NULL
);`

const dbConfsTable = `
CREATE TABLE IF NOT EXISTS db_confs (
    id BIGSERIAL PRIMARY KEY,
    application_id BIGINT NOT NULL,
    name VARCHAR(50) NOT NULL,
    description VARCHAR(512) NOT NULL,
    creation_time TIMESTAMPTZ NOT NULL,
    configuration JSONB NOT NULL,
    orig_config_diffs TEXT NOT NULL,
    dbms_id BIGINT NOT NULL
);`

const dbmsMetricsTable = `
CREATE TABLE IF NOT EXISTS dbms_metrics (
    id BIGSERIAL PRIMARY KEY,
    application_id BIGINT NOT NULL,
    name VARCHAR(50) NOT NULL,
    description VARCHAR(512) NOT NULL,
    creation_time TIMESTAMPTZ NOT NULL,
    execution_time INTEGER NOT NULL,
    configuration JSONB NOT NULL,
    orig_config_diffs TEXT NOT NULL,
    dbms_id BIGINT NOT NULL
);`

const resultsTable = `
CREATE TABLE IF NOT EXISTS results (
    id BIGSERIAL PRIMARY KEY,
    application_id BIGINT NOT NULL,
    dbms_id BIGINT NOT NULL,
    benchmark_config_id BIGINT NOT NULL,
    dbms_config_id BIGINT NOT NULL,
    dbms_metrics_id BIGINT NOT NULL,
    creation_time TIMESTAMPTZ NOT NULL,
    summary TEXT NOT NULL,
    samples JSONB,
    task_ids VARCHAR(64),
    timestamp TIMESTAMPTZ NOT NULL,
    throughput DOUBLE PRECISION NOT NULL,
    avg_latency DOUBLE PRECISION NOT NULL,
    min_latency DOUBLE PRECISION NOT NULL,
    p25_latency DOUBLE PRECISION NOT NULL,
    p50_latency DOUBLE PRECISION NOT NULL,
    p75_latency DOUBLE PRECISION NOT NULL,
    p90_latency DOUBLE PRECISION NOT NULL,
    p95_latency DOUBLE PRECISION NOT NULL,
    p99_latency DOUBLE PRECISION NOT NULL,
    max_latency DOUBLE PRECISION NOT NULL,
    most_similar VARCHAR(100)
);`

const resultDataTable = `
CREATE TABLE IF NOT EXISTS result_data (
    id BIGSERIAL PRIMARY KEY,
    dbms_id BIGINT NOT NULL,
    hardware_id BIGINT NOT NULL,
    result_id BIGINT NOT NULL,
    param_data TEXT NOT NULL,
    metric_data TEXT NOT NULL
);`

const tasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
    id BIGSERIAL PRIMARY KEY,
    taskmeta_id VARCHAR(255) NOT NULL UNIQUE,
    start_time TIMESTAMPTZ,
    result_id BIGINT NOT NULL,
    type INTEGER NOT NULL,
    state VARCHAR(16) NOT NULL DEFAULT 'pending'
);`

const statisticsTable = `
CREATE TABLE IF NOT EXISTS statistics (
    id BIGSERIAL PRIMARY KEY,
    result_id BIGINT NOT NULL,
    time INTEGER NOT NULL,
    throughput DOUBLE PRECISION NOT NULL,
    avg_latency DOUBLE PRECISION NOT NULL,
    min_latency DOUBLE PRECISION NOT NULL,
    p25_latency DOUBLE PRECISION NOT NULL,
    p50_latency DOUBLE PRECISION NOT NULL,
    p75_latency DOUBLE PRECISION NOT NULL,
    p90_latency DOUBLE PRECISION NOT NULL,
    p95_latency DOUBLE PRECISION NOT NULL,
    p99_latency DOUBLE PRECISION NOT NULL,
    max_latency DOUBLE PRECISION NOT NULL
);`
