package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbtune-service/service/types"
)

// InsertBenchmarkConfig inserts a workload definition row.
func (d *Database) InsertBenchmarkConfig(ctx context.Context, b *types.BenchmarkConfig) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid benchmark config: %w", err)
	}

	query := `
		INSERT INTO benchmark_configs (
			application_id, name, description, configuration, benchmark_type,
			creation_time, isolation, scalefactor, terminals, time, rate, skew,
			transaction_types, transaction_weights
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		b.ApplicationID, b.Name, b.Description, []byte(b.Configuration),
		b.BenchmarkType, b.CreationTime, b.Isolation, b.ScaleFactor,
		b.Terminals, b.Time, b.Rate, b.Skew, b.TransactionTypes, b.TransactionWeights,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("failed to insert benchmark config: %w", err)
	}
	return nil
}

// GetBenchmarkConfig retrieves a workload definition by ID.
func (d *Database) GetBenchmarkConfig(ctx context.Context, id int64) (*types.BenchmarkConfig, error) {
	query := `
		SELECT id, application_id, name, description, configuration, benchmark_type,
			creation_time, isolation, scalefactor, terminals, time, rate, skew,
			transaction_types, transaction_weights
		FROM benchmark_configs WHERE id = $1`

	var b types.BenchmarkConfig
	var description sql.NullString
	var skew sql.NullFloat64
	var configuration []byte
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.ApplicationID, &b.Name, &description, &configuration,
		&b.BenchmarkType, &b.CreationTime, &b.Isolation, &b.ScaleFactor,
		&b.Terminals, &b.Time, &b.Rate, &skew, &b.TransactionTypes, &b.TransactionWeights,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("benchmark config %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get benchmark config: %w", err)
	}
	b.Description = description.String
	b.Skew = skew.Float64
	b.Configuration = configuration
	return &b, nil
}

// ListBenchmarkConfigs lists the workload definitions of one application.
func (d *Database) ListBenchmarkConfigs(ctx context.Context, applicationID int64) ([]*types.BenchmarkConfig, error) {
	query := `
		SELECT id, application_id, name, description, configuration, benchmark_type,
			creation_time, isolation, scalefactor, terminals, time, rate, skew,
			transaction_types, transaction_weights
		FROM benchmark_configs WHERE application_id = $1 ORDER BY creation_time DESC`

	rows, err := d.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmark configs: %w", err)
	}
	defer rows.Close()

	var out []*types.BenchmarkConfig
	for rows.Next() {
		var b types.BenchmarkConfig
		var description sql.NullString
		var skew sql.NullFloat64
		var configuration []byte
		err := rows.Scan(&b.ID, &b.ApplicationID, &b.Name, &description, &configuration,
			&b.BenchmarkType, &b.CreationTime, &b.Isolation, &b.ScaleFactor,
			&b.Terminals, &b.Time, &b.Rate, &skew, &b.TransactionTypes, &b.TransactionWeights)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benchmark config row: %w", err)
		}
		b.Description = description.String
		b.Skew = skew.Float64
		b.Configuration = configuration
		out = append(out, &b)
	}
	return out, rows.Err()
}

// InsertDBConf inserts a configuration snapshot row.
func (d *Database) InsertDBConf(ctx context.Context, c *types.DBConf) error {
	query := `
		INSERT INTO db_confs (
			application_id, name, description, creation_time, configuration,
			orig_config_diffs, dbms_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		c.ApplicationID, c.Name, c.Description, c.CreationTime,
		[]byte(c.Configuration), c.OrigConfigDiffs, c.DBMSID,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert db conf: %w", err)
	}
	return nil
}

// GetDBConf retrieves a configuration snapshot by ID.
func (d *Database) GetDBConf(ctx context.Context, id int64) (*types.DBConf, error) {
	query := `
		SELECT id, application_id, name, description, creation_time,
			configuration, orig_config_diffs, dbms_id
		FROM db_confs WHERE id = $1`

	var c types.DBConf
	var configuration []byte
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ApplicationID, &c.Name, &c.Description, &c.CreationTime,
		&configuration, &c.OrigConfigDiffs, &c.DBMSID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("db conf %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get db conf: %w", err)
	}
	c.Configuration = configuration
	return &c, nil
}

// ListDBConfs lists the configuration snapshots of one application.
func (d *Database) ListDBConfs(ctx context.Context, applicationID int64) ([]*types.DBConf, error) {
	query := `
		SELECT id, application_id, name, description, creation_time,
			configuration, orig_config_diffs, dbms_id
		FROM db_confs WHERE application_id = $1 ORDER BY creation_time DESC`

	rows, err := d.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list db confs: %w", err)
	}
	defer rows.Close()

	var out []*types.DBConf
	for rows.Next() {
		var c types.DBConf
		var configuration []byte
		err := rows.Scan(&c.ID, &c.ApplicationID, &c.Name, &c.Description,
			&c.CreationTime, &configuration, &c.OrigConfigDiffs, &c.DBMSID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan db conf row: %w", err)
		}
		c.Configuration = configuration
		out = append(out, &c)
	}
	return out, rows.Err()
}

// InsertDBMSMetrics inserts a metrics snapshot row.
func (d *Database) InsertDBMSMetrics(ctx context.Context, m *types.DBMSMetrics) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid dbms metrics snapshot: %w", err)
	}

	query := `
		INSERT INTO dbms_metrics (
			application_id, name, description, creation_time, execution_time,
			configuration, orig_config_diffs, dbms_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		m.ApplicationID, m.Name, m.Description, m.CreationTime, m.ExecutionTime,
		[]byte(m.Configuration), m.OrigConfigDiffs, m.DBMSID,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to insert dbms metrics: %w", err)
	}
	return nil
}

// GetDBMSMetrics retrieves a metrics snapshot by ID.
func (d *Database) GetDBMSMetrics(ctx context.Context, id int64) (*types.DBMSMetrics, error) {
	query := `
		SELECT id, application_id, name, description, creation_time,
			execution_time, configuration, orig_config_diffs, dbms_id
		FROM dbms_metrics WHERE id = $1`

	var m types.DBMSMetrics
	var configuration []byte
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.ApplicationID, &m.Name, &m.Description, &m.CreationTime,
		&m.ExecutionTime, &configuration, &m.OrigConfigDiffs, &m.DBMSID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("dbms metrics %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dbms metrics: %w", err)
	}
	m.Configuration = configuration
	return &m, nil
}

// ResultFilter narrows ListResults. Zero values are ignored.
type ResultFilter struct {
	ApplicationID int64
	DBMSID        int64
	Since         time.Time
	Limit         int
	Offset        int
}

// InsertResult inserts a result row.
func (d *Database) InsertResult(ctx context.Context, r *types.Result) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}

	query := `
		INSERT INTO results (
			application_id, dbms_id, benchmark_config_id, dbms_config_id,
			dbms_metrics_id, creation_time, summary, samples, task_ids,
			timestamp, throughput, avg_latency, min_latency, p25_latency,
			p50_latency, p75_latency, p90_latency, p95_latency, p99_latency,
			max_latency, most_similar
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		r.ApplicationID, r.DBMSID, r.BenchmarkConfigID, r.DBConfID,
		r.DBMSMetricsID, r.CreationTime, r.Summary, []byte(r.Samples),
		r.TaskIDs, r.Timestamp, r.Throughput, r.AvgLatency, r.MinLatency,
		r.P25Latency, r.P50Latency, r.P75Latency, r.P90Latency, r.P95Latency,
		r.P99Latency, r.MaxLatency, r.MostSimilar,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	d.log.WithField("result_id", r.ID).Debug("Inserted result")
	return nil
}

const resultColumns = `id, application_id, dbms_id, benchmark_config_id,
	dbms_config_id, dbms_metrics_id, creation_time, summary, samples, task_ids,
	timestamp, throughput, avg_latency, min_latency, p25_latency, p50_latency,
	p75_latency, p90_latency, p95_latency, p99_latency, max_latency, most_similar`

func scanResult(scan func(dest ...interface{}) error) (*types.Result, error) {
	var r types.Result
	var samples []byte
	var taskIDs, mostSimilar sql.NullString
	err := scan(
		&r.ID, &r.ApplicationID, &r.DBMSID, &r.BenchmarkConfigID, &r.DBConfID,
		&r.DBMSMetricsID, &r.CreationTime, &r.Summary, &samples, &taskIDs,
		&r.Timestamp, &r.Throughput, &r.AvgLatency, &r.MinLatency,
		&r.P25Latency, &r.P50Latency, &r.P75Latency, &r.P90Latency,
		&r.P95Latency, &r.P99Latency, &r.MaxLatency, &mostSimilar,
	)
	if err != nil {
		return nil, err
	}
	r.Samples = samples
	r.TaskIDs = taskIDs.String
	r.MostSimilar = mostSimilar.String
	return &r, nil
}

// GetResult retrieves a result by ID.
func (d *Database) GetResult(ctx context.Context, id int64) (*types.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE id = $1`

	row := d.db.QueryRowContext(ctx, query, id)
	r, err := scanResult(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("result %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return r, nil
}

// ListResults lists results matching the filter, newest first.
func (d *Database) ListResults(ctx context.Context, filter ResultFilter) ([]*types.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE 1=1`

	args := []interface{}{}
	argCount := 1

	if filter.ApplicationID != 0 {
		query += fmt.Sprintf(" AND application_id = $%d", argCount)
		args = append(args, filter.ApplicationID)
		argCount++
	}

	if filter.DBMSID != 0 {
		query += fmt.Sprintf(" AND dbms_id = $%d", argCount)
		args = append(args, filter.DBMSID)
		argCount++
	}

	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND timestamp >= $%d", argCount)
		args = append(args, filter.Since)
		argCount++
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []*types.Result
	for rows.Next() {
		r, err := scanResult(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteResult deletes a result and its result data, tasks, and statistics
// in one transaction.
func (d *Database) DeleteResult(ctx context.Context, id int64) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteResultTx(ctx, tx, id); err != nil {
			return err
		}
		d.log.WithField("result_id", id).Info("Deleted result")
		return nil
	})
}

// DeleteResultsBefore removes results older than the cutoff, cascading to
// their child rows. Used by retention cleanup.
func (d *Database) DeleteResultsBefore(ctx context.Context, before time.Time) (int, error) {
	var deleted int
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM results WHERE timestamp < $1`, before)
		if err != nil {
			return fmt.Errorf("failed to list expired results: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan result id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to iterate result ids: %w", err)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, id := range ids {
			if err := deleteResultTx(ctx, tx, id); err != nil {
				return err
			}
		}
		deleted = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	d.log.WithField("deleted_count", deleted).Info("Deleted expired results")
	return deleted, nil
}

// deleteResultTx removes a result row and its child rows.
func deleteResultTx(ctx context.Context, tx *sql.Tx, id int64) error {
	children := []struct {
		table string
		query string
	}{
		{"result_data", `DELETE FROM result_data WHERE result_id = $1`},
		{"tasks", `DELETE FROM tasks WHERE result_id = $1`},
		{"statistics", `DELETE FROM statistics WHERE result_id = $1`},
	}
	for _, c := range children {
		if _, err := tx.ExecContext(ctx, c.query, id); err != nil {
			return fmt.Errorf("failed to delete %s for result %d: %w", c.table, id, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("result %d: %w", id, ErrNotFound)
	}
	return nil
}

// InsertResultData inserts the raw parameter/metric payload of one result.
func (d *Database) InsertResultData(ctx context.Context, rd *types.ResultData) error {
	query := `
		INSERT INTO result_data (dbms_id, hardware_id, result_id, param_data, metric_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		rd.DBMSID, rd.HardwareID, rd.ResultID, rd.ParamData, rd.MetricData,
	).Scan(&rd.ID)
	if err != nil {
		return fmt.Errorf("failed to insert result data: %w", err)
	}
	return nil
}

// GetResultData retrieves the raw payload rows of one result.
func (d *Database) GetResultData(ctx context.Context, resultID int64) ([]*types.ResultData, error) {
	query := `
		SELECT id, dbms_id, hardware_id, result_id, param_data, metric_data
		FROM result_data WHERE result_id = $1 ORDER BY id`

	rows, err := d.db.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result data: %w", err)
	}
	defer rows.Close()

	var out []*types.ResultData
	for rows.Next() {
		var rd types.ResultData
		if err := rows.Scan(&rd.ID, &rd.DBMSID, &rd.HardwareID, &rd.ResultID, &rd.ParamData, &rd.MetricData); err != nil {
			return nil, fmt.Errorf("failed to scan result data row: %w", err)
		}
		out = append(out, &rd)
	}
	return out, rows.Err()
}

// InsertStatistics batch-inserts the time-series breakdown of one result.
func (d *Database) InsertStatistics(ctx context.Context, stats []*types.Statistics) error {
	if len(stats) == 0 {
		return nil
	}

	query := `
		INSERT INTO statistics (
			result_id, time, throughput, avg_latency, min_latency, p25_latency,
			p50_latency, p75_latency, p90_latency, p95_latency, p99_latency, max_latency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	stmt, err := d.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range stats {
		err := stmt.QueryRowContext(ctx,
			s.ResultID, s.Time, s.Throughput, s.AvgLatency, s.MinLatency,
			s.P25Latency, s.P50Latency, s.P75Latency, s.P90Latency,
			s.P95Latency, s.P99Latency, s.MaxLatency,
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("failed to insert statistics row: %w", err)
		}
	}

	d.log.WithField("count", len(stats)).Debug("Inserted statistics")
	return nil
}

// ListStatistics lists the time-series breakdown of a result in time order.
func (d *Database) ListStatistics(ctx context.Context, resultID int64) ([]*types.Statistics, error) {
	query := `
		SELECT id, result_id, time, throughput, avg_latency, min_latency,
			p25_latency, p50_latency, p75_latency, p90_latency, p95_latency,
			p99_latency, max_latency
		FROM statistics WHERE result_id = $1 ORDER BY time`

	rows, err := d.db.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statistics: %w", err)
	}
	defer rows.Close()

	var out []*types.Statistics
	for rows.Next() {
		var s types.Statistics
		err := rows.Scan(&s.ID, &s.ResultID, &s.Time, &s.Throughput,
			&s.AvgLatency, &s.MinLatency, &s.P25Latency, &s.P50Latency,
			&s.P75Latency, &s.P90Latency, &s.P95Latency, &s.P99Latency, &s.MaxLatency)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
