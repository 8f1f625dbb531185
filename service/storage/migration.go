package storage

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Migration represents a database migration
type Migration struct {
	Version int
	SQL     string
}

// migrations defines all database migrations, applied in order.
var migrations = []Migration{
	{Version: 1, SQL: dbmsCatalogTable},
	{Version: 2, SQL: knobCatalogTable},
	{Version: 3, SQL: metricCatalogTable},
	{Version: 4, SQL: projectsTable},
	{Version: 5, SQL: hardwareTable},
	{Version: 6, SQL: applicationsTable},
	{Version: 7, SQL: benchmarkConfigsTable},
	{Version: 8, SQL: dbConfsTable},
	{Version: 9, SQL: dbmsMetricsTable},
	{Version: 10, SQL: resultsTable},
	{Version: 11, SQL: resultDataTable},
	{Version: 12, SQL: tasksTable},
	{Version: 13, SQL: statisticsTable},
	{Version: 14, SQL: CreateIndices()},
}

// RunMigrations runs all database migrations
func RunMigrations(db *sql.DB) error {
	log := logrus.WithField("component", "migration")

	if err := createMigrationTable(db); err != nil {
		return err
	}

	for _, migration := range migrations {
		applied, err := isMigrationApplied(db, migration.Version)
		if err != nil {
			return err
		}

		if applied {
			log.WithField("version", migration.Version).Debug("Migration already applied")
			continue
		}

		log.WithField("version", migration.Version).Info("Applying migration")
		if err := applyMigration(db, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// CreateIndices returns SQL for creating performance indices
func CreateIndices() string {
	return `
	CREATE INDEX IF NOT EXISTS idx_knob_catalog_dbms ON knob_catalog(dbms_id);
	CREATE INDEX IF NOT EXISTS idx_metric_catalog_dbms ON metric_catalog(dbms_id);
	CREATE INDEX IF NOT EXISTS idx_applications_project ON applications(project_id);
	CREATE INDEX IF NOT EXISTS idx_benchmark_configs_application ON benchmark_configs(application_id);
	CREATE INDEX IF NOT EXISTS idx_db_confs_application ON db_confs(application_id);
	CREATE INDEX IF NOT EXISTS idx_dbms_metrics_application ON dbms_metrics(application_id);
	CREATE INDEX IF NOT EXISTS idx_results_application ON results(application_id);
	CREATE INDEX IF NOT EXISTS idx_results_timestamp ON results(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_result_data_result ON result_data(result_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_result ON tasks(result_id);
	CREATE INDEX IF NOT EXISTS idx_statistics_result ON statistics(result_id);
	`
}

// createMigrationTable creates the migration tracking table
func createMigrationTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := db.Exec(query)
	return err
}

// isMigrationApplied checks if a migration version has been applied
func isMigrationApplied(db *sql.DB, version int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM schema_migrations WHERE version = $1`
	err := db.QueryRow(query, version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyMigration applies a single migration inside a transaction.
func applyMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, migration.Version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
