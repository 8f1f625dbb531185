package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbtune-service/service/types"
)

// InsertProject inserts a project row.
func (d *Database) InsertProject(ctx context.Context, p *types.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}

	query := `
		INSERT INTO projects (user_id, name, description, creation_time, last_update, upload_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		p.UserID, p.Name, p.Description, p.CreationTime, p.LastUpdate, p.UploadCode,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	d.log.WithField("project_id", p.ID).Debug("Inserted project")
	return nil
}

// GetProject retrieves a project by ID.
func (d *Database) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	query := `
		SELECT id, user_id, name, description, creation_time, last_update, upload_code
		FROM projects WHERE id = $1`

	var p types.Project
	var description sql.NullString
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Name, &description, &p.CreationTime, &p.LastUpdate, &p.UploadCode,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	p.Description = description.String
	return &p, nil
}

// ListProjects lists the projects of one user, most recently updated first.
func (d *Database) ListProjects(ctx context.Context, userID int64) ([]*types.Project, error) {
	query := `
		SELECT id, user_id, name, description, creation_time, last_update, upload_code
		FROM projects WHERE user_id = $1 ORDER BY last_update DESC`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []*types.Project
	for rows.Next() {
		var p types.Project
		var description sql.NullString
		err := rows.Scan(&p.ID, &p.UserID, &p.Name, &description, &p.CreationTime, &p.LastUpdate, &p.UploadCode)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		p.Description = description.String
		out = append(out, &p)
	}
	return out, rows.Err()
}

// UpdateProject updates a project's mutable fields.
func (d *Database) UpdateProject(ctx context.Context, p *types.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}

	query := `
		UPDATE projects SET name = $1, description = $2, last_update = $3
		WHERE id = $4`

	result, err := d.db.ExecContext(ctx, query, p.Name, p.Description, p.LastUpdate, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("project %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// DeleteProject deletes a project and, first, every application it owns.
// The whole cascade runs in one transaction.
func (d *Database) DeleteProject(ctx context.Context, id int64) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM applications WHERE project_id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to list project applications: %w", err)
		}
		var appIDs []int64
		for rows.Next() {
			var appID int64
			if err := rows.Scan(&appID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan application id: %w", err)
			}
			appIDs = append(appIDs, appID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to iterate application ids: %w", err)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, appID := range appIDs {
			if err := deleteApplicationTx(ctx, tx, appID); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("project %d: %w", id, ErrNotFound)
		}

		d.log.WithField("project_id", id).WithField("applications", len(appIDs)).Info("Deleted project")
		return nil
	})
}

// InsertHardware inserts a hardware profile row.
func (d *Database) InsertHardware(ctx context.Context, h *types.Hardware) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("invalid hardware profile: %w", err)
	}

	query := `
		INSERT INTO hardware (type, name, cpu, memory, storage, storage_type, additional_specs)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		int(h.Type), h.Name, h.CPU, h.Memory, h.Storage, h.StorageType, h.AdditionalSpecs,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("failed to insert hardware: %w", err)
	}
	return nil
}

// GetHardware retrieves a hardware profile by ID.
func (d *Database) GetHardware(ctx context.Context, id int64) (*types.Hardware, error) {
	query := `
		SELECT id, type, name, cpu, memory, storage, storage_type, additional_specs
		FROM hardware WHERE id = $1`

	var h types.Hardware
	var typ int
	var specs sql.NullString
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&h.ID, &typ, &h.Name, &h.CPU, &h.Memory, &h.Storage, &h.StorageType, &specs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("hardware %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get hardware: %w", err)
	}
	h.Type = types.HardwareType(typ)
	h.AdditionalSpecs = specs.String
	return &h, nil
}

// InsertApplication inserts an application row.
func (d *Database) InsertApplication(ctx context.Context, a *types.Application) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	query := `
		INSERT INTO applications (
			user_id, name, description, hardware_id, project_id,
			creation_time, last_update, upload_code, tuning_session
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		a.UserID, a.Name, a.Description, a.HardwareID, a.ProjectID,
		a.CreationTime, a.LastUpdate, a.UploadCode, a.TuningSession,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}

	d.log.WithField("application_id", a.ID).Debug("Inserted application")
	return nil
}

// GetApplication retrieves an application by ID.
func (d *Database) GetApplication(ctx context.Context, id int64) (*types.Application, error) {
	query := `
		SELECT id, user_id, name, description, hardware_id, project_id,
			creation_time, last_update, upload_code, tuning_session
		FROM applications WHERE id = $1`

	var a types.Application
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Name, &a.Description, &a.HardwareID, &a.ProjectID,
		&a.CreationTime, &a.LastUpdate, &a.UploadCode, &a.TuningSession,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("application %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &a, nil
}

// GetApplicationByUploadCode retrieves an application by its unique upload code.
func (d *Database) GetApplicationByUploadCode(ctx context.Context, code string) (*types.Application, error) {
	query := `
		SELECT id, user_id, name, description, hardware_id, project_id,
			creation_time, last_update, upload_code, tuning_session
		FROM applications WHERE upload_code = $1`

	var a types.Application
	err := d.db.QueryRowContext(ctx, query, code).Scan(
		&a.ID, &a.UserID, &a.Name, &a.Description, &a.HardwareID, &a.ProjectID,
		&a.CreationTime, &a.LastUpdate, &a.UploadCode, &a.TuningSession,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("application with upload code %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get application by upload code: %w", err)
	}
	return &a, nil
}

// ListApplications lists the applications of one project.
func (d *Database) ListApplications(ctx context.Context, projectID int64) ([]*types.Application, error) {
	query := `
		SELECT id, user_id, name, description, hardware_id, project_id,
			creation_time, last_update, upload_code, tuning_session
		FROM applications WHERE project_id = $1 ORDER BY last_update DESC`

	rows, err := d.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []*types.Application
	for rows.Next() {
		var a types.Application
		err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.HardwareID,
			&a.ProjectID, &a.CreationTime, &a.LastUpdate, &a.UploadCode, &a.TuningSession)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application row: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UpdateApplication updates an application's mutable fields.
func (d *Database) UpdateApplication(ctx context.Context, a *types.Application) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	query := `
		UPDATE applications
		SET name = $1, description = $2, hardware_id = $3, last_update = $4, tuning_session = $5
		WHERE id = $6`

	result, err := d.db.ExecContext(ctx, query,
		a.Name, a.Description, a.HardwareID, a.LastUpdate, a.TuningSession, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("application %d: %w", a.ID, ErrNotFound)
	}
	return nil
}

// DeleteApplication deletes an application and its configs, metric
// snapshots, benchmark configs, and results (with their child rows) in one
// transaction.
func (d *Database) DeleteApplication(ctx context.Context, id int64) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteApplicationTx(ctx, tx, id); err != nil {
			return err
		}
		d.log.WithField("application_id", id).Info("Deleted application")
		return nil
	})
}

// deleteApplicationTx removes an application row and everything hanging off
// it. Results go first so their result_data/tasks/statistics rows are
// removed before the configs and snapshots they reference.
func deleteApplicationTx(ctx context.Context, tx *sql.Tx, id int64) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM results WHERE application_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to list application results: %w", err)
	}
	var resultIDs []int64
	for rows.Next() {
		var resultID int64
		if err := rows.Scan(&resultID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan result id: %w", err)
		}
		resultIDs = append(resultIDs, resultID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate result ids: %w", err)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, resultID := range resultIDs {
		if err := deleteResultTx(ctx, tx, resultID); err != nil {
			return err
		}
	}

	children := []struct {
		table string
		query string
	}{
		{"db_confs", `DELETE FROM db_confs WHERE application_id = $1`},
		{"dbms_metrics", `DELETE FROM dbms_metrics WHERE application_id = $1`},
		{"benchmark_configs", `DELETE FROM benchmark_configs WHERE application_id = $1`},
	}
	for _, c := range children {
		if _, err := tx.ExecContext(ctx, c.query, id); err != nil {
			return fmt.Errorf("failed to delete %s for application %d: %w", c.table, id, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("application %d: %w", id, ErrNotFound)
	}
	return nil
}
