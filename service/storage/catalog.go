package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbtune-service/service/types"
)

// UpsertDBMS inserts a DBMS catalog entry, returning the existing ID when
// the type/version pair is already registered.
func (d *Database) UpsertDBMS(ctx context.Context, c *types.DBMSCatalog) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid dbms catalog entry: %w", err)
	}

	query := `
		INSERT INTO dbms_catalog (type, version)
		VALUES ($1, $2)
		ON CONFLICT (type, version) DO UPDATE SET version = EXCLUDED.version
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, query, int(c.Type), c.Version).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to upsert dbms catalog entry: %w", err)
	}

	d.log.WithField("dbms", c.Key()).Debug("Upserted DBMS catalog entry")
	return nil
}

// GetDBMS retrieves one DBMS catalog entry by ID.
func (d *Database) GetDBMS(ctx context.Context, id int64) (*types.DBMSCatalog, error) {
	query := `SELECT id, type, version FROM dbms_catalog WHERE id = $1`

	var c types.DBMSCatalog
	var typ int
	err := d.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &typ, &c.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("dbms %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dbms: %w", err)
	}
	c.Type = types.DBMSType(typ)
	return &c, nil
}

// ListDBMS lists every registered DBMS catalog entry.
func (d *Database) ListDBMS(ctx context.Context) ([]*types.DBMSCatalog, error) {
	query := `SELECT id, type, version FROM dbms_catalog ORDER BY type, version`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dbms catalog: %w", err)
	}
	defer rows.Close()

	var out []*types.DBMSCatalog
	for rows.Next() {
		var c types.DBMSCatalog
		var typ int
		if err := rows.Scan(&c.ID, &typ, &c.Version); err != nil {
			return nil, fmt.Errorf("failed to scan dbms row: %w", err)
		}
		c.Type = types.DBMSType(typ)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// UpsertKnob inserts or updates one knob catalog entry.
func (d *Database) UpsertKnob(ctx context.Context, k *types.KnobCatalog) error {
	if err := k.Validate(); err != nil {
		return fmt.Errorf("invalid knob catalog entry: %w", err)
	}

	query := `
		INSERT INTO knob_catalog (
			dbms_id, name, vartype, unit, category, summary, description,
			scope, minval, maxval, default_val, enumvals, context, tunable
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (dbms_id, name) DO UPDATE SET
			vartype = EXCLUDED.vartype,
			unit = EXCLUDED.unit,
			minval = EXCLUDED.minval,
			maxval = EXCLUDED.maxval,
			default_val = EXCLUDED.default_val,
			enumvals = EXCLUDED.enumvals,
			tunable = EXCLUDED.tunable
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		k.DBMSID, k.Name, int(k.VarType), int(k.Unit), k.Category, k.Summary,
		k.Description, k.Scope, k.MinVal, k.MaxVal, k.Default, k.EnumVals,
		k.Context, k.Tunable,
	).Scan(&k.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert knob %s: %w", k.Name, err)
	}
	return nil
}

// ListKnobs lists the knob catalog of one DBMS in name order.
func (d *Database) ListKnobs(ctx context.Context, dbmsID int64) ([]*types.KnobCatalog, error) {
	query := `
		SELECT id, dbms_id, name, vartype, unit, category, summary, description,
			scope, minval, maxval, default_val, enumvals, context, tunable
		FROM knob_catalog WHERE dbms_id = $1 ORDER BY name`

	rows, err := d.db.QueryContext(ctx, query, dbmsID)
	if err != nil {
		return nil, fmt.Errorf("failed to list knobs: %w", err)
	}
	defer rows.Close()

	var out []*types.KnobCatalog
	for rows.Next() {
		var k types.KnobCatalog
		var vartype, unit int
		var category, summary, description, minval, maxval, enumvals sql.NullString
		err := rows.Scan(&k.ID, &k.DBMSID, &k.Name, &vartype, &unit, &category,
			&summary, &description, &k.Scope, &minval, &maxval, &k.Default,
			&enumvals, &k.Context, &k.Tunable)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knob row: %w", err)
		}
		k.VarType = types.VarType(vartype)
		k.Unit = types.KnobUnitType(unit)
		k.Category = category.String
		k.Summary = summary.String
		k.Description = description.String
		k.MinVal = minval.String
		k.MaxVal = maxval.String
		k.EnumVals = enumvals.String
		out = append(out, &k)
	}
	return out, rows.Err()
}

// UpsertMetric inserts or updates one metric catalog entry.
func (d *Database) UpsertMetric(ctx context.Context, m *types.MetricCatalog) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid metric catalog entry: %w", err)
	}

	query := `
		INSERT INTO metric_catalog (dbms_id, name, vartype, summary, scope, metric_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (dbms_id, name) DO UPDATE SET
			vartype = EXCLUDED.vartype,
			summary = EXCLUDED.summary,
			metric_type = EXCLUDED.metric_type
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		m.DBMSID, m.Name, int(m.VarType), m.Summary, m.Scope, int(m.MetricType),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert metric %s: %w", m.Name, err)
	}
	return nil
}

// ListMetrics lists the metric catalog of one DBMS in name order.
func (d *Database) ListMetrics(ctx context.Context, dbmsID int64) ([]*types.MetricCatalog, error) {
	query := `
		SELECT id, dbms_id, name, vartype, summary, scope, metric_type
		FROM metric_catalog WHERE dbms_id = $1 ORDER BY name`

	rows, err := d.db.QueryContext(ctx, query, dbmsID)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	defer rows.Close()

	var out []*types.MetricCatalog
	for rows.Next() {
		var m types.MetricCatalog
		var vartype, metricType int
		var summary sql.NullString
		if err := rows.Scan(&m.ID, &m.DBMSID, &m.Name, &vartype, &summary, &m.Scope, &metricType); err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}
		m.VarType = types.VarType(vartype)
		m.MetricType = types.MetricType(metricType)
		m.Summary = summary.String
		out = append(out, &m)
	}
	return out, rows.Err()
}
