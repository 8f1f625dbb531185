package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbtune-service/service/types"
)

// InsertTask records a background job attached to a result.
func (d *Database) InsertTask(ctx context.Context, t *types.Task) error {
	if t.State == "" {
		t.State = types.TaskStatePending
	}

	query := `
		INSERT INTO tasks (taskmeta_id, start_time, result_id, type, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := d.db.QueryRowContext(ctx, query,
		t.TaskMetaID, t.StartTime, t.ResultID, t.Type, t.State,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// UpdateTaskState transitions a task, setting start_time on the first move
// out of pending.
func (d *Database) UpdateTaskState(ctx context.Context, taskMetaID, state string) error {
	query := `
		UPDATE tasks SET state = $1,
			start_time = COALESCE(start_time, $2)
		WHERE taskmeta_id = $3`

	result, err := d.db.ExecContext(ctx, query, state, time.Now(), taskMetaID)
	if err != nil {
		return fmt.Errorf("failed to update task state: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", taskMetaID, ErrNotFound)
	}

	d.log.WithField("taskmeta_id", taskMetaID).WithField("state", state).Debug("Updated task state")
	return nil
}

// GetTask retrieves a task by its taskmeta identifier.
func (d *Database) GetTask(ctx context.Context, taskMetaID string) (*types.Task, error) {
	query := `
		SELECT id, taskmeta_id, start_time, result_id, type, state
		FROM tasks WHERE taskmeta_id = $1`

	var t types.Task
	err := d.db.QueryRowContext(ctx, query, taskMetaID).Scan(
		&t.ID, &t.TaskMetaID, &t.StartTime, &t.ResultID, &t.Type, &t.State,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task %s: %w", taskMetaID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// ListTasksByResult lists the tasks attached to one result in creation order.
func (d *Database) ListTasksByResult(ctx context.Context, resultID int64) ([]*types.Task, error) {
	query := `
		SELECT id, taskmeta_id, start_time, result_id, type, state
		FROM tasks WHERE result_id = $1 ORDER BY id`

	rows, err := d.db.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []*types.Task
	for rows.Next() {
		var t types.Task
		if err := rows.Scan(&t.ID, &t.TaskMetaID, &t.StartTime, &t.ResultID, &t.Type, &t.State); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
