// Package worker runs background processing for uploaded results: expanding
// raw sample blobs into per-interval statistics rows and enforcing the
// result retention policy.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dbtune-service/service/types"
)

// Store is the storage surface the worker needs.
type Store interface {
	GetResult(ctx context.Context, id int64) (*types.Result, error)
	InsertStatistics(ctx context.Context, stats []*types.Statistics) error
	InsertTask(ctx context.Context, t *types.Task) error
	UpdateTaskState(ctx context.Context, taskMetaID, state string) error
	DeleteResultsBefore(ctx context.Context, before time.Time) (int, error)
}

// Notifier receives task state changes for fan-out to connected clients.
type Notifier interface {
	NotifyTaskUpdate(task *types.Task)
}

// sample is one interval of an uploaded result's raw samples blob.
type sample struct {
	Time       int     `json:"time"`
	Throughput float64 `json:"throughput"`
	AvgLatency float64 `json:"avg_latency"`
	MinLatency float64 `json:"min_latency"`
	P25Latency float64 `json:"p25_latency"`
	P50Latency float64 `json:"p50_latency"`
	P75Latency float64 `json:"p75_latency"`
	P90Latency float64 `json:"p90_latency"`
	P95Latency float64 `json:"p95_latency"`
	P99Latency float64 `json:"p99_latency"`
	MaxLatency float64 `json:"max_latency"`
}

// Worker consumes queued result IDs and aggregates their statistics.
type Worker struct {
	mu        sync.Mutex
	store     Store
	notifier  Notifier
	log       logrus.FieldLogger
	queue     chan int64
	stopCh    chan struct{}
	done      chan struct{}
	running   bool
	retention time.Duration
}

// New creates a worker. retention <= 0 disables retention cleanup.
// notifier may be nil.
func New(store Store, notifier Notifier, retention time.Duration, log logrus.FieldLogger) *Worker {
	return &Worker{
		store:     store,
		notifier:  notifier,
		log:       log.WithField("component", "worker"),
		queue:     make(chan int64, 64),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		retention: retention,
	}
}

// SetNotifier wires in the task update fan-out. Must be called before Start.
func (w *Worker) SetNotifier(n Notifier) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notifier = n
}

// Start launches the processing loop.
func (w *Worker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run()
	w.log.Info("Worker started")
}

// Stop shuts the worker down and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.done
	w.log.Info("Worker stopped")
}

// Enqueue schedules a result for aggregation. It never blocks; if the queue
// is full the result is skipped and the caller can retry.
func (w *Worker) Enqueue(resultID int64) error {
	select {
	case w.queue <- resultID:
		return nil
	default:
		return fmt.Errorf("worker queue is full")
	}
}

func (w *Worker) run() {
	defer close(w.done)

	var retentionCh <-chan time.Time
	if w.retention > 0 {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		retentionCh = ticker.C
	}

	for {
		select {
		case resultID := <-w.queue:
			if err := w.Aggregate(context.Background(), resultID); err != nil {
				w.log.WithError(err).WithField("result_id", resultID).Error("Failed to aggregate result")
			}
		case <-retentionCh:
			w.cleanup()
		case <-w.stopCh:
			return
		}
	}
}

// Aggregate expands one result's samples blob into statistics rows,
// recording the work as a task with state transitions.
func (w *Worker) Aggregate(ctx context.Context, resultID int64) error {
	task := &types.Task{
		TaskMetaID: uuid.New().String(),
		ResultID:   resultID,
		Type:       types.TaskAggregate,
		State:      types.TaskStatePending,
	}
	if err := w.store.InsertTask(ctx, task); err != nil {
		return fmt.Errorf("failed to record aggregation task: %w", err)
	}
	w.notify(task)

	if err := w.transition(ctx, task, types.TaskStateRunning); err != nil {
		return err
	}

	if err := w.aggregate(ctx, resultID); err != nil {
		if terr := w.transition(ctx, task, types.TaskStateFailure); terr != nil {
			w.log.WithError(terr).Warn("Failed to mark task as failed")
		}
		return err
	}

	return w.transition(ctx, task, types.TaskStateSuccess)
}

func (w *Worker) aggregate(ctx context.Context, resultID int64) error {
	result, err := w.store.GetResult(ctx, resultID)
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}
	if len(result.Samples) == 0 {
		w.log.WithField("result_id", resultID).Debug("Result has no samples, nothing to aggregate")
		return nil
	}

	var samples []sample
	if err := json.Unmarshal(result.Samples, &samples); err != nil {
		return fmt.Errorf("failed to decode samples: %w", err)
	}

	stats := make([]*types.Statistics, 0, len(samples))
	for _, s := range samples {
		stats = append(stats, &types.Statistics{
			ResultID:   resultID,
			Time:       s.Time,
			Throughput: s.Throughput,
			AvgLatency: s.AvgLatency,
			MinLatency: s.MinLatency,
			P25Latency: s.P25Latency,
			P50Latency: s.P50Latency,
			P75Latency: s.P75Latency,
			P90Latency: s.P90Latency,
			P95Latency: s.P95Latency,
			P99Latency: s.P99Latency,
			MaxLatency: s.MaxLatency,
		})
	}

	if err := w.store.InsertStatistics(ctx, stats); err != nil {
		return fmt.Errorf("failed to store statistics: %w", err)
	}

	w.log.WithField("result_id", resultID).WithField("intervals", len(stats)).Info("Aggregated result statistics")
	return nil
}

func (w *Worker) transition(ctx context.Context, task *types.Task, state string) error {
	if err := w.store.UpdateTaskState(ctx, task.TaskMetaID, state); err != nil {
		return fmt.Errorf("failed to update task state: %w", err)
	}
	task.State = state
	w.notify(task)
	return nil
}

func (w *Worker) notify(task *types.Task) {
	if w.notifier != nil {
		w.notifier.NotifyTaskUpdate(task)
	}
}

func (w *Worker) cleanup() {
	cutoff := time.Now().Add(-w.retention)
	deleted, err := w.store.DeleteResultsBefore(context.Background(), cutoff)
	if err != nil {
		w.log.WithError(err).Error("Retention cleanup failed")
		return
	}
	if deleted > 0 {
		w.log.WithField("deleted", deleted).Info("Retention cleanup removed expired results")
	}
}
