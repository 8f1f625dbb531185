package worker

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dbtune-service/service/types"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetResult(ctx context.Context, id int64) (*types.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Result), args.Error(1)
}

func (m *mockStore) InsertStatistics(ctx context.Context, stats []*types.Statistics) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *mockStore) InsertTask(ctx context.Context, t *types.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockStore) UpdateTaskState(ctx context.Context, taskMetaID, state string) error {
	args := m.Called(ctx, taskMetaID, state)
	return args.Error(0)
}

func (m *mockStore) DeleteResultsBefore(ctx context.Context, before time.Time) (int, error) {
	args := m.Called(ctx, before)
	return args.Int(0), args.Error(1)
}

type recordingNotifier struct {
	states []string
}

func (n *recordingNotifier) NotifyTaskUpdate(task *types.Task) {
	n.states = append(n.states, task.State)
}

func TestAggregate(t *testing.T) {
	store := new(mockStore)
	notifier := &recordingNotifier{}
	w := New(store, notifier, 0, logrus.New())

	result := &types.Result{
		ID: 7,
		Samples: []byte(`[
			{"time": 5, "throughput": 120.5, "avg_latency": 8.1, "p99_latency": 40.2, "max_latency": 55.0},
			{"time": 10, "throughput": 130.0, "avg_latency": 7.9, "p99_latency": 38.7, "max_latency": 51.3}
		]`),
	}

	store.On("InsertTask", mock.Anything, mock.MatchedBy(func(task *types.Task) bool {
		return task.ResultID == 7 && task.Type == types.TaskAggregate && task.TaskMetaID != ""
	})).Return(nil)
	store.On("UpdateTaskState", mock.Anything, mock.Anything, types.TaskStateRunning).Return(nil)
	store.On("GetResult", mock.Anything, int64(7)).Return(result, nil)
	store.On("InsertStatistics", mock.Anything, mock.MatchedBy(func(stats []*types.Statistics) bool {
		return len(stats) == 2 && stats[0].Time == 5 && stats[1].Throughput == 130.0
	})).Return(nil)
	store.On("UpdateTaskState", mock.Anything, mock.Anything, types.TaskStateSuccess).Return(nil)

	err := w.Aggregate(context.Background(), 7)
	require.NoError(t, err)

	store.AssertExpectations(t)
	assert.Equal(t, []string{
		types.TaskStatePending,
		types.TaskStateRunning,
		types.TaskStateSuccess,
	}, notifier.states)
}

func TestAggregateMarksFailureOnBadSamples(t *testing.T) {
	store := new(mockStore)
	w := New(store, nil, 0, logrus.New())

	store.On("InsertTask", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdateTaskState", mock.Anything, mock.Anything, types.TaskStateRunning).Return(nil)
	store.On("GetResult", mock.Anything, int64(3)).Return(&types.Result{
		ID:      3,
		Samples: []byte(`{"not": "an array"}`),
	}, nil)
	store.On("UpdateTaskState", mock.Anything, mock.Anything, types.TaskStateFailure).Return(nil)

	err := w.Aggregate(context.Background(), 3)
	require.Error(t, err)
	store.AssertExpectations(t)
}

func TestAggregateSkipsEmptySamples(t *testing.T) {
	store := new(mockStore)
	w := New(store, nil, 0, logrus.New())

	store.On("InsertTask", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdateTaskState", mock.Anything, mock.Anything, types.TaskStateRunning).Return(nil)
	store.On("GetResult", mock.Anything, int64(9)).Return(&types.Result{ID: 9}, nil)
	store.On("UpdateTaskState", mock.Anything, mock.Anything, types.TaskStateSuccess).Return(nil)

	err := w.Aggregate(context.Background(), 9)
	require.NoError(t, err)
	store.AssertNotCalled(t, "InsertStatistics", mock.Anything, mock.Anything)
}

func TestEnqueueAndStop(t *testing.T) {
	store := new(mockStore)
	w := New(store, nil, 0, logrus.New())

	store.On("InsertTask", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdateTaskState", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("GetResult", mock.Anything, int64(1)).Return(&types.Result{ID: 1}, nil)

	w.Start()
	require.NoError(t, w.Enqueue(1))

	assert.Eventually(t, func() bool {
		return len(store.Calls) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	w.Stop()
}
