package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, r RatingReconciler) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "data", "tasks.db"), cfg, r)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient_CreatesStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "tasks.db")

	client, err := NewClient(path, DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestClient_StartStop(t *testing.T) {
	client := newTestClient(t, &fakeReconciler{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)
	client.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx))
	assert.True(t, client.Stop(stopCtx))
}

type fakeReconciler struct {
	mu      sync.Mutex
	single  []int
	allRuns int
	err     error
	done    chan struct{}
}

func (f *fakeReconciler) RecomputeAverage(ctx context.Context, bookID int) (float64, error) {
	f.mu.Lock()
	f.single = append(f.single, bookID)
	f.mu.Unlock()
	f.signal()
	return 4.5, f.err
}

func (f *fakeReconciler) RecomputeAllAverages(ctx context.Context) (int, error) {
	f.mu.Lock()
	f.allRuns++
	f.mu.Unlock()
	f.signal()
	return 2, f.err
}

func (f *fakeReconciler) signal() {
	if f.done != nil {
		f.done <- struct{}{}
	}
}

func TestReconcileRatingsTaskConfig(t *testing.T) {
	cfg := ReconcileRatingsTask{}.Config()

	assert.Equal(t, "reconcile_ratings", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestReconcileRatingsProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("single book", func(t *testing.T) {
		r := &fakeReconciler{}
		require.NoError(t, ReconcileRatingsProcessor(r)(ctx, ReconcileRatingsTask{BookID: 7}))
		assert.Equal(t, []int{7}, r.single)
		assert.Zero(t, r.allRuns)
	})

	t.Run("all books", func(t *testing.T) {
		r := &fakeReconciler{}
		require.NoError(t, ReconcileRatingsProcessor(r)(ctx, ReconcileRatingsTask{}))
		assert.Equal(t, 1, r.allRuns)
		assert.Empty(t, r.single)
	})

	t.Run("error is returned for retry", func(t *testing.T) {
		boom := errors.New("boom")
		err := ReconcileRatingsProcessor(&fakeReconciler{err: boom})(ctx, ReconcileRatingsTask{BookID: 1})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("missing reconciler", func(t *testing.T) {
		assert.Error(t, ReconcileRatingsProcessor(nil)(ctx, ReconcileRatingsTask{}))
	})
}

func TestClient_EnqueueWithoutWorkers(t *testing.T) {
	client := newTestClient(t, nil)

	first, err := client.EnqueueReconcile(0)
	require.NoError(t, err)
	second, err := client.EnqueueReconcile(5)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestClient_RunsEnqueuedReconcile(t *testing.T) {
	r := &fakeReconciler{done: make(chan struct{}, 1)}
	client := newTestClient(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	id, err := client.EnqueueReconcile(3)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case <-r.done:
		r.mu.Lock()
		assert.Equal(t, []int{3}, r.single)
		r.mu.Unlock()
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}
