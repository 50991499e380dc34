package utils

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunParallelTasks(t *testing.T) {
	boom := errors.New("boom")
	results, errs := RunParallelTasks([]ParallelTask{
		func() (interface{}, error) { return "a", nil },
		func() (interface{}, error) { return nil, boom },
		func() (interface{}, error) { return 3, nil },
	})

	require.Equal(t, "a", results[0])
	require.ErrorIs(t, errs[1], boom)
	require.Equal(t, 3, results[2])
	require.NoError(t, errs[0])
	require.NoError(t, errs[2])
}

func TestWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var ran int64
	for i := 0; i < 32; i++ {
		pool.AddTask(func() {
			atomic.AddInt64(&ran, 1)
		})
	}
	pool.Wait()
	require.Equal(t, int64(32), atomic.LoadInt64(&ran))
}
