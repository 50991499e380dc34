package utils

import (
	"sync"
)

// ParallelTask is one unit of work executed alongside others.
type ParallelTask func() (interface{}, error)

// RunParallelTasks executes all tasks concurrently and returns results and
// errors positionally, one slot per task.
func RunParallelTasks(tasks []ParallelTask) ([]interface{}, []error) {
	var wg sync.WaitGroup
	results := make([]interface{}, len(tasks))
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t ParallelTask) {
			defer wg.Done()
			results[index], errs[index] = t()
		}(i, task)
	}

	wg.Wait()
	return results, errs
}

// WorkerPool bounds how many submitted tasks run at once. Uploads are
// submitted here so a burst of requests cannot spawn unbounded transfers.
type WorkerPool struct {
	taskChan chan func()
	wg       sync.WaitGroup
}

// NewWorkerPool starts workers goroutines consuming the task queue.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	pool := &WorkerPool{
		taskChan: make(chan func(), workers*2),
	}
	for i := 0; i < workers; i++ {
		go pool.worker()
	}
	return pool
}

func (p *WorkerPool) worker() {
	for task := range p.taskChan {
		task()
		p.wg.Done()
	}
}

// AddTask queues a task; blocks when the queue is full.
func (p *WorkerPool) AddTask(task func()) {
	p.wg.Add(1)
	p.taskChan <- task
}

// Wait blocks until every queued task has finished.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Close stops the workers once the queue drains. No AddTask after Close.
func (p *WorkerPool) Close() {
	close(p.taskChan)
}
