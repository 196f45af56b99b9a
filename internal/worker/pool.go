// Package worker runs batch image edits on a bounded pool of goroutines.
package worker

import (
	"context"
	"sync"
	"time"
)

// Processor edits one image and returns where the result was stored.
type Processor interface {
	Process(ctx context.Context, task Task) (output string, err error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, task Task) (string, error)

func (f ProcessorFunc) Process(ctx context.Context, task Task) (string, error) {
	return f(ctx, task)
}

// Task is one image to edit.
type Task struct {
	Source string
	Folder string
}

// Result is the outcome of one task.
type Result struct {
	Task    Task
	Output  string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called with each finished task and the running count.
type ProgressFunc func(r Result, completed, total int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Processor  Processor
	OnProgress ProgressFunc
}

// Pool fans tasks out to a fixed number of workers. Each image edit is
// itself strictly sequential; parallelism is only across images.
type Pool struct {
	workers    int
	processor  Processor
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		processor:  cfg.Processor,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and blocks until every one has a result. Tasks
// not started before ctx is cancelled report ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		for result := range resultCh {
			results = append(results, result)
			if p.onProgress != nil {
				p.onProgress(result, len(results), len(tasks))
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		start := time.Now()
		output, err := p.processor.Process(ctx, task)
		results <- Result{
			Task:    task,
			Output:  output,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
