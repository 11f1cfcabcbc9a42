package reaper

import (
	"context"
	"errors"
)

// errWriteQueueFull is reported on a job's result channel when the queue is
// saturated and the write was dropped. The in-memory state stays
// authoritative and will be re-persisted on the next natural trigger.
var errWriteQueueFull = errors.New("write queue full")

type writeJob struct {
	name   string
	fn     func() error
	result chan error
}

// writeQueue serializes best-effort persistence off the engine goroutine so
// storage never blocks the hot path. Each enqueued job carries a result
// channel the caller may optionally observe; the queue itself only logs
// failures.
type writeQueue struct {
	jobs chan writeJob
	log  Logger
}

func newWriteQueue(size int, log Logger) *writeQueue {
	return &writeQueue{
		jobs: make(chan writeJob, size),
		log:  log,
	}
}

// Run drains the queue until ctx is done.
func (q *writeQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			err := job.fn()
			if err != nil {
				q.log.Warn("persist failed", "op", job.name, "error", err)
			}
			job.result <- err
		}
	}
}

// enqueue submits a write. It never blocks: when the queue is full the write
// is dropped with a warning.
func (q *writeQueue) enqueue(name string, fn func() error) <-chan error {
	job := writeJob{name: name, fn: fn, result: make(chan error, 1)}
	select {
	case q.jobs <- job:
	default:
		q.log.Warn("write queue full, dropping persist", "op", name)
		job.result <- errWriteQueueFull
	}
	return job.result
}
