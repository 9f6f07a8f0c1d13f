package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	TaskChanSize = 100
)

// WorkerFunction processes a single task pulled off a WorkerPool's queue.
type WorkerFunction[T any] func(t *tomb.Tomb, task T) error

// WorkerPool is a fixed-size pool of goroutines draining a shared,
// statically-typed task channel, supervised by a tomb so the whole
// pool tears down together.
type WorkerPool[T any] struct {
	n     int    // number of workers
	tasks chan T // task connection pool
}

func NewWorkerPool[T any](size int) WorkerPool[T] {
	return WorkerPool[T]{
		tasks: make(chan T, TaskChanSize),
		n:     size,
	}
}

// AddTask enqueues a unit of work (typically a net.Conn) for a worker to pick up.
func (pool *WorkerPool[T]) AddTask(task T) {
	pool.tasks <- task
}

func (pool *WorkerPool[T]) Setup(t *tomb.Tomb, work WorkerFunction[T]) {
	// Maintain a full pool of workers.
	log.Info().Int("activeWorkers", pool.n).Msg("adding workers")
	activeWorkers := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if activeWorkers < pool.n {
				t.Go(func() error {
					err := pool.worker(t, work)
					activeWorkers--
					return err
				})
				activeWorkers++
			}
		}
	}
}

// Workers wait on tasks in the task connection pool and action them.
func (pool *WorkerPool[T]) worker(t *tomb.Tomb, work WorkerFunction[T]) error {
	log.Info().Msg("worker starting")
	select {
	case <-t.Dying():
		return nil
	case task := <-pool.tasks:
		if err := work(t, task); err != nil {
			log.Error().Err(err).Msg("worker exiting")
			return err
		}
	}
	return nil
}
