package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Job func(ctx context.Context)

// Loop runs submitted jobs one at a time on a single goroutine, so jobs never
// overlap and each one runs to completion before the next starts.
type Loop struct {
	name   string
	logger *zap.Logger
	jobs   chan Job
	wg     sync.WaitGroup
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewLoop(name string, logger *zap.Logger, buffer int) *Loop {
	if buffer <= 0 {
		buffer = 16
	}
	return &Loop{
		name:   name,
		logger: logger,
		jobs:   make(chan Job, buffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (l *Loop) Start(ctx context.Context) {
	l.logger.Debug("starting event loop", zap.String("loop", l.name))

	l.wg.Add(1)
	go l.run(ctx)
}

// Stop is idempotent and waits for the running job, if any, to return.
func (l *Loop) Stop() {
	l.once.Do(func() {
		close(l.stop)
		l.wg.Wait()
		l.logger.Debug("event loop stopped", zap.String("loop", l.name))
	})
}

// Done is closed once the loop has stopped running jobs. Jobs still queued
// at that point are never run.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Submit enqueues job without blocking. It reports false when the loop is
// stopped or the queue is full; the job is dropped in both cases.
func (l *Loop) Submit(job Job) bool {
	select {
	case <-l.stop:
		return false
	default:
	}

	select {
	case l.jobs <- job:
		return true
	default:
		l.logger.Warn("event loop queue full, dropping job", zap.String("loop", l.name))
		return false
	}
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	defer close(l.done)

	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		case job := <-l.jobs:
			l.exec(ctx, job)
		}
	}
}

func (l *Loop) exec(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop job panicked",
				zap.String("loop", l.name),
				zap.Any("panic", r),
			)
		}
	}()
	job(ctx)
}
