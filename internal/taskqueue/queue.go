package taskqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("task queue full")
var ErrStopped = errors.New("task queue stopped")

type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool runs detached tasks on a fixed set of workers over a bounded queue.
// Submit never blocks: when the queue is full the caller hears about it
// instead of piling up goroutines.
type Pool struct {
	tasks   chan Task
	workers int

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pool{
		tasks:   make(chan Task, queueSize),
		workers: workers,
	}
}

func (p *Pool) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.runOne(ctx, task)
	}
}

func (p *Pool) runOne(ctx context.Context, task Task) {
	logger := logutil.GetLogger(ctx).With(zap.String("task", task.Name))
	start := time.Now()
	logger.Info("task started")
	err := task.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("task finished", zap.Error(err), zap.Duration("duration", elapsed))
		return
	}
	logger.Info("task finished", zap.Duration("duration", elapsed))
}
