package service

import (
	"context"
	"sync"

	"webhook-dispatcher/pkg/logger"

	"github.com/rs/zerolog"
)

// Task is a unit of work for the WorkerPool.
type Task struct {
	// Run executes the task while it holds slot.
	Run func(slot *Slot)
	// Drop, if set, is called instead of Run when the pool stops before the task starts.
	Drop func()
}

// WorkerPool bounds how many tasks execute at once.
// Submit never blocks: tasks wait in an unbounded FIFO queue until a slot is free.
// A running task may hand its slot back while it waits (see Slot) and resumes
// ahead of queued tasks once a slot frees up.
type WorkerPool struct {
	mu       sync.Mutex
	capacity int
	active   int
	parked   int
	queue    []Task
	resume   []chan struct{}
	stopped  bool

	wg  sync.WaitGroup
	log zerolog.Logger
}

// NewWorkerPool creates a pool running at most workers tasks at once (at least one).
func NewWorkerPool(workers int, log zerolog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	p := &WorkerPool{capacity: workers, log: logger.Component(log, "worker_pool")}
	p.log.Info().Int("workers", workers).Msg("worker pool started")
	return p
}

// Submit queues a plain task. It returns false once the pool is stopped.
func (p *WorkerPool) Submit(task func()) bool {
	return p.SubmitTask(Task{Run: func(*Slot) { task() }})
}

// SubmitTask queues t for execution. It returns false once the pool is stopped;
// t.Drop is not called in that case.
func (p *WorkerPool) SubmitTask(t Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.queue = append(p.queue, t)
	p.schedule()
	return true
}

// QueueDepth is the number of tasks waiting to start.
func (p *WorkerPool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// InFlight is the number of tasks currently holding a slot.
func (p *WorkerPool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Parked is the number of started tasks waiting without a slot.
func (p *WorkerPool) Parked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parked
}

// Stop rejects new tasks, drops queued ones and waits for started tasks
// until ctx is done. Each dropped task's Drop callback runs before Stop waits.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	dropped := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, t := range dropped {
		p.drop(t)
	}
	if len(dropped) > 0 {
		p.log.Warn().Int("dropped", len(dropped)).Msg("worker pool stopped with queued deliveries")
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// schedule hands free slots to parked tasks first, then starts queued ones.
// Caller holds p.mu.
func (p *WorkerPool) schedule() {
	for p.active < p.capacity && len(p.resume) > 0 {
		ch := p.resume[0]
		p.resume[0] = nil
		p.resume = p.resume[1:]
		p.active++
		p.parked--
		close(ch)
	}
	for p.active < p.capacity && len(p.queue) > 0 && !p.stopped {
		t := p.queue[0]
		p.queue[0] = Task{}
		p.queue = p.queue[1:]
		p.active++
		p.wg.Add(1)
		go p.run(t)
	}
}

func (p *WorkerPool) run(t Task) {
	slot := &Slot{pool: p, held: true}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("worker pool task panicked")
		}
		p.mu.Lock()
		if slot.held {
			p.active--
		} else {
			p.parked--
		}
		p.schedule()
		p.mu.Unlock()
		p.wg.Done()
	}()
	t.Run(slot)
}

func (p *WorkerPool) drop(t Task) {
	if t.Drop == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("worker pool drop callback panicked")
		}
	}()
	t.Drop()
}

// Slot is a running task's claim on pool capacity. It belongs to the task's
// goroutine and must not be shared. A nil Slot is valid; its methods do nothing.
type Slot struct {
	pool *WorkerPool
	held bool
}

// Release gives the slot to the next task while the caller waits.
func (s *Slot) Release() {
	if s == nil || !s.held {
		return
	}
	s.held = false
	p := s.pool
	p.mu.Lock()
	p.active--
	p.parked++
	p.schedule()
	p.mu.Unlock()
}

// Acquire blocks until the caller holds a slot again.
func (s *Slot) Acquire() {
	if s == nil || s.held {
		return
	}
	p := s.pool
	p.mu.Lock()
	if p.active < p.capacity && len(p.resume) == 0 {
		p.active++
		p.parked--
		p.mu.Unlock()
		s.held = true
		return
	}
	ch := make(chan struct{})
	p.resume = append(p.resume, ch)
	p.mu.Unlock()
	<-ch
	s.held = true
}

type slotKey struct{}

// withSlot attaches the caller's pool slot to ctx.
func withSlot(ctx context.Context, s *Slot) context.Context {
	return context.WithValue(ctx, slotKey{}, s)
}

// slotFrom returns the pool slot carried by ctx, or nil.
func slotFrom(ctx context.Context) *Slot {
	s, _ := ctx.Value(slotKey{}).(*Slot)
	return s
}
