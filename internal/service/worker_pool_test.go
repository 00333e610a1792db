package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(4, newTestLogger())
	defer pool.Stop(context.Background())

	const n = 100
	var (
		count atomic.Int32
		wg    sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.True(t, pool.Submit(func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(n), count.Load())
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	pool := NewWorkerPool(workers, newTestLogger())
	defer pool.Stop(context.Background())

	var (
		current, peak atomic.Int32
		wg            sync.WaitGroup
	)
	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		pool.Submit(func() {
			defer wg.Done()
			c := current.Add(1)
			for {
				p := peak.Load()
				if c <= p || peak.CompareAndSwap(p, c) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestWorkerPool_SubmitNeverBlocksWhenSaturated(t *testing.T) {
	pool := NewWorkerPool(1, newTestLogger())
	release := make(chan struct{})
	pool.Submit(func() { <-release })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			pool.Submit(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked while workers were busy")
	}
	assert.Eventually(t, func() bool { return pool.QueueDepth() == 50 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, pool.InFlight())

	close(release)
	assert.Eventually(t, func() bool { return pool.QueueDepth() == 0 && pool.InFlight() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, pool.Stop(context.Background()))
}

func TestWorkerPool_FIFOWithSingleWorker(t *testing.T) {
	pool := NewWorkerPool(1, newTestLogger())
	defer pool.Stop(context.Background())

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	wg.Add(10)
	for i := 0; i < 10; i++ {
		i := i
		pool.Submit(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestWorkerPool_PanicDoesNotKillWorker(t *testing.T) {
	pool := NewWorkerPool(1, newTestLogger())
	defer pool.Stop(context.Background())

	pool.Submit(func() { panic("boom") })

	ran := make(chan struct{})
	pool.Submit(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestWorkerPool_StopRejectsAndDiscards(t *testing.T) {
	pool := NewWorkerPool(1, newTestLogger())
	release := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(func() {
		close(started)
		<-release
	})
	<-started

	var queuedRan atomic.Bool
	pool.Submit(func() { queuedRan.Store(true) })

	stopErr := make(chan error, 1)
	go func() { stopErr <- pool.Stop(context.Background()) }()

	assert.Eventually(t, func() bool { return !pool.Submit(func() {}) }, time.Second, time.Millisecond)
	close(release)

	require.NoError(t, <-stopErr)
	assert.False(t, queuedRan.Load())
	assert.Equal(t, 0, pool.QueueDepth())
}

func TestWorkerPool_StopHonoursDeadline(t *testing.T) {
	pool := NewWorkerPool(1, newTestLogger())
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	pool.Submit(func() {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Stop(ctx), context.DeadlineExceeded)
}

func TestWorkerPool_StopCallsDropForQueuedTasks(t *testing.T) {
	pool := NewWorkerPool(1, newTestLogger())
	release := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(func() {
		close(started)
		<-release
	})
	<-started

	var dropped atomic.Int32
	var ran atomic.Bool
	for i := 0; i < 3; i++ {
		require.True(t, pool.SubmitTask(Task{
			Run:  func(*Slot) { ran.Store(true) },
			Drop: func() { dropped.Add(1) },
		}))
	}

	stopErr := make(chan error, 1)
	go func() { stopErr <- pool.Stop(context.Background()) }()

	// Drop callbacks run before Stop waits for the running task.
	assert.Eventually(t, func() bool { return dropped.Load() == 3 }, time.Second, time.Millisecond)
	close(release)

	require.NoError(t, <-stopErr)
	assert.False(t, ran.Load())
}

func TestWorkerPool_ReleasedSlotStartsQueuedTask(t *testing.T) {
	pool := NewWorkerPool(1, newTestLogger())
	defer pool.Stop(context.Background())

	parked := make(chan struct{})
	resume := make(chan struct{})
	finished := make(chan struct{})
	pool.SubmitTask(Task{Run: func(slot *Slot) {
		slot.Release()
		close(parked)
		<-resume
		slot.Acquire()
		close(finished)
	}})
	<-parked

	ran := make(chan struct{})
	pool.Submit(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task did not start while the running task had released its slot")
	}
	assert.Equal(t, 1, pool.Parked())

	close(resume)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("parked task did not reacquire a slot")
	}
	assert.Eventually(t, func() bool { return pool.InFlight() == 0 && pool.Parked() == 0 }, time.Second, time.Millisecond)
}

func TestWorkerPool_ParkedTaskResumesBeforeQueuedTasks(t *testing.T) {
	pool := NewWorkerPool(1, newTestLogger())
	defer pool.Stop(context.Background())

	var (
		mu    sync.Mutex
		order []string
		wg    sync.WaitGroup
	)
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}
	waitingToResume := func() bool {
		pool.mu.Lock()
		defer pool.mu.Unlock()
		return len(pool.resume) == 1
	}

	wg.Add(3)
	parked := make(chan struct{})
	resume := make(chan struct{})
	pool.SubmitTask(Task{Run: func(slot *Slot) {
		defer wg.Done()
		slot.Release()
		close(parked)
		<-resume
		slot.Acquire()
		record("parked")
	}})
	<-parked

	holding := make(chan struct{})
	releaseHolder := make(chan struct{})
	pool.Submit(func() {
		defer wg.Done()
		close(holding)
		<-releaseHolder
		record("holder")
	})
	<-holding
	pool.Submit(func() {
		defer wg.Done()
		record("queued")
	})

	close(resume)
	require.Eventually(t, waitingToResume, time.Second, time.Millisecond)
	close(releaseHolder)
	wg.Wait()

	assert.Equal(t, []string{"holder", "parked", "queued"}, order)
}

func TestSlot_NilIsNoop(t *testing.T) {
	var s *Slot
	assert.NotPanics(t, func() {
		s.Release()
		s.Acquire()
	})
	assert.Nil(t, slotFrom(context.Background()))
}
