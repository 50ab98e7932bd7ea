// Package pipeline runs analyzer tasks off the ingestion path.
//
// Tasks are grouped into lanes keyed by (kind, vehicle). A lane runs its tasks one at a time in
// submission order, so read-check-write sequences for one vehicle never interleave, while lanes
// for different vehicles or kinds run in parallel up to the configured concurrency.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/nurpe/fleetwatch/internal/metrics"
)

var ErrClosed = errors.New("dispatcher closed")

type Task struct {
	Kind      string
	VehicleID uuid.UUID
	Run       func(ctx context.Context) error
}

// Result describes one task after its final attempt.
type Result struct {
	Kind      string
	VehicleID uuid.UUID
	Attempts  int
	Err       error
	Duration  time.Duration
}

type Options struct {
	Concurrency int64
	QueueSize   int
	MaxAttempts int
	RetryBase   time.Duration
	// Permanent reports errors that must not be retried.
	Permanent func(error) bool
	// Observer receives every Result. It is called from worker goroutines.
	Observer func(Result)
}

type laneKey struct {
	kind      string
	vehicleID uuid.UUID
}

type lane struct {
	queue []Task
}

type Dispatcher struct {
	opts Options
	log  zerolog.Logger
	sem  *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	lanes  map[laneKey]*lane
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(opts Options, log zerolog.Logger) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 32
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 100 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		opts:   opts,
		log:    log.With().Str("component", "dispatcher").Logger(),
		sem:    semaphore.NewWeighted(opts.Concurrency),
		ctx:    ctx,
		cancel: cancel,
		lanes:  make(map[laneKey]*lane),
	}
}

// Submit enqueues the task without blocking. It returns false when the task was dropped
// because the lane is full or the dispatcher is closed.
func (d *Dispatcher) Submit(task Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.drop(task, ErrClosed)
		return false
	}

	key := laneKey{kind: task.Kind, vehicleID: task.VehicleID}
	l, ok := d.lanes[key]
	if !ok {
		l = &lane{}
		d.lanes[key] = l
		d.wg.Add(1)
		go d.serve(key, l)
	}
	if len(l.queue) >= d.opts.QueueSize {
		d.drop(task, fmt.Errorf("lane queue full (%d)", d.opts.QueueSize))
		return false
	}
	l.queue = append(l.queue, task)
	return true
}

func (d *Dispatcher) drop(task Task, reason error) {
	metrics.DispatcherDropped.WithLabelValues(task.Kind).Inc()
	d.log.Warn().
		Err(reason).
		Str("kind", task.Kind).
		Str("vehicle_id", task.VehicleID.String()).
		Msg("analyzer task dropped")
}

// serve drains a lane and removes it once empty.
func (d *Dispatcher) serve(key laneKey, l *lane) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(l.queue) == 0 {
			delete(d.lanes, key)
			d.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = Task{}
		l.queue = l.queue[1:]
		d.mu.Unlock()

		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			d.drop(task, err)
			continue
		}
		d.execute(task)
		d.sem.Release(1)
	}
}

func (d *Dispatcher) execute(task Task) {
	start := time.Now()
	res := Result{Kind: task.Kind, VehicleID: task.VehicleID}

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		res.Err = runSafely(d.ctx, task)
		if res.Err == nil || attempt >= d.opts.MaxAttempts || d.isPermanent(res.Err) {
			break
		}
		if !d.sleep(d.opts.RetryBase << (attempt - 1)) {
			break
		}
	}
	res.Duration = time.Since(start)

	outcome := "ok"
	if res.Err != nil {
		outcome = "failed"
		d.log.Error().
			Err(res.Err).
			Str("kind", task.Kind).
			Str("vehicle_id", task.VehicleID.String()).
			Int("attempts", res.Attempts).
			Msg("analyzer failed")
	}
	metrics.AnalyzerRuns.WithLabelValues(task.Kind, outcome).Inc()
	metrics.AnalyzerDuration.WithLabelValues(task.Kind).Observe(res.Duration.Seconds())

	if d.opts.Observer != nil {
		d.opts.Observer(res)
	}
}

func (d *Dispatcher) isPermanent(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return d.opts.Permanent != nil && d.opts.Permanent(err)
}

func (d *Dispatcher) sleep(wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func runSafely(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s analyzer: %v", task.Kind, r)
		}
	}()
	return task.Run(ctx)
}

// Close stops intake and waits for queued tasks to finish. When ctx expires first, running
// tasks are cancelled and the remaining queue is dropped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
