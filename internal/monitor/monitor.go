package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning is returned by Start on a running monitor
	ErrAlreadyRunning = errors.New("monitor already running")
	// ErrNoTasks is returned by Start when no collector was registered
	ErrNoTasks = errors.New("no monitoring tasks registered")
)

type task struct {
	collector Collector
	interval  time.Duration
}

// Monitor runs one polling goroutine per collector and a single consumer that persists
// and dispatches every queued alert
type Monitor struct {
	tasks   []task
	queue   *Queue
	store   core.AlertStore
	handler Handler
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a monitor with a queue of the given size
func New(store core.AlertStore, handler Handler, queueSize int, logger *zap.Logger) *Monitor {
	return &Monitor{
		queue:   NewQueue(queueSize),
		store:   store,
		handler: handler,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock replaces the time source used to stamp alerts
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// AddTask registers a collector polled every interval; it must be called before Start
func (m *Monitor) AddTask(c Collector, interval time.Duration) {
	m.tasks = append(m.tasks, task{collector: c, interval: interval})
}

// Running reports whether the monitor has been started and not stopped
func (m *Monitor) Running() bool {
	return m.running.Load()
}

// Start launches the task goroutines and the consumer
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tasks) == 0 {
		return ErrNoTasks
	}
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.consume(ctx)

	for _, t := range m.tasks {
		m.logger.Info("Starting monitoring task",
			zap.String("task", t.collector.Name()),
			zap.Duration("interval", t.interval))
		m.wg.Add(1)
		go m.run(ctx, t)
	}
	return nil
}

// Stop clears the running flag, cancels every task and waits for all goroutines
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running.CompareAndSwap(true, false) {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Info("Monitoring stopped")
}

func (m *Monitor) run(ctx context.Context, t task) {
	defer m.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for m.running.Load() {
		m.check(ctx, t.collector)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) check(ctx context.Context, c Collector) {
	alerts, err := c.Check(ctx)
	if err != nil && ctx.Err() == nil {
		m.logger.Error("Monitoring check failed", zap.String("task", c.Name()), zap.Error(err))
	}

	for _, a := range alerts {
		if a.ID == "" {
			a.ID = m.newID()
		}
		if a.RaisedAt.IsZero() {
			a.RaisedAt = m.now()
		}
		if a.Source == "" {
			a.Source = c.Name()
		}
		if err := m.queue.Push(ctx, a); err != nil {
			return
		}
	}
}

func (m *Monitor) consume(ctx context.Context) {
	defer m.wg.Done()

	for {
		a, ok := m.queue.Pop(ctx)
		if !ok {
			break
		}
		m.process(ctx, a)
	}

	// alerts already queued at stop are still persisted and dispatched
	drain := context.WithoutCancel(ctx)
	for {
		a, ok := m.queue.TryPop()
		if !ok {
			return
		}
		m.process(drain, a)
	}
}

func (m *Monitor) process(ctx context.Context, a Alert) {
	fields := []zap.Field{
		zap.String("alert_id", a.ID),
		zap.String("source", a.Source),
		zap.String("severity", string(a.Severity)),
	}
	if a.Payload != nil {
		fields = append(fields, zap.String("kind", string(a.Payload.Kind())))
	}
	m.logger.Info("Alert received", fields...)

	rec, err := a.Record()
	if err != nil {
		m.logger.Error("Failed to encode alert", append(fields, zap.Error(err))...)
		return
	}
	if err := m.store.SaveAlert(ctx, rec); err != nil {
		m.logger.Error("Failed to persist alert", append(fields, zap.Error(err))...)
	}
	if err := Dispatch(ctx, m.handler, a); err != nil {
		m.logger.Error("Alert action failed", append(fields, zap.Error(err))...)
	}
}
