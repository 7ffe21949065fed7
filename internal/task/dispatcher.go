package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tradereads/tradereads-api/internal/events"
)

// Common errors returned by the Dispatcher
var (
	ErrQueueClosed = errors.New("event queue is closed")
	ErrQueueFull   = errors.New("event queue is full")
)

// DispatcherConfig holds configuration options for the Dispatcher.
type DispatcherConfig struct {
	// WorkerCount is the number of goroutines delivering events.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// QueueSize is the buffer of undelivered events.
	QueueSize int
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{WorkerCount: 2, QueueSize: 256}
}

// Dispatcher is an events.EventHandler that queues events and delivers
// them to a wrapped handler from a pool of workers, so the emitting
// request never waits on delivery.
type Dispatcher struct {
	next        events.EventHandler
	queue       chan *events.TradeEvent
	workerCount int
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
	logger      *slog.Logger
}

var _ events.EventHandler = (*Dispatcher)(nil)

// NewDispatcher wraps next. Call Start before events are handled.
func NewDispatcher(next events.EventHandler, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "event_dispatcher"))

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}
	queueSize := config.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}

	return &Dispatcher{
		next:        next,
		queue:       make(chan *events.TradeEvent, queueSize),
		workerCount: workerCount,
		logger:      logger,
	}
}

// HandleEvent enqueues event. It fails fast when the queue is full or closed.
func (d *Dispatcher) HandleEvent(_ context.Context, event *events.TradeEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(d.queue))
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("event dispatcher started", "worker_count", d.workerCount)
}

// Stop refuses new events, drains the queue and waits for the workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("event dispatcher stopped")
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for event := range d.queue {
		if err := d.next.HandleEvent(context.Background(), event); err != nil {
			d.logger.Error("event delivery failed",
				"worker_id", id,
				"event_id", event.ID,
				"event_type", event.Type,
				"error", err)
		}
	}
}
