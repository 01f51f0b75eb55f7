package notifications

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pharmacy/internal/metrics"
)

const deliverTimeout = 5 * time.Second

// Dispatcher is a Sink backed by a bounded queue drained by a fixed set of workers.
// Every queued event is delivered to every channel; a full queue drops the event.
type Dispatcher struct {
	queue    chan Event
	channels []Channel
	workers  int
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Call Start before events are delivered.
func NewDispatcher(queueSize, workers int, log *zap.Logger, m *metrics.Metrics, channels ...Channel) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		queue:    make(chan Event, queueSize),
		channels: channels,
		workers:  workers,
		log:      log,
		metrics:  m,
	}
}

// Notify enqueues the event, or drops it when the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Notify(_ context.Context, event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(event, "dispatcher stopped")
		return
	}
	select {
	case d.queue <- event:
	default:
		d.drop(event, "queue full")
	}
}

func (d *Dispatcher) drop(event Event, reason string) {
	d.metrics.NotificationOutcome("dropped")
	d.log.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID),
	)
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.stopped {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Stop closes the queue and waits for queued events to be delivered or ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	for _, ch := range d.channels {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		err := ch.Deliver(ctx, event)
		cancel()
		if err != nil {
			d.metrics.NotificationOutcome("failed")
			d.log.Error("notification delivery failed",
				zap.Error(err),
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
			)
			continue
		}
		d.metrics.NotificationOutcome("delivered")
	}
}
