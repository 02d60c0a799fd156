package notify

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

const (
	DefaultQueueSize = 1000
	sendTimeout      = 5 * time.Second
)

// Sink delivers a notification somewhere. Sinks are called from worker
// goroutines, never from the code that raised the notification.
type Sink interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Dispatcher queues notifications and fans them out to sinks from a worker
// pool. Notify never blocks: when the queue is full the notification is
// dropped and counted.
type Dispatcher struct {
	queue chan domain.Notification
	sinks []Sink

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

var _ port.Notifier = (*Dispatcher)(nil)

func NewDispatcher(queueSize int, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queue: make(chan domain.Notification, queueSize),
		sinks: sinks,
	}
}

func (d *Dispatcher) Notify(n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- n:
	default:
		if d.dropped.Add(1)%100 == 1 {
			log.Printf("notify: queue full, dropped %d so far", d.dropped.Load())
		}
	}
}

// Start launches workers that drain the queue until Close.
func (d *Dispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	log.Printf("notify: started %d workers", workers)
}

func (d *Dispatcher) workerLoop(id int) {
	for n := range d.queue {
		for _, sink := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			if err := sink.Send(ctx, n); err != nil {
				log.Printf("notify worker %d: send %s failed: %v", id, n.Code, err)
			}
			cancel()
		}
	}
}

// Pending is the number of notifications waiting for a worker.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting notifications, drains what is queued and waits for
// the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
