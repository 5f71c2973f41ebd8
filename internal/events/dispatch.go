package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Jair0305/battleship/internal/obslog"
	"go.uber.org/zap"
)

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = 3 * time.Second
)

// Sync publishes on the caller goroutine and logs failures.
type Sync struct {
	pub     Publisher
	timeout time.Duration
}

func NewSync(pub Publisher) *Sync { return &Sync{pub: pub, timeout: defaultPublishTimeout} }

func (s *Sync) Dispatch(evs []Event) {
	for _, ev := range evs {
		publishLogged(s.pub, ev, s.timeout)
	}
}

// Async hands events to a background worker through a bounded queue. When
// the queue is full the event is dropped with a warning.
type Async struct {
	pub     Publisher
	timeout time.Duration
	queue   chan Event

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

type AsyncOption func(*Async)

func WithQueueSize(n int) AsyncOption {
	return func(a *Async) {
		if n > 0 {
			a.queue = make(chan Event, n)
		}
	}
}

func WithPublishTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func NewAsync(pub Publisher, opts ...AsyncOption) *Async {
	a := &Async{pub: pub, timeout: defaultPublishTimeout, queue: make(chan Event, defaultQueueSize)}
	for _, opt := range opts {
		opt(a)
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) Dispatch(evs []Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		obslog.L().Warn("event_dispatch_after_close", zap.Int("count", len(evs)))
		return
	}
	for _, ev := range evs {
		select {
		case a.queue <- ev:
		default:
			obslog.L().Warn("event_queue_full", zap.String("type", ev.Type), zap.String("channel", ev.Channel))
		}
	}
}

func (a *Async) loop() {
	defer a.wg.Done()
	for ev := range a.queue {
		publishLogged(a.pub, ev, a.timeout)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (a *Async) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func publishLogged(pub Publisher, ev Event, timeout time.Duration) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := pub.Publish(ctx, ev); err != nil {
		obslog.L().Warn("event_publish_error", zap.String("type", ev.Type), zap.String("channel", ev.Channel), zap.Error(err))
	}
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes every event to the global logger.
type Log struct{}

func (Log) Publish(_ context.Context, ev Event) error {
	obslog.L().Info("event", zap.String("type", ev.Type), zap.String("channel", ev.Channel), zap.String("subject", ev.Subject))
	return nil
}

// Discard drops events.
type Discard struct{}

func (Discard) Dispatch([]Event) {}
