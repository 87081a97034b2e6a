// internal/progress/bridge.go
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mwiater/adjudicator/internal/logging"
)

const (
	// DefaultCapacity bounds the number of queued events.
	DefaultCapacity = 64
	// DefaultPollInterval is how long the consumer waits before sending a heartbeat.
	DefaultPollInterval = 500 * time.Millisecond
)

// Bridge runs one job on its own goroutine and hands its events and final
// result to a single consumer. Closing the event channel is the done marker;
// the result is stored before the close so the consumer can read it after.
type Bridge[T any] struct {
	events  chan Event
	gone    chan struct{}
	once    sync.Once
	poll    time.Duration
	initial *Event

	result T
	err    error
}

// Option configures a Bridge.
type Option func(*bridgeOptions)

type bridgeOptions struct {
	capacity int
	poll     time.Duration
	initial  *Event
}

// WithCapacity sets the event queue size.
func WithCapacity(n int) Option {
	return func(o *bridgeOptions) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithPollInterval sets the heartbeat interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *bridgeOptions) {
		if d > 0 {
			o.poll = d
		}
	}
}

// WithInitial makes Consume write e as its first frame. The display is
// seeded with it, so later frames never report a lower percent.
func WithInitial(e Event) Option {
	return func(o *bridgeOptions) {
		o.initial = &e
	}
}

// Start launches job on a new goroutine. The job emits through the Emitter it
// is given. There is no cancellation: the job runs to completion even if the
// consumer leaves, in which case its remaining events are dropped.
func Start[T any](job func(Emitter) (T, error), opts ...Option) *Bridge[T] {
	o := bridgeOptions{capacity: DefaultCapacity, poll: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}
	b := &Bridge[T]{
		events:  make(chan Event, o.capacity),
		gone:    make(chan struct{}),
		poll:    o.poll,
		initial: o.initial,
	}
	go b.run(job)
	return b
}

func (b *Bridge[T]) run(job func(Emitter) (T, error)) {
	defer close(b.events)
	defer func() {
		if r := recover(); r != nil {
			logging.LogError("progress: run panicked: %v", r)
			var zero T
			b.result, b.err = zero, fmt.Errorf("run panicked: %v", r)
		}
	}()
	b.result, b.err = job(EmitterFunc(b.emit))
}

// emit queues e, or drops it once the consumer has gone.
func (b *Bridge[T]) emit(e Event) {
	select {
	case b.events <- e:
	case <-b.gone:
	}
}

func (b *Bridge[T]) abandon() {
	b.once.Do(func() { close(b.gone) })
}

// Consume writes one frame per event until the job finishes, sending a
// heartbeat whenever no event arrives within the poll interval. When the job
// is done it calls finish with the job's outcome and writes the frame it
// returns. Consume returns early if ctx is done or a write fails; the job
// keeps running and its later events are discarded.
func (b *Bridge[T]) Consume(ctx context.Context, w FrameWriter, finish func(T, error) Frame) error {
	defer b.abandon()

	display := NewDisplay()
	if b.initial != nil {
		if err := w.WriteFrame(display.Apply(*b.initial)); err != nil {
			return err
		}
	}
	timer := time.NewTimer(b.poll)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-b.events:
			if !ok {
				return w.WriteFrame(finish(b.result, b.err))
			}
			if err := w.WriteFrame(display.Apply(e)); err != nil {
				return err
			}
		case <-timer.C:
			if err := w.WriteFrame(Heartbeat()); err != nil {
				return err
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(b.poll)
	}
}

// Wait blocks until the job finishes, discarding events, and returns its outcome.
func (b *Bridge[T]) Wait() (T, error) {
	defer b.abandon()
	for range b.events {
	}
	return b.result, b.err
}
