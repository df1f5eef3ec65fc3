package worker

import (
	"sync"
	"time"

	"salesservice/internal/platform/observability"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultIdleTimeout is how long the queue must stay empty before the worker stops.
const DefaultIdleTimeout = 30 * time.Second

// ReceiveObserver is told about every message the consumer handles.
type ReceiveObserver interface {
	PreReceive(msg kafka.Message)
	PostConsume(msg kafka.Message, elapsed time.Duration)
	ConsumeFault(msg kafka.Message, elapsed time.Duration, err error)
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. The default wraps time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DrainObserver stops the worker once no message has been in flight for the
// idle timeout. The countdown starts armed, is cancelled when a message
// arrives and restarts when the last in-flight message finishes.
type DrainObserver struct {
	mu        sync.Mutex
	active    int
	timer     Timer
	armed     bool
	gen       uint64
	fired     bool
	idle      time.Duration
	shutdown  func()
	afterFunc AfterFunc
	logger    observability.Logger
}

var _ ReceiveObserver = (*DrainObserver)(nil)

type DrainOption func(*DrainObserver)

// WithAfterFunc replaces the timer source, for tests.
func WithAfterFunc(fn AfterFunc) DrainOption {
	return func(o *DrainObserver) { o.afterFunc = fn }
}

// NewDrainObserver arms the idle countdown immediately. shutdown is called at
// most once.
func NewDrainObserver(idle time.Duration, shutdown func(), logger observability.Logger, opts ...DrainOption) *DrainObserver {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	o := &DrainObserver{
		idle:      idle,
		shutdown:  shutdown,
		afterFunc: realAfterFunc,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.mu.Lock()
	o.arm()
	o.mu.Unlock()
	return o
}

func (o *DrainObserver) PreReceive(msg kafka.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.active++
	if o.active == 1 {
		o.disarm()
	}
	o.logger.Debug("Message received",
		zap.Int64("offset", msg.Offset),
		zap.Int("active", o.active),
	)
}

func (o *DrainObserver) PostConsume(msg kafka.Message, elapsed time.Duration) {
	o.finish(msg, elapsed, nil)
}

func (o *DrainObserver) ConsumeFault(msg kafka.Message, elapsed time.Duration, err error) {
	o.finish(msg, elapsed, err)
}

func (o *DrainObserver) finish(msg kafka.Message, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.active--
	if o.active < 0 {
		o.logger.Warn("Consume completion without matching receive", zap.Int64("offset", msg.Offset))
		o.active = 0
	}

	fields := []zap.Field{zap.Int64("offset", msg.Offset), zap.Duration("elapsed", elapsed), zap.Int("active", o.active)}
	if err != nil {
		o.logger.Debug("Message faulted", append(fields, zap.Error(err))...)
	} else {
		o.logger.Debug("Message consumed", fields...)
	}

	if o.active == 0 {
		o.arm()
	}
}

// arm must be called with mu held.
func (o *DrainObserver) arm() {
	if o.fired {
		return
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.gen++
	gen := o.gen
	o.timer = o.afterFunc(o.idle, func() { o.onIdle(gen) })
	o.armed = true
}

// disarm must be called with mu held.
func (o *DrainObserver) disarm() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.gen++
	o.armed = false
}

// onIdle ignores callbacks from timers that were re-armed or disarmed after
// they were scheduled.
func (o *DrainObserver) onIdle(gen uint64) {
	o.mu.Lock()
	if gen != o.gen || o.active != 0 || o.fired {
		o.mu.Unlock()
		return
	}
	o.fired = true
	o.armed = false
	o.timer = nil
	o.mu.Unlock()

	o.logger.Info("💤 No messages for idle timeout, stopping worker", zap.Duration("idle_timeout", o.idle))
	o.shutdown()
}

// Armed reports whether the idle countdown is running.
func (o *DrainObserver) Armed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.armed
}

// Active is the number of messages currently being handled.
func (o *DrainObserver) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Stop cancels any pending countdown without triggering shutdown.
func (o *DrainObserver) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disarm()
	o.fired = true
}
