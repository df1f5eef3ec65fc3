package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeTimer struct {
	fn      func()
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: fn, d: d}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type shutdownCounter struct {
	mu sync.Mutex
	n  int
}

func (s *shutdownCounter) call() {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *shutdownCounter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func newTestObserver(t *testing.T) (*DrainObserver, *fakeClock, *shutdownCounter) {
	clock := &fakeClock{}
	shutdown := &shutdownCounter{}
	o := NewDrainObserver(30*time.Second, shutdown.call, zaptest.NewLogger(t), WithAfterFunc(clock.AfterFunc))
	return o, clock, shutdown
}

func TestDrainObserverArmsOnStart(t *testing.T) {
	o, clock, _ := newTestObserver(t)

	assert.True(t, o.Armed())
	require.Equal(t, 1, clock.count())
	assert.Equal(t, 30*time.Second, clock.last().d)
}

func TestDrainObserverReceiveReceiveConsumeConsume(t *testing.T) {
	o, clock, shutdown := newTestObserver(t)
	msg := kafka.Message{Offset: 1}

	o.PreReceive(msg)
	assert.False(t, o.Armed())
	assert.True(t, clock.timers[0].stopped)

	o.PreReceive(msg)
	assert.Equal(t, 2, o.Active())
	assert.False(t, o.Armed())

	o.PostConsume(msg, time.Millisecond)
	assert.Equal(t, 1, o.Active())
	assert.False(t, o.Armed(), "one message still in flight")
	assert.Equal(t, 1, clock.count())

	o.PostConsume(msg, time.Millisecond)
	assert.Equal(t, 0, o.Active())
	assert.True(t, o.Armed())
	require.Equal(t, 2, clock.count())

	clock.last().fn()
	assert.Equal(t, 1, shutdown.calls())
	assert.False(t, o.Armed())

	clock.last().fn()
	assert.Equal(t, 1, shutdown.calls(), "shutdown fires at most once")
}

func TestDrainObserverDisarmsOnNextReceive(t *testing.T) {
	o, clock, shutdown := newTestObserver(t)
	msg := kafka.Message{}

	o.PreReceive(msg)
	o.PostConsume(msg, 0)
	require.True(t, o.Armed())
	armed := clock.last()

	o.PreReceive(msg)
	assert.False(t, o.Armed())
	assert.True(t, armed.stopped)

	armed.fn()
	assert.Equal(t, 0, shutdown.calls(), "a timer cancelled by a receive must not stop the worker")
}

func TestDrainObserverIgnoresStaleTimer(t *testing.T) {
	o, clock, shutdown := newTestObserver(t)
	initial := clock.last()
	msg := kafka.Message{}

	o.PreReceive(msg)
	o.ConsumeFault(msg, 0, assert.AnError)
	require.True(t, o.Armed())

	initial.fn()
	assert.Equal(t, 0, shutdown.calls())

	clock.last().fn()
	assert.Equal(t, 1, shutdown.calls())
}

func TestDrainObserverFaultCountsAsCompletion(t *testing.T) {
	o, _, _ := newTestObserver(t)
	msg := kafka.Message{}

	o.PreReceive(msg)
	o.ConsumeFault(msg, time.Second, assert.AnError)

	assert.Equal(t, 0, o.Active())
	assert.True(t, o.Armed())
}

func TestDrainObserverClampsUnmatchedCompletion(t *testing.T) {
	o, _, _ := newTestObserver(t)

	o.PostConsume(kafka.Message{}, 0)
	assert.Equal(t, 0, o.Active())
	assert.True(t, o.Armed())
}

func TestDrainObserverStop(t *testing.T) {
	o, clock, shutdown := newTestObserver(t)

	o.Stop()
	assert.False(t, o.Armed())
	clock.last().fn()
	assert.Equal(t, 0, shutdown.calls())
}

func TestDrainObserverWithRealTimer(t *testing.T) {
	done := make(chan struct{})
	o := NewDrainObserver(20*time.Millisecond, func() { close(done) }, zaptest.NewLogger(t))
	defer o.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker was not stopped after idle timeout")
	}
}
